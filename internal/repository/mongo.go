package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository    = (*MongoUserRepo)(nil)
	_ ProjectRepository = (*MongoProjectRepo)(nil)
)

const (
	usersCollection    = "users"
	projectsCollection = "projects"
)

// EnsureIndexes creates the indexes the service relies on. The unique
// email index is the real guarantor of registration uniqueness; the
// in-service existence check only produces a friendlier message.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "reset_token_hash", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = db.Collection(projectsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create project indexes: %w", err)
	}
	return nil
}

// MongoUserRepo implements UserRepository on a MongoDB collection.
type MongoUserRepo struct {
	col *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{col: db.Collection(usersCollection)}
}

// secretlessProjection keeps the password hash out of every read that
// does not explicitly opt in.
var secretlessProjection = bson.M{"password": 0}

func (r *MongoUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := r.col.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return user, nil
}

func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, options.FindOne().SetProjection(secretlessProjection))
}

func (r *MongoUserRepo) FindByEmailWithSecret(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(secretlessProjection))
}

func (r *MongoUserRepo) FindByResetTokenHash(ctx context.Context, hash string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"reset_token_hash": hash})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (domain.User, error) {
	var user domain.User
	err := r.col.FindOne(ctx, filter, opts...).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// Update persists the mutable auth state of a user in a single
// document write. Paired nullable fields (otp/otp_expiry,
// reset_token_hash/reset_token_expiry) are set or unset together so
// they can never diverge. The password hash is only written when the
// loaded record carries one, so secretless reads cannot wipe it.
func (r *MongoUserRepo) Update(ctx context.Context, user *domain.User) error {
	set := bson.M{"verified": user.Verified}
	unset := bson.M{}

	if user.PasswordHash != "" {
		set["password"] = user.PasswordHash
	}

	if user.OTP != nil && user.OTPExpiry != nil {
		set["otp"] = *user.OTP
		set["otp_expiry"] = *user.OTPExpiry
	} else {
		unset["otp"] = ""
		unset["otp_expiry"] = ""
	}

	if user.ResetTokenHash != nil && user.ResetTokenExpiry != nil {
		set["reset_token_hash"] = *user.ResetTokenHash
		set["reset_token_expiry"] = *user.ResetTokenExpiry
	} else {
		unset["reset_token_hash"] = ""
		unset["reset_token_expiry"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoProjectRepo implements ProjectRepository on a MongoDB collection.
type MongoProjectRepo struct {
	col *mongo.Collection
}

func NewMongoProjectRepo(db *mongo.Database) *MongoProjectRepo {
	return &MongoProjectRepo{col: db.Collection(projectsCollection)}
}

func (r *MongoProjectRepo) Create(ctx context.Context, project domain.Project) (domain.Project, error) {
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	if project.UpdatedAt.IsZero() {
		project.UpdatedAt = now
	}
	res, err := r.col.InsertOne(ctx, project)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Project{}, ErrDuplicateName
		}
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		project.ID = oid
	}
	return project, nil
}

func (r *MongoProjectRepo) FindByID(ctx context.Context, id primitive.ObjectID) (domain.Project, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoProjectRepo) FindByName(ctx context.Context, name string) (domain.Project, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *MongoProjectRepo) findOne(ctx context.Context, filter bson.M) (domain.Project, error) {
	var project domain.Project
	err := r.col.FindOne(ctx, filter).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Project{}, ErrNotFound
		}
		return domain.Project{}, fmt.Errorf("find project: %w", err)
	}
	return project, nil
}

func (r *MongoProjectRepo) List(ctx context.Context, owner primitive.ObjectID, name string, page, limit int) ([]domain.Project, int64, error) {
	filter := bson.M{"created_by": owner}
	if name != "" {
		filter["name"] = name
	}

	count, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	opts := options.Find().
		SetSkip(int64(limit * (page - 1))).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	defer cursor.Close(ctx)

	var projects []domain.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, 0, fmt.Errorf("decode projects: %w", err)
	}
	return projects, count, nil
}

func (r *MongoProjectRepo) Update(ctx context.Context, project *domain.Project) error {
	update := bson.M{"$set": bson.M{
		"name":           project.Name,
		"description":    project.Description,
		"status":         project.Status,
		"updated_at":     project.UpdatedAt,
		"recent_changes": project.RecentChanges,
	}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": project.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProjectRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// StatusCounts groups the owner's projects by calendar month and
// status for the given year.
func (r *MongoProjectRepo) StatusCounts(ctx context.Context, owner primitive.ObjectID, year int) ([]StatusBucket, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"created_by": owner,
			"status":     bson.M{"$in": domain.ProjectStatuses},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":   bson.M{"$year": "$created_at"},
				"month":  bson.M{"$month": "$created_at"},
				"status": "$status",
			},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$match", Value: bson.M{"_id.year": year}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "_id.year", Value: 1},
			{Key: "_id.month", Value: 1},
			{Key: "_id.status", Value: 1},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate project status: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID struct {
			Year   int    `bson:"year"`
			Month  int    `bson:"month"`
			Status string `bson:"status"`
		} `bson:"_id"`
		Count int `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode status buckets: %w", err)
	}

	buckets := make([]StatusBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, StatusBucket{
			Year:   row.ID.Year,
			Month:  row.ID.Month,
			Status: row.ID.Status,
			Count:  row.Count,
		})
	}
	return buckets, nil
}

func (r *MongoProjectRepo) Recent(ctx context.Context, owner primitive.ObjectID, limit int) ([]domain.Project, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{"created_by": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("list recent projects: %w", err)
	}
	defer cursor.Close(ctx)

	var projects []domain.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("decode recent projects: %w", err)
	}
	return projects, nil
}
