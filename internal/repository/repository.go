package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/domain"
)

// Sentinel errors surfaced to the service layer. Storage-level
// uniqueness violations map onto the duplicate errors so the unique
// index stays the authority, not the pre-insert lookup.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateName  = errors.New("project name already exists")
)

// UserRepository owns user records. Read paths never return the
// password hash unless the caller explicitly opts in.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByEmailWithSecret(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (domain.User, error)
	FindByResetTokenHash(ctx context.Context, hash string) (domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// StatusBucket is one aggregation row of the monthly status report.
type StatusBucket struct {
	Year   int    `bson:"year"`
	Month  int    `bson:"month"`
	Status string `bson:"status"`
	Count  int    `bson:"count"`
}

// ProjectRepository owns project records, always scoped by owner for
// list and report queries.
type ProjectRepository interface {
	Create(ctx context.Context, project domain.Project) (domain.Project, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (domain.Project, error)
	FindByName(ctx context.Context, name string) (domain.Project, error)
	List(ctx context.Context, owner primitive.ObjectID, name string, page, limit int) ([]domain.Project, int64, error)
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	StatusCounts(ctx context.Context, owner primitive.ObjectID, year int) ([]StatusBucket, error)
	Recent(ctx context.Context, owner primitive.ObjectID, limit int) ([]domain.Project, error)
}
