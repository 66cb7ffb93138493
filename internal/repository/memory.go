package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/domain"
)

// In-memory repositories with the same observable semantics as the
// Mongo implementations (secretless reads, paired-field updates,
// duplicate detection). Used by tests and local development.

var (
	_ UserRepository    = (*MemoryUserRepo)(nil)
	_ ProjectRepository = (*MemoryProjectRepo)(nil)
)

// MemoryUserRepo is a map-backed UserRepository.
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]domain.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[primitive.ObjectID]domain.User)}
}

func cloneUser(u domain.User) domain.User {
	out := u
	if u.OTP != nil {
		v := *u.OTP
		out.OTP = &v
	}
	if u.OTPExpiry != nil {
		v := *u.OTPExpiry
		out.OTPExpiry = &v
	}
	if u.ResetTokenHash != nil {
		v := *u.ResetTokenHash
		out.ResetTokenHash = &v
	}
	if u.ResetTokenExpiry != nil {
		v := *u.ResetTokenExpiry
		out.ResetTokenExpiry = &v
	}
	return out
}

func (r *MemoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return domain.User{}, ErrDuplicateEmail
		}
	}

	user.ID = primitive.NewObjectID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *MemoryUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := r.FindByEmailWithSecret(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (r *MemoryUserRepo) FindByEmailWithSecret(ctx context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (r *MemoryUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	out := cloneUser(user)
	out.PasswordHash = ""
	return out, nil
}

func (r *MemoryUserRepo) FindByResetTokenHash(ctx context.Context, hash string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.ResetTokenHash != nil && *user.ResetTokenHash == hash {
			return cloneUser(user), nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (r *MemoryUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return ErrNotFound
	}

	stored.Verified = user.Verified
	if user.PasswordHash != "" {
		stored.PasswordHash = user.PasswordHash
	}

	if user.OTP != nil && user.OTPExpiry != nil {
		stored.OTP = user.OTP
		stored.OTPExpiry = user.OTPExpiry
	} else {
		stored.OTP = nil
		stored.OTPExpiry = nil
	}

	if user.ResetTokenHash != nil && user.ResetTokenExpiry != nil {
		stored.ResetTokenHash = user.ResetTokenHash
		stored.ResetTokenExpiry = user.ResetTokenExpiry
	} else {
		stored.ResetTokenHash = nil
		stored.ResetTokenExpiry = nil
	}

	r.users[user.ID] = cloneUser(stored)
	return nil
}

// Delete removes a user outright. Not part of UserRepository; exists
// so tests can exercise the deleted-user guard path.
func (r *MemoryUserRepo) Delete(id primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// Count returns the number of stored users.
func (r *MemoryUserRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Raw returns the stored record including secrets and OTP state.
func (r *MemoryUserRepo) Raw(id primitive.ObjectID) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	return cloneUser(user), ok
}

// Put replaces a stored record. Tests use it to force expiry states.
func (r *MemoryUserRepo) Put(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = cloneUser(user)
}

// MemoryProjectRepo is a map-backed ProjectRepository.
type MemoryProjectRepo struct {
	mu       sync.Mutex
	projects map[primitive.ObjectID]domain.Project
}

func NewMemoryProjectRepo() *MemoryProjectRepo {
	return &MemoryProjectRepo{projects: make(map[primitive.ObjectID]domain.Project)}
}

func (r *MemoryProjectRepo) Create(ctx context.Context, project domain.Project) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.projects {
		if existing.Name == project.Name {
			return domain.Project{}, ErrDuplicateName
		}
	}

	project.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	if project.UpdatedAt.IsZero() {
		project.UpdatedAt = now
	}
	r.projects[project.ID] = project
	return project, nil
}

func (r *MemoryProjectRepo) FindByID(ctx context.Context, id primitive.ObjectID) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, ok := r.projects[id]
	if !ok {
		return domain.Project{}, ErrNotFound
	}
	return project, nil
}

func (r *MemoryProjectRepo) FindByName(ctx context.Context, name string) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, project := range r.projects {
		if project.Name == name {
			return project, nil
		}
	}
	return domain.Project{}, ErrNotFound
}

func (r *MemoryProjectRepo) List(ctx context.Context, owner primitive.ObjectID, name string, page, limit int) ([]domain.Project, int64, error) {
	matched := r.matching(owner, name)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	count := int64(len(matched))
	start := limit * (page - 1)
	if start >= len(matched) {
		return nil, count, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], count, nil
}

func (r *MemoryProjectRepo) Update(ctx context.Context, project *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[project.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range r.projects {
		if id != project.ID && existing.Name == project.Name {
			return ErrDuplicateName
		}
	}
	r.projects[project.ID] = *project
	return nil
}

func (r *MemoryProjectRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[id]; !ok {
		return ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *MemoryProjectRepo) StatusCounts(ctx context.Context, owner primitive.ObjectID, year int) ([]StatusBucket, error) {
	counts := make(map[StatusBucket]int)
	for _, project := range r.matching(owner, "") {
		if !domain.ValidStatus(project.Status) {
			continue
		}
		created := project.CreatedAt.UTC()
		if created.Year() != year {
			continue
		}
		key := StatusBucket{Year: created.Year(), Month: int(created.Month()), Status: project.Status}
		counts[key]++
	}

	buckets := make([]StatusBucket, 0, len(counts))
	for key, count := range counts {
		key.Count = count
		buckets = append(buckets, key)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Month != buckets[j].Month {
			return buckets[i].Month < buckets[j].Month
		}
		return buckets[i].Status < buckets[j].Status
	})
	return buckets, nil
}

func (r *MemoryProjectRepo) Recent(ctx context.Context, owner primitive.ObjectID, limit int) ([]domain.Project, error) {
	matched := r.matching(owner, "")
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryProjectRepo) matching(owner primitive.ObjectID, name string) []domain.Project {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Project
	for _, project := range r.projects {
		if project.CreatedBy != owner {
			continue
		}
		if name != "" && project.Name != name {
			continue
		}
		matched = append(matched, project)
	}
	return matched
}
