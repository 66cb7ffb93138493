package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/domain"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/repository"
)

// recentChangesCap bounds the change log carried on each project.
const recentChangesCap = 20

// Pagination describes a page of list results.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}

// MonthStatus is one row of the yearly status report, keyed "YYYY-M".
type MonthStatus struct {
	Month      string `json:"month"`
	Complete   int    `json:"Complete"`
	Pending    int    `json:"Pending"`
	InProgress int    `json:"In Progress"`
	Block      int    `json:"Block"`
}

// UpdateProjectInput carries the editable project fields. Empty fields
// are left untouched.
type UpdateProjectInput struct {
	Name        string
	Description string
	Status      string
}

// ProjectService implements project CRUD and reporting, always scoped
// to the calling user.
type ProjectService struct {
	projects repository.ProjectRepository
	logger   *zap.Logger
}

func NewProjectService(projects repository.ProjectRepository, logger *zap.Logger) *ProjectService {
	return &ProjectService{projects: projects, logger: logger}
}

func (s *ProjectService) Create(ctx context.Context, owner primitive.ObjectID, name, description string) (domain.Project, error) {
	if name == "" || description == "" {
		return domain.Project{}, newValidationError("Please provide name and description")
	}

	if _, err := s.projects.FindByName(ctx, name); err == nil {
		return domain.Project{}, newConflictError("A project with this name already exists in the system.")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Project{}, fmt.Errorf("check existing project: %w", err)
	}

	project := domain.Project{
		Name:        name,
		Description: description,
		Status:      domain.StatusPending,
		CreatedBy:   owner,
	}

	created, err := s.projects.Create(ctx, project)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return domain.Project{}, newConflictError("A project with this name already exists in the system.")
		}
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info("project created",
		zap.String("project_id", created.ID.Hex()),
		zap.String("user_id", owner.Hex()),
	)
	return created, nil
}

func (s *ProjectService) List(ctx context.Context, owner primitive.ObjectID, name string, page, limit int) ([]domain.Project, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	projects, count, err := s.projects.List(ctx, owner, name, page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := count / int64(limit)
	if count%int64(limit) != 0 {
		totalPages++
	}

	return projects, Pagination{Page: page, Limit: limit, TotalPages: totalPages}, nil
}

// Update edits a project and records which fields changed in its
// recent-changes log.
func (s *ProjectService) Update(ctx context.Context, id string, in UpdateProjectInput) (domain.Project, error) {
	if id == "" {
		return domain.Project{}, newValidationError("Project ID is required")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Project{}, newValidationError("Project not found")
	}
	if in.Status != "" && !domain.ValidStatus(in.Status) {
		return domain.Project{}, newValidationError("Invalid project status")
	}

	project, err := s.projects.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Project{}, newValidationError("Project not found")
		}
		return domain.Project{}, err
	}

	now := time.Now().UTC()
	var changes []domain.Change
	apply := func(field, from, to string, set func()) {
		if to != "" && to != from {
			changes = append(changes, domain.Change{Field: field, From: from, To: to, ChangedAt: now})
			set()
		}
	}
	apply("name", project.Name, in.Name, func() { project.Name = in.Name })
	apply("description", project.Description, in.Description, func() { project.Description = in.Description })
	apply("status", project.Status, in.Status, func() { project.Status = in.Status })

	project.RecentChanges = append(project.RecentChanges, changes...)
	if len(project.RecentChanges) > recentChangesCap {
		project.RecentChanges = project.RecentChanges[len(project.RecentChanges)-recentChangesCap:]
	}
	project.UpdatedAt = now

	if err := s.projects.Update(ctx, &project); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.Project{}, newValidationError("Project not found")
		case errors.Is(err, repository.ErrDuplicateName):
			return domain.Project{}, newConflictError("A project with this name already exists in the system.")
		}
		return domain.Project{}, err
	}

	s.logger.Info("project updated", zap.String("project_id", project.ID.Hex()))
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return newValidationError("Project ID is required")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return newValidationError("Project not found")
	}

	if err := s.projects.Delete(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newValidationError("Project not found")
		}
		return err
	}

	s.logger.Info("project deleted", zap.String("project_id", id))
	return nil
}

// StatusReport returns per-month status counts for the current year,
// zero-filled so every month appears even with no projects.
func (s *ProjectService) StatusReport(ctx context.Context, owner primitive.ObjectID) ([]MonthStatus, error) {
	year := time.Now().Year()

	buckets, err := s.projects.StatusCounts(ctx, owner, year)
	if err != nil {
		return nil, err
	}

	report := make([]MonthStatus, 12)
	for m := 1; m <= 12; m++ {
		report[m-1] = MonthStatus{Month: fmt.Sprintf("%d-%d", year, m)}
	}

	for _, b := range buckets {
		if b.Year != year || b.Month < 1 || b.Month > 12 {
			continue
		}
		row := &report[b.Month-1]
		switch b.Status {
		case domain.StatusComplete:
			row.Complete = b.Count
		case domain.StatusPending:
			row.Pending = b.Count
		case domain.StatusInProgress:
			row.InProgress = b.Count
		case domain.StatusBlock:
			row.Block = b.Count
		}
	}

	return report, nil
}

func (s *ProjectService) Recent(ctx context.Context, owner primitive.ObjectID, limit int) ([]domain.Project, error) {
	if limit < 1 {
		limit = 6
	}
	return s.projects.Recent(ctx, owner, limit)
}
