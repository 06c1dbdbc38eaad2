package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
)

// ProjectRepository implements port.ProjectRepository
type ProjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB, logger *zap.Logger) port.ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByExternalID retrieves a project by directory ID
func (r *ProjectRepository) GetByExternalID(ctx context.Context, externalID string) (*entity.Project, error) {
	return r.getOne(ctx, "external_id = ?", externalID)
}

func (r *ProjectRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.Project, error) {
	query := `SELECT id, name, external_id, status, created_at, updated_at FROM projects WHERE ` + where

	project, err := scanProject(r.getExecutor(ctx).QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get project", zap.Any("arg", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// List returns every project ordered by name
func (r *ProjectRepository) List(ctx context.Context) ([]*entity.Project, error) {
	query := `SELECT id, name, external_id, status, created_at, updated_at FROM projects ORDER BY name ASC, id ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err))
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*entity.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// UpsertByExternalID inserts the project or refreshes name and status of the existing row
func (r *ProjectRepository) UpsertByExternalID(ctx context.Context, project *entity.Project) (*entity.Project, error) {
	query := `
		INSERT INTO projects (name, external_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		project.Name,
		project.ExternalID,
		project.Status,
		orNow(project.CreatedAt),
		orNow(project.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to upsert project", zap.String("external_id", project.ExternalID), zap.Error(err))
		return nil, fmt.Errorf("failed to upsert project: %w", err)
	}

	stored, err := r.GetByExternalID(ctx, project.ExternalID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("project %s missing after upsert", project.ExternalID)
	}
	return stored, nil
}

func scanProject(row rowScanner) (*entity.Project, error) {
	var project entity.Project
	var externalID sql.NullString

	err := row.Scan(
		&project.ID,
		&project.Name,
		&externalID,
		&project.Status,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	project.ExternalID = externalID.String
	project.CreatedAt = project.CreatedAt.UTC()
	project.UpdatedAt = project.UpdatedAt.UTC()
	return &project, nil
}

// getExecutor returns appropriate executor based on context
func (r *ProjectRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ProjectRepository = (*ProjectRepository)(nil)
