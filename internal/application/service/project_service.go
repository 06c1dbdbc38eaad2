package service

import (
	"context"
	"fmt"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// ProjectService lists the projects requests can be billed to
type ProjectService interface {
	List(ctx context.Context, actor *role.Actor) ([]*entity.Project, error)
}

type projectServiceImpl struct {
	projectRepo port.ProjectRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(projectRepo port.ProjectRepository) ProjectService {
	return &projectServiceImpl{projectRepo: projectRepo}
}

func (s *projectServiceImpl) List(ctx context.Context, actor *role.Actor) ([]*entity.Project, error) {
	if err := role.Authorize(actor, role.OpListProjects).Err(); err != nil {
		return nil, err
	}
	projects, err := s.projectRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}
