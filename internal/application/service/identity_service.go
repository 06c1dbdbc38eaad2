package service

import (
	"context"
	"strings"
	"time"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/application/workflow"
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// IdentityService reconciles travelers and projects referenced on create
// into local records, consulting the external directory when they are missing
type IdentityService interface {
	workflow.EntityResolver
}

type identityServiceImpl struct {
	userRepo    port.UserRepository
	projectRepo port.ProjectRepository
	directory   port.Directory
	logger      Logger
	now         func() time.Time
}

// NewIdentityService creates a new IdentityService. directory may be nil,
// in which case external references fail as unavailable.
func NewIdentityService(
	userRepo port.UserRepository,
	projectRepo port.ProjectRepository,
	directory port.Directory,
	logger Logger,
) IdentityService {
	return &identityServiceImpl{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		directory:   directory,
		logger:      orNop(logger),
		now:         time.Now,
	}
}

// ResolveTraveler returns the local traveler id. An empty reference means the requester travels.
func (s *identityServiceImpl) ResolveTraveler(ctx context.Context, requesterID int64, ref workflow.EntityRef) (int64, error) {
	switch {
	case ref.ID != nil:
		user, err := s.userRepo.GetByID(ctx, *ref.ID)
		if err != nil {
			return 0, err
		}
		if user == nil {
			return 0, apperr.InvalidInput("traveler %d does not exist", *ref.ID)
		}
		return user.ID, nil

	case ref.ExternalID != "":
		return s.reconcileUser(ctx, strings.TrimSpace(ref.ExternalID))

	default:
		return requesterID, nil
	}
}

// ResolveProject returns the local project id, or nil when no project is referenced
func (s *identityServiceImpl) ResolveProject(ctx context.Context, ref workflow.EntityRef) (*int64, error) {
	switch {
	case ref.ID != nil:
		project, err := s.projectRepo.GetByID(ctx, *ref.ID)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, apperr.InvalidInput("project %d does not exist", *ref.ID)
		}
		return &project.ID, nil

	case ref.ExternalID != "":
		id, err := s.reconcileProject(ctx, strings.TrimSpace(ref.ExternalID))
		if err != nil {
			return nil, err
		}
		return &id, nil

	default:
		return nil, nil
	}
}

func (s *identityServiceImpl) reconcileUser(ctx context.Context, externalID string) (int64, error) {
	local, err := s.userRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return 0, err
	}
	if local != nil {
		return local.ID, nil
	}

	if s.directory == nil {
		return 0, apperr.DependencyUnavailable(nil, "directory is not configured, cannot resolve traveler %s", externalID)
	}
	record, err := s.directory.GetUser(ctx, externalID)
	if err != nil {
		return 0, apperr.DependencyUnavailable(err, "directory lookup of traveler %s failed", externalID)
	}
	if record == nil {
		return 0, apperr.InvalidInput("traveler %s is unknown to the directory", externalID)
	}

	email := entity.NormalizeEmail(record.Email)
	if email == "" {
		return 0, apperr.InvalidInput("directory traveler %s has no email", externalID)
	}

	r := role.Role(record.Role)
	if !r.IsValid() || r == role.Admin {
		r = role.Manager
	}

	now := s.now().UTC()
	// Keyed on email so an existing local account is reused rather than duplicated
	stored, err := s.userRepo.UpsertByEmail(ctx, &entity.User{
		Email:      email,
		FirstName:  record.FirstName,
		LastName:   record.LastName,
		Role:       r,
		ExternalID: externalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Traveler reconciled from directory",
		"external_id", externalID,
		"user_id", stored.ID,
		"email", stored.Email,
	)
	return stored.ID, nil
}

func (s *identityServiceImpl) reconcileProject(ctx context.Context, externalID string) (int64, error) {
	local, err := s.projectRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return 0, err
	}
	if local != nil {
		return local.ID, nil
	}

	if s.directory == nil {
		return 0, apperr.DependencyUnavailable(nil, "directory is not configured, cannot resolve project %s", externalID)
	}
	record, err := s.directory.GetProject(ctx, externalID)
	if err != nil {
		return 0, apperr.DependencyUnavailable(err, "directory lookup of project %s failed", externalID)
	}
	if record == nil {
		return 0, apperr.InvalidInput("project %s is unknown to the directory", externalID)
	}

	status := record.Status
	if status == "" {
		status = entity.ProjectStatusActive
	}

	now := s.now().UTC()
	stored, err := s.projectRepo.UpsertByExternalID(ctx, &entity.Project{
		Name:       record.Name,
		ExternalID: externalID,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Project reconciled from directory",
		"external_id", externalID,
		"project_id", stored.ID,
	)
	return stored.ID, nil
}
