package service

import (
	"context"
	"fmt"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// UserService manages local actor records
type UserService interface {
	// Authenticate loads the actor behind an authenticated session subject
	Authenticate(ctx context.Context, userID int64) (*role.Actor, error)

	Me(ctx context.Context, actor *role.Actor) (*entity.User, error)
	List(ctx context.Context, actor *role.Actor) ([]*entity.User, error)
	UpdateRole(ctx context.Context, actor *role.Actor, userID int64, r role.Role) (*entity.User, error)

	// SetActiveRole sets or, with an empty role, clears the admin override
	SetActiveRole(ctx context.Context, actor *role.Actor, r role.Role) (*entity.User, error)
}

type userServiceImpl struct {
	userRepo port.UserRepository
	logger   Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, logger Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		logger:   orNop(logger),
	}
}

func (s *userServiceImpl) Authenticate(ctx context.Context, userID int64) (*role.Actor, error) {
	if userID <= 0 {
		return nil, apperr.Unauthenticated("missing session subject")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.Unauthenticated("user %d no longer exists", userID)
	}
	return user.Actor(), nil
}

func (s *userServiceImpl) Me(ctx context.Context, actor *role.Actor) (*entity.User, error) {
	if actor == nil || actor.ID == 0 {
		return nil, apperr.Unauthenticated("no authenticated actor")
	}
	return s.mustGet(ctx, actor.ID)
}

func (s *userServiceImpl) List(ctx context.Context, actor *role.Actor) ([]*entity.User, error) {
	if err := role.Authorize(actor, role.OpManageUsers).Err(); err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userServiceImpl) UpdateRole(ctx context.Context, actor *role.Actor, userID int64, r role.Role) (*entity.User, error) {
	if err := role.Authorize(actor, role.OpManageUsers).Err(); err != nil {
		return nil, err
	}
	if !r.IsValid() {
		return nil, apperr.InvalidInput("unknown role %q", r)
	}
	if _, err := s.mustGet(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateRole(ctx, userID, r); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	s.logger.Info("User role updated", "user_id", userID, "role", r, "actor_id", actor.ID)
	return s.mustGet(ctx, userID)
}

func (s *userServiceImpl) SetActiveRole(ctx context.Context, actor *role.Actor, r role.Role) (*entity.User, error) {
	if err := role.Authorize(actor, role.OpSwitchActiveRole).Err(); err != nil {
		return nil, err
	}
	if r != "" && (!r.IsValid() || r == role.Admin) {
		return nil, apperr.InvalidInput("active role %q must be a non-admin role", r)
	}

	if err := s.userRepo.SetActiveRole(ctx, actor.ID, r); err != nil {
		return nil, fmt.Errorf("set active role: %w", err)
	}
	s.logger.Info("Active role switched", "user_id", actor.ID, "active_role", r)
	return s.mustGet(ctx, actor.ID)
}

func (s *userServiceImpl) mustGet(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user %d not found", id)
	}
	return user, nil
}
