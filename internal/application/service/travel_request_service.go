package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/travel-approval/internal/application/filter"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// TravelRequestService serves the read side and admin maintenance of travel requests.
// Status changes go through the lifecycle engine.
type TravelRequestService interface {
	List(ctx context.Context, actor *role.Actor, flags filter.Flags) ([]*entity.TravelRequest, error)
	Get(ctx context.Context, actor *role.Actor, id int64) (*entity.TravelRequest, error)
	Delete(ctx context.Context, actor *role.Actor, id int64) error

	// Export writes the actor's filtered view, without paging, through the exporter
	Export(ctx context.Context, actor *role.Actor, flags filter.Flags, w io.Writer) error
}

type travelRequestServiceImpl struct {
	requestRepo port.TravelRequestRepository
	exporter    port.RequestExporter
	logger      Logger
}

// NewTravelRequestService creates a new TravelRequestService
func NewTravelRequestService(
	requestRepo port.TravelRequestRepository,
	exporter port.RequestExporter,
	logger Logger,
) TravelRequestService {
	return &travelRequestServiceImpl{
		requestRepo: requestRepo,
		exporter:    exporter,
		logger:      orNop(logger),
	}
}

func (s *travelRequestServiceImpl) List(ctx context.Context, actor *role.Actor, flags filter.Flags) ([]*entity.TravelRequest, error) {
	if err := role.Authorize(actor, role.OpListRequests).Err(); err != nil {
		return nil, err
	}

	f, err := filter.Build(actor, flags)
	if err != nil {
		return nil, err
	}

	requests, err := s.requestRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list travel requests: %w", err)
	}
	return requests, nil
}

func (s *travelRequestServiceImpl) Get(ctx context.Context, actor *role.Actor, id int64) (*entity.TravelRequest, error) {
	if err := role.Authorize(actor, role.OpViewRequest).Err(); err != nil {
		return nil, err
	}

	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get travel request: %w", err)
	}
	if req == nil {
		return nil, apperr.NotFound("travel request %d not found", id)
	}
	if !canView(actor, req) {
		return nil, apperr.Forbidden("travel request %d is outside your view", id)
	}
	return req, nil
}

func (s *travelRequestServiceImpl) Delete(ctx context.Context, actor *role.Actor, id int64) error {
	if err := role.Authorize(actor, role.OpDeleteRequest).Err(); err != nil {
		return err
	}

	deleted, err := s.requestRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete travel request: %w", err)
	}
	if !deleted {
		return apperr.NotFound("travel request %d not found", id)
	}

	s.logger.Info("Travel request deleted", "travel_request_id", id, "actor_id", actor.ID)
	return nil
}

func (s *travelRequestServiceImpl) Export(ctx context.Context, actor *role.Actor, flags filter.Flags, w io.Writer) error {
	if err := role.Authorize(actor, role.OpExportRequests).Err(); err != nil {
		return err
	}
	if s.exporter == nil {
		return apperr.DependencyUnavailable(nil, "export is not configured")
	}

	f, err := filter.Build(actor, flags)
	if err != nil {
		return err
	}

	requests, err := s.requestRepo.List(ctx, f.WithoutPaging())
	if err != nil {
		return fmt.Errorf("list travel requests: %w", err)
	}

	if err := s.exporter.Export(ctx, w, requests); err != nil {
		return fmt.Errorf("export travel requests: %w", err)
	}

	s.logger.Info("Travel requests exported", "actor_id", actor.ID, "count", len(requests))
	return nil
}
