package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/filter"
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-approval/pkg/database"
)

type fixture struct {
	tx            *sqlite.DB
	requests      *repository.TravelRequestRepository
	bookings      *repository.BookingRepository
	users         *repository.UserRepository
	projects      *repository.ProjectRepository
	notifications *repository.NotificationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "repo.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(context.Background(), ""))

	return &fixture{
		tx:            sqlite.NewDB(db.DB, logger),
		requests:      repository.NewTravelRequestRepository(db.DB, logger).(*repository.TravelRequestRepository),
		bookings:      repository.NewBookingRepository(db.DB, logger).(*repository.BookingRepository),
		users:         repository.NewUserRepository(db.DB, logger).(*repository.UserRepository),
		projects:      repository.NewProjectRepository(db.DB, logger).(*repository.ProjectRepository),
		notifications: repository.NewNotificationRepository(db.DB, logger).(*repository.NotificationRepository),
	}
}

func (f *fixture) user(t *testing.T, email string, r role.Role) *entity.User {
	t.Helper()
	u, err := f.users.UpsertByEmail(context.Background(), &entity.User{Email: email, FirstName: "F", LastName: "L", Role: r})
	require.NoError(t, err)
	return u
}

func (f *fixture) request(t *testing.T, requesterID int64) *entity.TravelRequest {
	t.Helper()
	req := &entity.TravelRequest{
		RequesterID:   requesterID,
		TravelerID:    requesterID,
		Origin:        "Riyadh",
		Destination:   "Dubai",
		Destinations:  []string{"Dubai", "Abu Dhabi"},
		DepartureDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ReturnDate:    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Purpose:       entity.PurposeSales,
		Status:        entity.StatusSubmitted,
	}
	require.NoError(t, f.requests.Create(context.Background(), req))
	return req
}

func TestTravelRequestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mgr := f.user(t, "mgr@example.com", role.Manager)

	created := f.request(t, mgr.ID)
	require.NotZero(t, created.ID)

	got, err := f.requests.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Riyadh", got.Origin)
	assert.Equal(t, []string{"Dubai", "Abu Dhabi"}, got.Destinations)
	assert.True(t, got.DepartureDate.Equal(created.DepartureDate))
	assert.Equal(t, entity.StatusSubmitted, got.Status)
	assert.Empty(t, got.AssignedOperationsTeam)
	assert.Nil(t, got.ActualTotalCost)

	missing, err := f.requests.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTravelRequestRepository_UpdateTransitionCompareAndSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mgr := f.user(t, "mgr@example.com", role.Manager)
	pm := f.user(t, "pm@example.com", role.PM)
	req := f.request(t, mgr.ID)

	now := time.Now().UTC()
	next := req.Clone()
	next.Status = entity.StatusPMApproved
	next.PMDecidedBy = &pm.ID
	next.PMDecidedAt = &now
	next.AssignedOperationsTeam = string(role.OperationsKSA)

	ok, err := f.requests.UpdateTransition(ctx, next, entity.StatusSubmitted)
	require.NoError(t, err)
	assert.True(t, ok)

	// A stale writer expecting submitted loses
	stale := req.Clone()
	stale.Status = entity.StatusPMRejected
	stale.PMRejectionReason = "late"
	ok, err = f.requests.UpdateTransition(ctx, stale, entity.StatusSubmitted)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPMApproved, got.Status)
	assert.Equal(t, string(role.OperationsKSA), got.AssignedOperationsTeam)
	require.NotNil(t, got.PMDecidedBy)
	assert.Equal(t, pm.ID, *got.PMDecidedBy)
	assert.Empty(t, got.PMRejectionReason)

	cost := decimal.RequireFromString("1234.50")
	done := got.Clone()
	done.Status = entity.StatusOperationsCompleted
	done.ActualTotalCost = &cost
	ok, err = f.requests.UpdateTransition(ctx, done, entity.StatusPMApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = f.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ActualTotalCost)
	assert.True(t, cost.Equal(*got.ActualTotalCost))
}

func TestTravelRequestRepository_ConcurrentTransitionsSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mgr := f.user(t, "mgr@example.com", role.Manager)
	req := f.request(t, mgr.ID)

	const writers = 6
	var wg sync.WaitGroup
	wins := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
				current, err := f.requests.GetByID(txCtx, req.ID)
				if err != nil {
					return err
				}
				if current.Status != entity.StatusSubmitted {
					wins <- false
					return nil
				}
				next := current.Clone()
				next.Status = entity.StatusPMRejected
				next.PMRejectionReason = "budget"
				ok, err := f.requests.UpdateTransition(txCtx, next, entity.StatusSubmitted)
				wins <- ok
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	assert.Equal(t, 1, won)
}

func TestTravelRequestRepository_ListFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com", role.Manager)
	bob := f.user(t, "bob@example.com", role.Manager)

	a1 := f.request(t, alice.ID)
	f.request(t, alice.ID)
	b1 := f.request(t, bob.ID)

	approved := b1.Clone()
	approved.Status = entity.StatusPMApproved
	approved.AssignedOperationsTeam = string(role.OperationsUAE)
	ok, err := f.requests.UpdateTransition(ctx, approved, entity.StatusSubmitted)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("requester", func(t *testing.T) {
		got, err := f.requests.List(ctx, filter.Filter{RequesterID: &alice.ID})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		for _, r := range got {
			assert.Equal(t, alice.ID, r.RequesterID)
		}
	})

	t.Run("team and statuses", func(t *testing.T) {
		got, err := f.requests.List(ctx, filter.Filter{
			AssignedTeam: string(role.OperationsUAE),
			Statuses:     []string{entity.StatusPMApproved},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b1.ID, got[0].ID)

		got, err = f.requests.List(ctx, filter.Filter{AssignedTeam: string(role.OperationsKSA)})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("paging newest first", func(t *testing.T) {
		got, err := f.requests.List(ctx, filter.Filter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, b1.ID, got[0].ID)

		got, err = f.requests.List(ctx, filter.Filter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a1.ID, got[0].ID)
	})
}

func TestTravelRequestRepository_DeleteCascadesBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mgr := f.user(t, "mgr@example.com", role.Manager)
	ops := f.user(t, "ops@example.com", role.OperationsKSA)
	req := f.request(t, mgr.ID)

	booking := &entity.Booking{
		TravelRequestID: req.ID,
		Type:            entity.BookingTypeFlight,
		Provider:        "Saudia",
		Cost:            decimal.RequireFromString("800.00"),
		Status:          entity.BookingStatusConfirmed,
		CreatedBy:       ops.ID,
	}
	require.NoError(t, f.bookings.Create(ctx, booking))

	deleted, err := f.requests.Delete(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	remaining, err := f.bookings.ListByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	deleted, err = f.requests.Delete(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestBookingRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mgr := f.user(t, "mgr@example.com", role.Manager)
	ops := f.user(t, "ops@example.com", role.OperationsKSA)
	req := f.request(t, mgr.ID)

	for _, cost := range []string{"100.10", "200.25"} {
		require.NoError(t, f.bookings.Create(ctx, &entity.Booking{
			TravelRequestID: req.ID,
			Type:            entity.BookingTypeHotel,
			Provider:        "Hilton",
			Cost:            decimal.RequireFromString(cost),
			Reference:       "R-" + cost,
			Status:          entity.BookingStatusConfirmed,
			CreatedBy:       ops.ID,
		}))
	}

	got, err := f.bookings.ListByRequestID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "R-100.10", got[0].Reference)
	assert.True(t, entity.SummarizeCosts(got).Total.Equal(decimal.RequireFromString("300.35")))

	one, err := f.bookings.GetByID(ctx, got[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Hilton", one.Provider)
}

func TestBookingRepository_RejectsUnknownRequest(t *testing.T) {
	f := newFixture(t)
	ops := f.user(t, "ops@example.com", role.OperationsKSA)

	err := f.bookings.Create(context.Background(), &entity.Booking{
		TravelRequestID: 404,
		Type:            entity.BookingTypeOther,
		Provider:        "x",
		Status:          entity.BookingStatusPending,
		CreatedBy:       ops.ID,
	})
	assert.Error(t, err)
}

func TestUserRepository_UpsertByEmailIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.users.UpsertByEmail(ctx, &entity.User{
		Email: "  Jane@Example.com ", FirstName: "Jane", Role: role.PM, ExternalID: "dir-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", first.Email)

	second, err := f.users.UpsertByEmail(ctx, &entity.User{
		Email: "jane@example.com", FirstName: "Janet", Role: role.Manager,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Janet", second.FirstName)
	assert.Equal(t, role.PM, second.Role, "stored role survives refresh")
	assert.Equal(t, "dir-1", second.ExternalID)

	byExt, err := f.users.GetByExternalID(ctx, "dir-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byExt.ID)

	all, err := f.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserRepository_UpsertKeepsLinkedExternalID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.users.UpsertByEmail(ctx, &entity.User{Email: "sam@example.com", Role: role.PM, ExternalID: "dir-1"})
	require.NoError(t, err)

	again, err := f.users.UpsertByEmail(ctx, &entity.User{Email: "sam@example.com", Role: role.PM, ExternalID: "dir-2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "dir-1", again.ExternalID)

	other, err := f.users.GetByExternalID(ctx, "dir-2")
	require.NoError(t, err)
	assert.Nil(t, other)

	local := f.user(t, "local@example.com", role.Manager)
	linked, err := f.users.UpsertByEmail(ctx, &entity.User{Email: "local@example.com", Role: role.Manager, ExternalID: "dir-3"})
	require.NoError(t, err)
	assert.Equal(t, local.ID, linked.ID)
	assert.Equal(t, "dir-3", linked.ExternalID)
}

func TestUserRepository_ConcurrentUpsertSingleRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const writers = 2
	var wg sync.WaitGroup
	ids := make(chan int64, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := f.users.UpsertByEmail(ctx, &entity.User{Email: "race@example.com", FirstName: "Rae", Role: role.Manager})
			if assert.NoError(t, err) {
				ids <- u.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	var got []int64
	for id := range ids {
		got = append(got, id)
	}
	require.Len(t, got, writers)
	assert.Equal(t, got[0], got[1])

	all, err := f.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserRepository_UpsertExternalIDConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.users.UpsertByEmail(ctx, &entity.User{Email: "a@example.com", Role: role.Manager, ExternalID: "dup"})
	require.NoError(t, err)
	_, err = f.users.UpsertByEmail(ctx, &entity.User{Email: "b@example.com", Role: role.Manager, ExternalID: "dup"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestUserRepository_RolesAndActiveRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", role.Admin)
	f.user(t, "pm1@example.com", role.PM)
	f.user(t, "pm2@example.com", role.PM)

	pms, err := f.users.ListByRole(ctx, role.PM)
	require.NoError(t, err)
	assert.Len(t, pms, 2)

	require.NoError(t, f.users.SetActiveRole(ctx, admin.ID, role.OperationsUAE))
	got, err := f.users.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, role.OperationsUAE, got.ActiveRole)

	require.NoError(t, f.users.SetActiveRole(ctx, admin.ID, ""))
	got, err = f.users.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ActiveRole)

	require.NoError(t, f.users.UpdateRole(ctx, pms[0].ID, role.OperationsKSA))
	got, err = f.users.GetByID(ctx, pms[0].ID)
	require.NoError(t, err)
	assert.Equal(t, role.OperationsKSA, got.Role)

	err = f.users.UpdateRole(ctx, 9999, role.PM)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestProjectRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.projects.UpsertByExternalID(ctx, &entity.Project{Name: "Alpha", ExternalID: "p-1", Status: entity.ProjectStatusActive})
	require.NoError(t, err)

	again, err := f.projects.UpsertByExternalID(ctx, &entity.Project{Name: "Alpha 2", ExternalID: "p-1", Status: entity.ProjectStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, "Alpha 2", again.Name)
	assert.Equal(t, entity.ProjectStatusInactive, again.Status)

	all, err := f.projects.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNotificationRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	n := &entity.Notification{
		TravelRequestID: 1,
		EventType:       "request_submitted",
		RecipientEmail:  "pm@example.com",
		RecipientRole:   string(role.PM),
		Subject:         "New travel request",
		Body:            "Riyadh → Dubai",
	}
	require.NoError(t, f.notifications.Create(ctx, n))
	assert.Equal(t, entity.NotificationStatusPending, n.Status)

	require.NoError(t, f.notifications.MarkFailed(ctx, n.ID, "smtp down"))
	failed, err := f.notifications.ListRetryable(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Attempts)
	assert.Equal(t, "smtp down", failed[0].ErrorMessage)

	none, err := f.notifications.ListRetryable(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, f.notifications.MarkSent(ctx, n.ID))
	got, err := f.notifications.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.NotificationStatusSent, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Empty(t, got.ErrorMessage)
	assert.NotNil(t, got.SentAt)
	assert.Equal(t, "Riyadh → Dubai", got.Body)

	sent, err := f.notifications.ListByStatus(ctx, entity.NotificationStatusSent, 10)
	require.NoError(t, err)
	assert.Len(t, sent, 1)
}
