package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/event"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

func notificationUsers() *mockUserRepo {
	all := directoryUsers()
	return &mockUserRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.User, error) {
			for _, u := range all {
				if u.ID == id {
					return u, nil
				}
			}
			return nil, nil
		},
		listByRoleFunc: func(ctx context.Context, r role.Role) ([]*entity.User, error) {
			var out []*entity.User
			for _, u := range all {
				if u.Role == r {
					out = append(out, u)
				}
			}
			return out, nil
		},
	}
}

func sampleRequest() *entity.TravelRequest {
	return &entity.TravelRequest{
		ID:            9,
		RequesterID:   1,
		TravelerID:    2,
		Origin:        "Dubai",
		Destination:   "Riyadh",
		DepartureDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ReturnDate:    time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		Purpose:       entity.PurposeDelivery,
		Status:        entity.StatusSubmitted,
	}
}

var adminActor = &role.Actor{ID: 99, Role: role.Admin}

func TestNotificationService_SubmittedNotifiesPMs(t *testing.T) {
	repo := newMemNotificationRepo()
	sender := &mockSender{}
	svc := NewNotificationService(notificationUsers(), repo, sender, &mockLogger{})

	evt := event.NewEvent(event.TypeRequestSubmitted, 1, sampleRequest(), nil)
	require.NoError(t, svc.HandleEvent(context.Background(), evt))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "pm1@example.com", sender.sent[0].Recipient.Email)
	assert.Contains(t, sender.sent[0].Subject, "#9")
	assert.Contains(t, sender.sent[0].Body, "Dubai → Riyadh")

	sent, _ := repo.ListByStatus(context.Background(), entity.NotificationStatusSent, 10)
	assert.Len(t, sent, 2)
}

func TestNotificationService_FailureIsRecordedPerRecipient(t *testing.T) {
	repo := newMemNotificationRepo()
	sender := &mockSender{sendFunc: func(ctx context.Context, msg *port.NotificationMessage) error {
		if msg.Recipient.Email == "pm2@example.com" {
			return errors.New("mailbox unavailable")
		}
		return nil
	}}
	svc := NewNotificationService(notificationUsers(), repo, sender, &mockLogger{})

	evt := event.NewEvent(event.TypeRequestSubmitted, 1, sampleRequest(), nil)
	err := svc.HandleEvent(context.Background(), evt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDependencyUnavailable))

	failed, _ := repo.ListByStatus(context.Background(), entity.NotificationStatusFailed, 10)
	require.Len(t, failed, 1)
	assert.Equal(t, "pm2@example.com", failed[0].RecipientEmail)
	assert.Equal(t, 1, failed[0].Attempts)
	assert.Equal(t, "mailbox unavailable", failed[0].ErrorMessage)

	sent, _ := repo.ListByStatus(context.Background(), entity.NotificationStatusSent, 10)
	assert.Len(t, sent, 1)
}

func TestNotificationService_CompletedNotifiesRequesterAndDecider(t *testing.T) {
	repo := newMemNotificationRepo()
	sender := &mockSender{}
	svc := NewNotificationService(notificationUsers(), repo, sender, &mockLogger{})

	req := sampleRequest()
	req.Status = entity.StatusOperationsCompleted
	req.AssignedOperationsTeam = "operations_ksa"
	req.PMDecidedBy = int64Ptr(3)
	cost := decimal.NewFromInt(2500)
	req.ActualTotalCost = &cost

	evt := event.NewEvent(event.TypeBookingCompleted, 6, req, map[string]interface{}{"booking_count": 2})
	require.NoError(t, svc.HandleEvent(context.Background(), evt))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "requester@example.com", sender.sent[0].Recipient.Email)
	assert.Equal(t, "pm1@example.com", sender.sent[1].Recipient.Email)
	assert.Contains(t, sender.sent[0].Body, "Total cost: 2500.00")
	assert.Contains(t, sender.sent[0].Body, "Bookings: 2")
}

func TestNotificationService_SendTimeout(t *testing.T) {
	repo := newMemNotificationRepo()
	sender := &mockSender{sendFunc: func(ctx context.Context, msg *port.NotificationMessage) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	svc := NewNotificationService(notificationUsers(), repo, sender, &mockLogger{}, WithSendTimeout(10*time.Millisecond))

	req := sampleRequest()
	req.Status = entity.StatusPMRejected
	req.PMRejectionReason = "budget"
	evt := event.NewEvent(event.TypeRequestRejected, 3, req, nil)

	err := svc.HandleEvent(context.Background(), evt)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	failed, _ := repo.ListByStatus(context.Background(), entity.NotificationStatusFailed, 10)
	assert.Len(t, failed, 2)
}

// deadlineNotificationRepo fails writes whose context is already done, like a real store
type deadlineNotificationRepo struct {
	*memNotificationRepo
}

func (r deadlineNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memNotificationRepo.Create(ctx, n)
}

func (r deadlineNotificationRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memNotificationRepo.MarkFailed(ctx, id, errMsg)
}

func TestNotificationService_HandlerDeadlineDoesNotDropRecipients(t *testing.T) {
	var pms []*entity.User
	for i := int64(1); i <= 6; i++ {
		pms = append(pms, &entity.User{ID: 40 + i, Email: fmt.Sprintf("pm%d@example.com", 40+i), Role: role.PM})
	}
	users := &mockUserRepo{listByRoleFunc: func(ctx context.Context, r role.Role) ([]*entity.User, error) {
		return pms, nil
	}}

	var attempts atomic.Int32
	sender := &mockSender{sendFunc: func(ctx context.Context, msg *port.NotificationMessage) error {
		attempts.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}}
	repo := newMemNotificationRepo()
	sendTimeout := 10 * time.Millisecond
	svc := NewNotificationService(users, deadlineNotificationRepo{repo}, sender, &mockLogger{}, WithSendTimeout(sendTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), 4*sendTimeout)
	defer cancel()
	err := svc.HandleEvent(ctx, event.NewEvent(event.TypeRequestSubmitted, 1, sampleRequest(), nil))
	require.Error(t, err)

	assert.Equal(t, int32(6), attempts.Load())
	failed, _ := repo.ListByStatus(context.Background(), entity.NotificationStatusFailed, 10)
	assert.Len(t, failed, 6)
	pending, _ := repo.ListByStatus(context.Background(), entity.NotificationStatusPending, 10)
	assert.Empty(t, pending)
}

func TestNotificationService_RegisterSubscribesAllEvents(t *testing.T) {
	d := dispatcher.NewDispatcher()
	svc := NewNotificationService(notificationUsers(), newMemNotificationRepo(), &mockSender{}, &mockLogger{})
	svc.Register(d)

	for _, typ := range []event.Type{
		event.TypeRequestSubmitted,
		event.TypeRequestApproved,
		event.TypeRequestRejected,
		event.TypeBookingCompleted,
	} {
		assert.Equal(t, []string{"notification." + typ.String()}, d.Subscribers(typ))
	}
}

func TestNotificationService_Retry(t *testing.T) {
	ctx := context.Background()
	repo := newMemNotificationRepo()
	failing := true
	sender := &mockSender{sendFunc: func(ctx context.Context, msg *port.NotificationMessage) error {
		if failing {
			return errors.New("broker down")
		}
		return nil
	}}
	svc := NewNotificationService(notificationUsers(), repo, sender, &mockLogger{})

	req := sampleRequest()
	req.TravelerID = 1
	req.Status = entity.StatusPMRejected
	_ = svc.HandleEvent(ctx, event.NewEvent(event.TypeRequestRejected, 3, req, nil))

	failed, _ := repo.ListByStatus(ctx, entity.NotificationStatusFailed, 10)
	require.Len(t, failed, 1)
	id := failed[0].ID

	_, err := svc.Retry(ctx, &role.Actor{ID: 3, Role: role.PM}, id)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = svc.Retry(ctx, adminActor, 404)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	failing = false
	n, err := svc.Retry(ctx, adminActor, id)
	require.NoError(t, err)
	assert.Equal(t, entity.NotificationStatusSent, n.Status)
	assert.Equal(t, 2, n.Attempts)

	_, err = svc.Retry(ctx, adminActor, id)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestNotificationService_RetryFailedRespectsMaxAttempts(t *testing.T) {
	ctx := context.Background()
	repo := newMemNotificationRepo()
	sender := &mockSender{}
	svc := NewNotificationService(notificationUsers(), repo, sender, &mockLogger{})

	for i, attempts := range []int{1, 3} {
		n := &entity.Notification{RecipientEmail: "pm1@example.com", Status: entity.NotificationStatusFailed, Attempts: attempts}
		require.NoError(t, repo.Create(ctx, n), i)
	}

	delivered, err := svc.RetryFailed(ctx, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	stillFailed, _ := repo.ListByStatus(ctx, entity.NotificationStatusFailed, 10)
	require.Len(t, stillFailed, 1)
	assert.Equal(t, 3, stillFailed[0].Attempts)
}

func TestNotificationService_List(t *testing.T) {
	svc := NewNotificationService(notificationUsers(), newMemNotificationRepo(), &mockSender{}, &mockLogger{})

	_, err := svc.List(context.Background(), adminActor, "BOUNCED", 10)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = svc.List(context.Background(), &role.Actor{ID: 1, Role: role.Manager}, "", 10)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	list, err := svc.List(context.Background(), adminActor, "", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
