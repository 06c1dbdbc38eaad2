package service

import (
	"context"
	"io"
	"sync"

	"github.com/garyjia/travel-approval/internal/application/filter"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

type mockRequestRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.TravelRequest, error)
	listFunc    func(ctx context.Context, f filter.Filter) ([]*entity.TravelRequest, error)
	deleteFunc  func(ctx context.Context, id int64) (bool, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.TravelRequest) error {
	req.ID = 1
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.TravelRequest, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRequestRepo) List(ctx context.Context, f filter.Filter) ([]*entity.TravelRequest, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, f)
	}
	return []*entity.TravelRequest{}, nil
}

func (m *mockRequestRepo) UpdateTransition(ctx context.Context, req *entity.TravelRequest, expectedStatus string) (bool, error) {
	return true, nil
}

func (m *mockRequestRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return true, nil
}

type mockBookingRepo struct {
	createFunc func(ctx context.Context, b *entity.Booking) error
	bookings   []*entity.Booking
}

func (m *mockBookingRepo) Create(ctx context.Context, b *entity.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, b)
	}
	b.ID = int64(len(m.bookings) + 1)
	m.bookings = append(m.bookings, b)
	return nil
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id int64) (*entity.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepo) ListByRequestID(ctx context.Context, requestID int64) ([]*entity.Booking, error) {
	var result []*entity.Booking
	for _, b := range m.bookings {
		if b.TravelRequestID == requestID {
			result = append(result, b)
		}
	}
	return result, nil
}

type mockUserRepo struct {
	getByIDFunc         func(ctx context.Context, id int64) (*entity.User, error)
	getByExternalIDFunc func(ctx context.Context, externalID string) (*entity.User, error)
	listByRoleFunc      func(ctx context.Context, r role.Role) ([]*entity.User, error)
	upsertByEmailFunc   func(ctx context.Context, user *entity.User) (*entity.User, error)
	setActiveRoleFunc   func(ctx context.Context, id int64, r role.Role) error
	updateRoleFunc      func(ctx context.Context, id int64, r role.Role) error
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return nil, nil
}

func (m *mockUserRepo) GetByExternalID(ctx context.Context, externalID string) (*entity.User, error) {
	if m.getByExternalIDFunc != nil {
		return m.getByExternalIDFunc(ctx, externalID)
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*entity.User, error) {
	return []*entity.User{}, nil
}

func (m *mockUserRepo) ListByRole(ctx context.Context, r role.Role) ([]*entity.User, error) {
	if m.listByRoleFunc != nil {
		return m.listByRoleFunc(ctx, r)
	}
	return nil, nil
}

func (m *mockUserRepo) UpsertByEmail(ctx context.Context, user *entity.User) (*entity.User, error) {
	if m.upsertByEmailFunc != nil {
		return m.upsertByEmailFunc(ctx, user)
	}
	user.ID = 100
	return user, nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id int64, r role.Role) error {
	if m.updateRoleFunc != nil {
		return m.updateRoleFunc(ctx, id, r)
	}
	return nil
}

func (m *mockUserRepo) SetActiveRole(ctx context.Context, id int64, r role.Role) error {
	if m.setActiveRoleFunc != nil {
		return m.setActiveRoleFunc(ctx, id, r)
	}
	return nil
}

type mockProjectRepo struct {
	getByIDFunc         func(ctx context.Context, id int64) (*entity.Project, error)
	getByExternalIDFunc func(ctx context.Context, externalID string) (*entity.Project, error)
	upsertFunc          func(ctx context.Context, p *entity.Project) (*entity.Project, error)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockProjectRepo) GetByExternalID(ctx context.Context, externalID string) (*entity.Project, error) {
	if m.getByExternalIDFunc != nil {
		return m.getByExternalIDFunc(ctx, externalID)
	}
	return nil, nil
}

func (m *mockProjectRepo) List(ctx context.Context) ([]*entity.Project, error) {
	return []*entity.Project{}, nil
}

func (m *mockProjectRepo) UpsertByExternalID(ctx context.Context, p *entity.Project) (*entity.Project, error) {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, p)
	}
	p.ID = 200
	return p, nil
}

// memNotificationRepo is an in-memory NotificationRepository
type memNotificationRepo struct {
	mu     sync.Mutex
	rows   map[int64]*entity.Notification
	nextID int64
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{rows: make(map[int64]*entity.Notification)}
}

func (m *memNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	n.ID = m.nextID
	c := *n
	m.rows[n.ID] = &c
	return nil
}

func (m *memNotificationRepo) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.rows[id]; ok {
		c := *n
		return &c, nil
	}
	return nil, nil
}

func (m *memNotificationRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for id := int64(1); id <= m.nextID; id++ {
		if n, ok := m.rows[id]; ok && n.Status == status {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memNotificationRepo) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]*entity.Notification, error) {
	failed, _ := m.ListByStatus(ctx, entity.NotificationStatusFailed, limit)
	var out []*entity.Notification
	for _, n := range failed {
		if n.Attempts < maxAttempts {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotificationRepo) MarkSent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.rows[id]
	n.Status = entity.NotificationStatusSent
	n.Attempts++
	n.ErrorMessage = ""
	return nil
}

func (m *memNotificationRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.rows[id]
	n.Status = entity.NotificationStatusFailed
	n.Attempts++
	n.ErrorMessage = errMsg
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockDirectory struct {
	getUserFunc    func(ctx context.Context, externalID string) (*port.DirectoryUser, error)
	getProjectFunc func(ctx context.Context, externalID string) (*port.DirectoryProject, error)
	calls          int
}

func (m *mockDirectory) GetUser(ctx context.Context, externalID string) (*port.DirectoryUser, error) {
	m.calls++
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, externalID)
	}
	return nil, nil
}

func (m *mockDirectory) GetProject(ctx context.Context, externalID string) (*port.DirectoryProject, error) {
	m.calls++
	if m.getProjectFunc != nil {
		return m.getProjectFunc(ctx, externalID)
	}
	return nil, nil
}

type mockSender struct {
	mu       sync.Mutex
	sendFunc func(ctx context.Context, msg *port.NotificationMessage) error
	sent     []*port.NotificationMessage
}

func (m *mockSender) Send(ctx context.Context, msg *port.NotificationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSender) Name() string { return "mock" }

type mockExporter struct {
	exported []*entity.TravelRequest
}

func (m *mockExporter) Export(ctx context.Context, w io.Writer, requests []*entity.TravelRequest) error {
	m.exported = requests
	_, err := w.Write([]byte("xlsx"))
	return err
}

func (m *mockExporter) ContentType() string   { return "application/octet-stream" }
func (m *mockExporter) FileExtension() string { return "xlsx" }

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func int64Ptr(v int64) *int64 { return &v }
