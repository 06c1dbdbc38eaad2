package port

import (
	"context"
	"io"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// DirectoryUser is a canonical identity record from the external directory
type DirectoryUser struct {
	ExternalID string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       string `json:"role,omitempty"`
}

// DirectoryProject is a canonical project record from the external directory
type DirectoryProject struct {
	ExternalID string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

// Directory looks up users and projects by external id.
// Unknown ids return nil, nil. Transport failures return an error.
type Directory interface {
	GetUser(ctx context.Context, externalID string) (*DirectoryUser, error)
	GetProject(ctx context.Context, externalID string) (*DirectoryProject, error)
}

// Recipient is one resolved notification target
type Recipient struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NotificationMessage is one formatted message for one recipient
type NotificationMessage struct {
	NotificationID  int64     `json:"notificationId"`
	EventType       string    `json:"eventType"`
	TravelRequestID int64     `json:"travelRequestId"`
	Recipient       Recipient `json:"recipient"`
	Subject         string    `json:"subject"`
	Body            string    `json:"body"`
}

// NotificationSender delivers one message. Errors are delivery failures.
type NotificationSender interface {
	Send(ctx context.Context, msg *NotificationMessage) error
	Name() string
}

// RequestExporter renders a list of requests as a downloadable document
type RequestExporter interface {
	Export(ctx context.Context, w io.Writer, requests []*entity.TravelRequest) error
	ContentType() string
	FileExtension() string
}
