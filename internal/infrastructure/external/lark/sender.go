package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
)

const receiveIDTypeEmail = "email"

// Sender delivers notifications as Lark rich-text messages addressed by email
type Sender struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewSender creates a Lark notification sender
func NewSender(client *SDKClient, logger *zap.Logger) *Sender {
	return &Sender{
		messages: client.messages(),
		logger:   logger,
	}
}

// Name implements port.NotificationSender
func (s *Sender) Name() string {
	return "lark"
}

// Send implements port.NotificationSender
func (s *Sender) Send(ctx context.Context, msg *port.NotificationMessage) error {
	if msg == nil || msg.Recipient.Email == "" {
		return fmt.Errorf("recipient email cannot be empty")
	}

	body, err := buildRequestBody(msg)
	if err != nil {
		return err
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeEmail).
		Body(body).
		Build()

	resp, err := s.messages.Create(ctx, req)
	if err != nil {
		s.logger.Error("Failed to send message",
			zap.String("recipient", msg.Recipient.Email),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		s.logger.Error("API returned failure",
			zap.String("recipient", msg.Recipient.Email),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	s.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("recipient", msg.Recipient.Email),
		zap.String("event_type", msg.EventType))
	return nil
}

// buildRequestBody addresses msg to its recipient's email as a post message
func buildRequestBody(msg *port.NotificationMessage) (*larkIm.CreateMessageReqBody, error) {
	content, err := postContent(msg.Subject, msg.Body)
	if err != nil {
		return nil, err
	}
	return larkIm.NewCreateMessageReqBodyBuilder().
		ReceiveId(msg.Recipient.Email).
		MsgType(larkIm.MsgTypePost).
		Content(content).
		Build(), nil
}

type postElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type postBody struct {
	Title   string          `json:"title"`
	Content [][]postElement `json:"content"`
}

// postContent renders subject and body as a Lark "post" payload
func postContent(subject, body string) (string, error) {
	payload := map[string]postBody{
		"en_us": {
			Title:   subject,
			Content: [][]postElement{{{Tag: "text", Text: body}}},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal post content: %w", err)
	}
	return string(data), nil
}

// Verify interface compliance
var _ port.NotificationSender = (*Sender)(nil)
