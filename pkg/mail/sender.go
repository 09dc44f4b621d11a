package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/stepshop/storefront-backend/pkg/config"
	"github.com/stepshop/storefront-backend/pkg/logger"
)

// Message is a single outbound email.
type Message struct {
	ToEmail   string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridSender delivers mail through the SendGrid v3 API.
type SendgridSender struct {
	client    *sendgrid.Client
	fromEmail string
	logger    *logger.Logger
}

// NewSendgridSender validates the config and builds a sender.
func NewSendgridSender(cfg config.SendgridConfig, logg *logger.Logger) (*SendgridSender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from email is required")
	}
	return &SendgridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.DefaultFrom,
		logger:    logg,
	}, nil
}

// Send delivers a single message. Non-2xx API responses surface as errors.
func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return errors.New("recipient email is required")
	}

	from := sgmail.NewEmail("", s.fromEmail)
	to := sgmail.NewEmail("", msg.ToEmail)
	email := sgmail.NewSingleEmail(from, msg.Subject, to, msg.PlainBody, msg.HTMLBody)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}

	if s.logger != nil {
		s.logger.Info(s.logger.WithField(ctx, "subject", msg.Subject), "email dispatched")
	}
	return nil
}
