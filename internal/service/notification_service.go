package service

import (
	"context"
	"fmt"
	"strings"

	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/events"
)

// NotificationService delivers verification and reset tokens to their owners.
// Delivery is strictly fire-and-forget from the publisher's point of view: a
// failed or unconfigured delivery never fails the operation that minted the
// token. Without an SMTP host the service only logs.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to identity events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCredentialRegistered, n.handleCredentialRegistered)
	n.dispatcher.Subscribe(events.EventEmailVerified, n.handleEmailVerified)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
}

func (n *NotificationService) handleCredentialRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CredentialRegisteredPayload)
	if !ok {
		return nil
	}
	n.logger.Info("CredentialRegistered", zap.String("auth_id", event.AuthID), zap.String("email", payload.Email))
	body := fmt.Sprintf("Use this token to verify your email address: %s\nIt expires at %s.",
		payload.VerificationToken, payload.TokenExpiresAt.Format("2006-01-02 15:04:05 MST"))
	n.send(ctx, payload.Email, "Verify your email address", body)
	return nil
}

func (n *NotificationService) handleEmailVerified(_ context.Context, event events.Event) error {
	n.logger.Info("EmailVerified", zap.String("auth_id", event.AuthID))
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("PasswordResetRequested", zap.String("auth_id", event.AuthID))
	body := fmt.Sprintf("Use this token to reset your password: %s\nIt expires at %s.",
		payload.ResetToken, payload.TokenExpiresAt.Format("2006-01-02 15:04:05 MST"))
	n.send(ctx, payload.Email, "Password reset requested", body)
	return nil
}

func (n *NotificationService) handlePasswordChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordChangedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("PasswordChanged", zap.String("auth_id", event.AuthID))
	n.send(ctx, payload.Email, "Your password was changed",
		"Your password was just changed. If this wasn't you, request a password reset immediately.")
	return nil
}

func (n *NotificationService) send(_ context.Context, to, subject, body string) {
	if strings.TrimSpace(n.cfg.SMTPHost) == "" {
		n.logger.Debug("smtp not configured, skipping delivery",
			zap.String("to", to),
			zap.String("subject", subject))
		return
	}

	if err := n.sendSMTP(to, subject, body); err != nil {
		n.logger.Error("email delivery failed", zap.String("to", to), zap.Error(err))
	}
}

func (n *NotificationService) sendSMTP(to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.EmailFrom); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(n.cfg.SMTPPort),
	}
	if n.cfg.SMTPTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if n.cfg.SMTPUsername != "" && n.cfg.SMTPPassword != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.SMTPUsername),
			mail.WithPassword(n.cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(n.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
