package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCredentialRegistered   EventType = "credential_registered"
	EventEmailVerified          EventType = "email_verified"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordChanged        EventType = "password_changed"
	EventProfileCreated         EventType = "profile_created"
	EventProfileDeleted         EventType = "profile_deleted"
)

// Event represents a domain event emitted by the identity services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AuthID    string      `json:"auth_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps id and timestamp for an event.
func NewEvent(eventType EventType, authID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AuthID:    authID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// CredentialRegisteredPayload carries the verification token outward. The
// service never delivers email itself; subscribers do.
type CredentialRegisteredPayload struct {
	Email             string    `json:"email"`
	VerificationToken string    `json:"verification_token"`
	TokenExpiresAt    time.Time `json:"token_expires_at"`
}

// EmailVerifiedPayload payload.
type EmailVerifiedPayload struct {
	Email string `json:"email"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	Email          string    `json:"email"`
	ResetToken     string    `json:"reset_token"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
}

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	Email string `json:"email"`
}

// ProfileCreatedPayload payload.
type ProfileCreatedPayload struct {
	ProfileID string `json:"profile_id"`
	Email     string `json:"email"`
}

// ProfileDeletedPayload payload.
type ProfileDeletedPayload struct {
	ProfileID string `json:"profile_id"`
}
