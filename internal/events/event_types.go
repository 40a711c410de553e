package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSignedUp           EventType = "user_signed_up"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordChanged        EventType = "password_changed"
	EventJobCreated             EventType = "job_created"
	EventReviewCreated          EventType = "review_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserSignedUpPayload payload.
type UserSignedUpPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	Email string `json:"email"`
}

// JobCreatedPayload payload.
type JobCreatedPayload struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	ProviderID string  `json:"provider_id"`
}

// ReviewCreatedPayload payload.
type ReviewCreatedPayload struct {
	JobID    string  `json:"job_id"`
	AuthorID string  `json:"author_id"`
	Rating   float64 `json:"rating"`
}
