package domain

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// Review is an authored rating of a job.
type Review struct {
	ID        string    `json:"id,omitempty"`
	Review    string    `json:"review"`
	Rating    float64   `json:"rating"`
	JobID     string    `json:"job"`
	AuthorID  string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocID returns the document id.
func (r *Review) DocID() string { return r.ID }

// SetDocID assigns the document id.
func (r *Review) SetDocID(id string) { r.ID = id }

// Touch records the creation time when unset.
func (r *Review) Touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
}

// Validate checks the document against its schema rules.
func (r *Review) Validate() error {
	if strings.TrimSpace(r.Review) == "" {
		return apperrors.NewValidationError("review required", nil)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return apperrors.NewValidationError("rating must be between 1.0 and 5.0", nil)
	}
	if r.JobID == "" {
		return apperrors.NewValidationError("job required", nil)
	}
	if r.AuthorID == "" {
		return apperrors.NewValidationError("author required", nil)
	}
	return nil
}
