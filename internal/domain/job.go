package domain

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// Job is a service offered by a provider account.
type Job struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	ProviderID  string    `json:"provider"`
	Address     string    `json:"address,omitempty"`
	ImageCover  string    `json:"imageCover,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DocID returns the document id.
func (j *Job) DocID() string { return j.ID }

// SetDocID assigns the document id.
func (j *Job) SetDocID(id string) { j.ID = id }

// Touch records the creation time when unset and defaults the active flag.
func (j *Job) Touch(now time.Time) {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
		j.Active = true
	}
}

// Validate checks the document against its schema rules.
func (j *Job) Validate() error {
	name := strings.TrimSpace(j.Name)
	if name == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	if len(name) > 40 {
		return apperrors.NewValidationError("name must have at most 40 characters", nil)
	}
	if strings.TrimSpace(j.Description) == "" {
		return apperrors.NewValidationError("description required", nil)
	}
	if j.Price <= 0 {
		return apperrors.NewValidationError("price must be positive", nil)
	}
	if j.ProviderID == "" {
		return apperrors.NewValidationError("provider required", nil)
	}
	return nil
}
