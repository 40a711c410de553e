package domain

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// TourDifficulty enumerates tour difficulty levels.
type TourDifficulty string

const (
	TourDifficultyEasy      TourDifficulty = "easy"
	TourDifficultyMedium    TourDifficulty = "medium"
	TourDifficultyDifficult TourDifficulty = "difficult"
)

// Tour is a guided package with scheduled start dates.
type Tour struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"name"`
	Duration     int            `json:"duration"`
	MaxGroupSize int            `json:"maxGroupSize"`
	Difficulty   TourDifficulty `json:"difficulty"`
	Price        float64        `json:"price"`
	Summary      string         `json:"summary"`
	Description  string         `json:"description,omitempty"`
	ImageCover   string         `json:"imageCover,omitempty"`
	StartDates   []time.Time    `json:"startDates,omitempty"`
	Active       bool           `json:"active"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// DocID returns the document id.
func (t *Tour) DocID() string { return t.ID }

// SetDocID assigns the document id.
func (t *Tour) SetDocID(id string) { t.ID = id }

// Touch records the creation time when unset and defaults the active flag.
func (t *Tour) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
		t.Active = true
	}
}

// Validate checks the document against its schema rules.
func (t *Tour) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	if t.Duration <= 0 {
		return apperrors.NewValidationError("duration must be positive", nil)
	}
	if t.Price <= 0 {
		return apperrors.NewValidationError("price must be positive", nil)
	}
	switch t.Difficulty {
	case TourDifficultyEasy, TourDifficultyMedium, TourDifficultyDifficult:
	default:
		return apperrors.NewValidationError("difficulty must be easy, medium or difficult", nil)
	}
	if strings.TrimSpace(t.Summary) == "" {
		return apperrors.NewValidationError("summary required", nil)
	}
	return nil
}
