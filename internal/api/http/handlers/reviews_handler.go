package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/store"
)

// NewReviewsHandler builds the review endpoints. On nested routes the job id
// comes from the path and the author always comes from the session.
func NewReviewsHandler(colls *store.Collections, dispatcher events.Dispatcher) *ResourceHandler[*domain.Review] {
	return NewResourceHandler(ResourceConfig[*domain.Review]{
		Collection: colls.Reviews,
		Factory:    func() *domain.Review { return &domain.Review{} },
		ScopeParam: "jobId",
		ScopeField: "job",
		BeforeCreate: func(c *fiber.Ctx, review *domain.Review) error {
			if review.JobID == "" {
				review.JobID = c.Params("jobId")
			}
			if principal, ok := auth.CurrentUser(c); ok {
				review.AuthorID = principal.ID
			}
			return nil
		},
		AfterCreate: func(c *fiber.Ctx, review *domain.Review) {
			if dispatcher == nil {
				return
			}
			_ = dispatcher.Publish(c.Context(), events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventReviewCreated,
				SubjectID: review.ID,
				Timestamp: time.Now(),
				Payload:   events.ReviewCreatedPayload{JobID: review.JobID, AuthorID: review.AuthorID, Rating: review.Rating},
			})
		},
	})
}
