package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/query"
	"github.com/spec-kit/marketplace-service/internal/store"
)

// NewJobsHandler builds the job endpoints. Creation stamps the provider from
// the session; a single job expands its reviews.
func NewJobsHandler(colls *store.Collections, dispatcher events.Dispatcher) *ResourceHandler[*domain.Job] {
	return NewResourceHandler(ResourceConfig[*domain.Job]{
		Collection: colls.Jobs,
		Factory:    func() *domain.Job { return &domain.Job{} },
		BeforeCreate: func(c *fiber.Ctx, job *domain.Job) error {
			if principal, ok := auth.CurrentUser(c); ok {
				job.ProviderID = principal.ID
			}
			return nil
		},
		AfterCreate: func(c *fiber.Ctx, job *domain.Job) {
			if dispatcher == nil {
				return
			}
			_ = dispatcher.Publish(c.Context(), events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventJobCreated,
				SubjectID: job.ID,
				Timestamp: time.Now(),
				Payload:   events.JobCreatedPayload{Name: job.Name, Price: job.Price, ProviderID: job.ProviderID},
			})
		},
		Expand: func(c *fiber.Ctx, job *domain.Job) (map[string]any, error) {
			descriptor := query.Parse(nil).Where(query.Eq("job", job.ID))
			reviews, err := colls.Reviews.Find(c.Context(), descriptor)
			if err != nil {
				return nil, err
			}
			return map[string]any{"reviews": reviews}, nil
		},
	})
}
