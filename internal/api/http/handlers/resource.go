package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/query"
	"github.com/spec-kit/marketplace-service/internal/store"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// ResourceConfig parameterizes a generic CRUD handler over one collection.
type ResourceConfig[T store.Document] struct {
	Collection store.Collection[T]
	Factory    func() T

	// ScopeParam/ScopeField narrow List to a parent relationship when the
	// route is nested, e.g. /jobs/:jobId/reviews scoping on the job field.
	ScopeParam string
	ScopeField string

	// BeforeCreate defaults or overrides fields from request context before
	// validation, e.g. stamping the author from the session principal.
	BeforeCreate func(c *fiber.Ctx, doc T) error
	// AfterCreate runs once the document is persisted.
	AfterCreate func(c *fiber.Ctx, doc T)
	// Expand adds related payload fields to a GetOne response.
	Expand func(c *fiber.Ctx, doc T) (map[string]any, error)
}

// ResourceHandler is the shared CRUD operation set every resource endpoint
// uses. All responses share the success envelope.
type ResourceHandler[T store.Document] struct {
	cfg ResourceConfig[T]
}

// NewResourceHandler builds a handler for one entity kind.
func NewResourceHandler[T store.Document](cfg ResourceConfig[T]) *ResourceHandler[T] {
	return &ResourceHandler[T]{cfg: cfg}
}

// List runs the query pipeline over the collection and returns the page.
func (h *ResourceHandler[T]) List(c *fiber.Ctx) error {
	descriptor := query.Parse(c.Queries())
	if h.cfg.ScopeParam != "" {
		if parent := c.Params(h.cfg.ScopeParam); parent != "" {
			descriptor = descriptor.Where(query.Eq(h.cfg.ScopeField, parent))
		}
	}

	docs, err := h.cfg.Collection.Find(c.Context(), descriptor)
	if err != nil {
		return err
	}
	results := len(docs)
	return sendEnvelope(c, http.StatusOK, docs, &results)
}

// GetOne loads a single document, optionally expanding related entities.
func (h *ResourceHandler[T]) GetOne(c *fiber.Ctx) error {
	doc, err := h.cfg.Collection.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	if h.cfg.Expand == nil {
		return sendEnvelope(c, http.StatusOK, doc, nil)
	}

	payload, err := docAsMap(doc)
	if err != nil {
		return err
	}
	extras, err := h.cfg.Expand(c, doc)
	if err != nil {
		return err
	}
	for key, value := range extras {
		payload[key] = value
	}
	return sendEnvelope(c, http.StatusOK, payload, nil)
}

// Create validates and persists a new document.
func (h *ResourceHandler[T]) Create(c *fiber.Ctx) error {
	doc := h.cfg.Factory()
	if err := c.BodyParser(doc); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if h.cfg.BeforeCreate != nil {
		if err := h.cfg.BeforeCreate(c, doc); err != nil {
			return err
		}
	}

	if err := h.cfg.Collection.Create(c.Context(), doc); err != nil {
		return err
	}
	if h.cfg.AfterCreate != nil {
		h.cfg.AfterCreate(c, doc)
	}
	return sendEnvelope(c, http.StatusCreated, doc, nil)
}

// Update merges a partial payload; the store revalidates the full document.
func (h *ResourceHandler[T]) Update(c *fiber.Ctx) error {
	patch := map[string]any{}
	if err := c.BodyParser(&patch); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	delete(patch, "id")

	doc, err := h.cfg.Collection.UpdateByID(c.Context(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return sendEnvelope(c, http.StatusOK, doc, nil)
}

// Delete removes a document; hard or soft is the collection's decision.
func (h *ResourceHandler[T]) Delete(c *fiber.Ctx) error {
	if err := h.cfg.Collection.DeleteByID(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return sendEnvelope(c, http.StatusNoContent, nil, nil)
}

// sendEnvelope writes the uniform success envelope shared by every resource
// response.
func sendEnvelope(c *fiber.Ctx, status int, data any, results *int) error {
	body := fiber.Map{
		"status": "success",
		"data":   fiber.Map{"data": data},
	}
	if results != nil {
		body["results"] = *results
	}
	return c.Status(status).JSON(body)
}

func docAsMap(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
