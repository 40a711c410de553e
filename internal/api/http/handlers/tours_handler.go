package handlers

import (
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/store"
)

// NewToursHandler builds the tour endpoints; tours are plain CRUD.
func NewToursHandler(colls *store.Collections) *ResourceHandler[*domain.Tour] {
	return NewResourceHandler(ResourceConfig[*domain.Tour]{
		Collection: colls.Tours,
		Factory:    func() *domain.Tour { return &domain.Tour{} },
	})
}
