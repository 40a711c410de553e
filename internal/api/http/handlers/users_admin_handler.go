package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/store"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// NewUsersAdminHandler builds the admin-only account CRUD. Creation is not
// served here because it would bypass password hashing; accounts are created
// through signup.
func NewUsersAdminHandler(colls *store.Collections) *ResourceHandler[*domain.User] {
	return NewResourceHandler(ResourceConfig[*domain.User]{
		Collection: colls.Users,
		Factory:    func() *domain.User { return &domain.User{} },
	})
}

// CreateUserNotSupported mirrors the signup-only account creation policy.
func CreateUserNotSupported(c *fiber.Ctx) error {
	return apperrors.NewValidationError("this route is not for account creation, use /signup", nil)
}
