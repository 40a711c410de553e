package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/store"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// SessionResolver turns an inbound token into a loaded account. Verification
// alone is not enough: the account must still exist and must not have
// changed its password at or after the token's issue time.
type SessionResolver struct {
	tokens     *TokenManager
	users      store.Collection[*domain.User]
	cookieName string
}

// NewSessionResolver constructs the resolver.
func NewSessionResolver(tokens *TokenManager, users store.Collection[*domain.User], cookieName string) *SessionResolver {
	return &SessionResolver{tokens: tokens, users: users, cookieName: cookieName}
}

// Require enforces authentication for protected routes and attaches the
// resolved account to the request.
func (r *SessionResolver) Require(c *fiber.Ctx) error {
	user, err := r.resolve(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, user)
	return c.Next()
}

// Optional resolves the caller on a best-effort basis. Every failure means
// "anonymous"; the request chain is never interrupted.
func (r *SessionResolver) Optional(c *fiber.Ctx) error {
	if user, err := r.resolve(c); err == nil {
		c.Locals(principalKey, user)
	}
	return c.Next()
}

func (r *SessionResolver) resolve(c *fiber.Ctx) (*domain.User, error) {
	token := extractToken(c, r.cookieName)
	if token == "" {
		return nil, apperrors.NewNotAuthenticated("you are not logged in, please log in to get access")
	}

	userID, issuedAt, err := r.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := r.users.FindByID(c.Context(), userID)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Operational {
			return nil, apperrors.NewIdentityGone()
		}
		return nil, err
	}

	if user.PasswordChangedSince(issuedAt) {
		return nil, apperrors.NewSecretChangedSince()
	}
	return user, nil
}

// extractToken prefers the Authorization bearer header and falls back to the
// session cookie.
func extractToken(c *fiber.Ctx, cookieName string) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Cookies(cookieName)
}

// CurrentUser retrieves the account attached by Require or Optional.
func CurrentUser(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}
