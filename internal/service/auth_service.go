package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/mail"
	"github.com/spec-kit/marketplace-service/internal/query"
	"github.com/spec-kit/marketplace-service/internal/store"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// AuthService coordinates signup, login and password lifecycle flows.
type AuthService struct {
	users      store.Collection[*domain.User]
	tokenMgr   *auth.TokenManager
	mailer     mail.Mailer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	Users      store.Collection[*domain.User]
	Mailer     mail.Mailer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.Users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		mailer:     deps.Mailer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: cfg.BcryptCost,
		resetTTL:   time.Duration(cfg.PasswordResetTTLMinutes) * time.Minute,
		now:        time.Now,
	}
}

// Signup creates a new account and logs it in. The role is always "user";
// privileged roles are assigned through the admin surface only.
func (s *AuthService) Signup(ctx context.Context, name, email, password, passwordConfirm string) (*domain.User, string, time.Time, error) {
	user, err := domain.NewUser(name, email, password, passwordConfirm, domain.RoleUser)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.EventUserSignedUp, user.ID, events.UserSignedUpPayload{Name: user.Name, Email: user.Email})

	token, exp, err := s.tokenMgr.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return sanitize(user), token, exp, nil
}

// Login authenticates by email and password. An unknown email and a wrong
// password fail identically so the response reveals neither.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("please provide email and password", nil)
	}

	user, err := s.users.FindOne(ctx, []query.Condition{query.Eq("email", domain.NormalizeEmail(email))}, store.WithHidden())
	if err != nil || !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, "", time.Time{}, apperrors.NewIncorrectCredentials()
	}

	token, exp, err := s.tokenMgr.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return sanitize(user), token, exp, nil
}

// ForgotPassword issues a single-use reset token and mails its plaintext to
// the account owner. Only the token's digest is persisted; a delivery
// failure rolls the token back.
func (s *AuthService) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	user, err := s.users.FindOne(ctx, []query.Condition{query.Eq("email", domain.NormalizeEmail(email))})
	if err != nil {
		return apperrors.NewNotFound("user with this email", nil)
	}

	plaintext := uuid.NewString()
	expires := s.now().Add(s.resetTTL)
	patch := map[string]any{
		"passwordResetToken":   hashResetToken(plaintext),
		"passwordResetExpires": expires,
	}
	if _, err := s.users.UpdateByID(ctx, user.ID, patch); err != nil {
		return err
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: "Your password reset token (valid for 10 minutes)",
		Body:    "Forgot your password? Submit a new password to: " + resetURLBase + plaintext,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		rollback := map[string]any{"passwordResetToken": nil, "passwordResetExpires": nil}
		if _, rbErr := s.users.UpdateByID(ctx, user.ID, rollback); rbErr != nil {
			s.logger.Error("failed to roll back reset token", zap.Error(rbErr))
		}
		return apperrors.NewEmailDeliveryFailed(err)
	}

	s.publish(ctx, events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{Email: user.Email})
	return nil
}

// ResetPassword consumes a reset token and sets a new password, logging the
// account in.
func (s *AuthService) ResetPassword(ctx context.Context, plaintext, password, passwordConfirm string) (*domain.User, string, time.Time, error) {
	user, err := s.users.FindOne(ctx,
		[]query.Condition{query.Eq("passwordResetToken", hashResetToken(plaintext))},
		store.WithHidden())
	if err != nil || user.PasswordResetExpires == nil || !s.now().Before(*user.PasswordResetExpires) {
		return nil, "", time.Time{}, apperrors.NewValidationError("token is invalid or has expired", nil)
	}

	updated, err := s.applyPasswordChange(ctx, user.ID, password, passwordConfirm)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, nil)

	token, exp, err := s.tokenMgr.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return sanitize(updated), token, exp, nil
}

// UpdatePassword changes the password of a logged-in account after verifying
// the current one, then issues a fresh token.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, currentPassword, password, passwordConfirm string) (*domain.User, string, time.Time, error) {
	user, err := s.users.FindByID(ctx, userID, store.WithHidden())
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !auth.VerifyPassword(user.PasswordHash, currentPassword) {
		return nil, "", time.Time{}, apperrors.NewNotAuthenticated("your current password is wrong")
	}

	updated, err := s.applyPasswordChange(ctx, user.ID, password, passwordConfirm)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, nil)

	token, exp, err := s.tokenMgr.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return sanitize(updated), token, exp, nil
}

// UpdateMe patches profile fields only; password changes go through
// UpdatePassword.
func (s *AuthService) UpdateMe(ctx context.Context, userID, name, email, photo string) (*domain.User, error) {
	patch := map[string]any{}
	if name != "" {
		patch["name"] = name
	}
	if email != "" {
		patch["email"] = domain.NormalizeEmail(email)
	}
	if photo != "" {
		patch["photo"] = photo
	}
	if len(patch) == 0 {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}

	updated, err := s.users.UpdateByID(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	return sanitize(updated), nil
}

// DeactivateMe soft-deletes the account; reads stop returning it but the
// record remains.
func (s *AuthService) DeactivateMe(ctx context.Context, userID string) error {
	return s.users.DeleteByID(ctx, userID)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// applyPasswordChange hashes and persists a new password, stamping the
// change time and clearing any reset-token state. The stamp is backdated one
// second so the token issued right after the change is not itself stale.
func (s *AuthService) applyPasswordChange(ctx context.Context, userID, password, passwordConfirm string) (*domain.User, error) {
	if err := domain.ValidatePassword(password, passwordConfirm); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	patch := map[string]any{
		"passwordHash":         hash,
		"passwordChangedAt":    s.now().Add(-time.Second),
		"passwordResetToken":   nil,
		"passwordResetExpires": nil,
	}
	return s.users.UpdateByID(ctx, userID, patch)
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// hashResetToken digests a reset token plaintext for storage and lookup; the
// plaintext itself never touches the database.
func hashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func sanitize(user *domain.User) *domain.User {
	user.PasswordHash = ""
	user.PasswordChangedAt = nil
	user.ClearPasswordReset()
	return user
}
