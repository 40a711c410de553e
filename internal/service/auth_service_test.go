package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/mail"
	"github.com/spec-kit/marketplace-service/internal/store"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

const resetURLBase = "https://example.com/api/v1/users/resetPassword/"

type fakeMailer struct {
	sent []mail.Message
	fail error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newTestService(t *testing.T) (*AuthService, *store.Collections, *fakeMailer) {
	t.Helper()
	colls := store.NewMemoryCollections()
	mailer := &fakeMailer{}
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   60,
		PasswordResetTTLMinutes: 10,
		BcryptCost:              bcrypt.MinCost,
	}, AuthDependencies{
		Users:  colls.Users,
		Mailer: mailer,
		Logger: zap.NewNop(),
	})
	return svc, colls, mailer
}

func signupTestUser(t *testing.T, svc *AuthService) *domain.User {
	t.Helper()
	user, _, _, err := svc.Signup(context.Background(), "Ann", "ann@example.com", "pass1234", "pass1234")
	require.NoError(t, err)
	return user
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected a domain error, got %v", err)
	assert.Equal(t, code, domainErr.Code)
}

func TestSignupIssuesTokenAndSanitizes(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, token, _, err := svc.Signup(context.Background(), "Ann", "Ann@Example.com", "pass1234", "pass1234")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Empty(t, user.PasswordHash)
}

func TestSignupPasswordMismatch(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, _, err := svc.Signup(context.Background(), "Ann", "ann@example.com", "pass1234", "other")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	signupTestUser(t, svc)

	_, _, _, err := svc.Signup(context.Background(), "Other", "ann@example.com", "pass1234", "pass1234")
	assertErrorCode(t, err, "DUPLICATE_VALUE")
}

func TestLoginSucceeds(t *testing.T) {
	svc, _, _ := newTestService(t)
	signupTestUser(t, svc)

	user, token, _, err := svc.Login(context.Background(), "ann@example.com", "pass1234")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, user.PasswordHash)
}

func TestLoginFailsIdenticallyForBadEmailAndBadPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	signupTestUser(t, svc)

	_, _, _, wrongPassword := svc.Login(context.Background(), "ann@example.com", "nope1234")
	assertErrorCode(t, wrongPassword, "INCORRECT_CREDENTIALS")

	_, _, _, unknownEmail := svc.Login(context.Background(), "ghost@example.com", "pass1234")
	assertErrorCode(t, unknownEmail, "INCORRECT_CREDENTIALS")
}

func TestLoginRequiresBothFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, _, err := svc.Login(context.Background(), "", "pass1234")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func extractResetToken(t *testing.T, mailer *fakeMailer) string {
	t.Helper()
	require.NotEmpty(t, mailer.sent)
	body := mailer.sent[len(mailer.sent)-1].Body
	idx := strings.Index(body, resetURLBase)
	require.GreaterOrEqual(t, idx, 0)
	return body[idx+len(resetURLBase):]
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, colls, mailer := newTestService(t)
	user := signupTestUser(t, svc)

	require.NoError(t, svc.ForgotPassword(context.Background(), "ann@example.com", resetURLBase))
	plaintext := extractResetToken(t, mailer)

	// only the digest is persisted
	stored, err := colls.Users.FindByID(context.Background(), user.ID, store.WithHidden())
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordResetToken)
	assert.NotEqual(t, plaintext, stored.PasswordResetToken)

	reset, token, _, err := svc.ResetPassword(context.Background(), plaintext, "newpass123", "newpass123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, reset.PasswordResetToken)

	_, _, _, err = svc.Login(context.Background(), "ann@example.com", "newpass123")
	require.NoError(t, err)
	_, _, _, err = svc.Login(context.Background(), "ann@example.com", "pass1234")
	assertErrorCode(t, err, "INCORRECT_CREDENTIALS")
}

func TestResetPasswordTokenIsSingleUse(t *testing.T) {
	svc, _, mailer := newTestService(t)
	signupTestUser(t, svc)

	require.NoError(t, svc.ForgotPassword(context.Background(), "ann@example.com", resetURLBase))
	plaintext := extractResetToken(t, mailer)

	_, _, _, err := svc.ResetPassword(context.Background(), plaintext, "newpass123", "newpass123")
	require.NoError(t, err)

	_, _, _, err = svc.ResetPassword(context.Background(), plaintext, "again1234", "again1234")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, colls, mailer := newTestService(t)
	user := signupTestUser(t, svc)

	require.NoError(t, svc.ForgotPassword(context.Background(), "ann@example.com", resetURLBase))
	plaintext := extractResetToken(t, mailer)

	_, err := colls.Users.UpdateByID(context.Background(), user.ID, map[string]any{
		"passwordResetExpires": "2000-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	_, _, _, err = svc.ResetPassword(context.Background(), plaintext, "newpass123", "newpass123")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.ForgotPassword(context.Background(), "ghost@example.com", resetURLBase)
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestForgotPasswordMailFailureRollsBack(t *testing.T) {
	svc, colls, mailer := newTestService(t)
	user := signupTestUser(t, svc)
	mailer.fail = errors.New("smtp down")

	err := svc.ForgotPassword(context.Background(), "ann@example.com", resetURLBase)
	assertErrorCode(t, err, "EMAIL_DELIVERY_FAILED")

	stored, findErr := colls.Users.FindByID(context.Background(), user.ID, store.WithHidden())
	require.NoError(t, findErr)
	assert.Empty(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)
}

func TestUpdatePasswordWrongCurrent(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := signupTestUser(t, svc)

	_, _, _, err := svc.UpdatePassword(context.Background(), user.ID, "wrong", "newpass123", "newpass123")
	assertErrorCode(t, err, "NOT_AUTHENTICATED")
}

func TestUpdatePasswordIssuesFreshValidToken(t *testing.T) {
	svc, colls, _ := newTestService(t)
	user := signupTestUser(t, svc)

	_, token, _, err := svc.UpdatePassword(context.Background(), user.ID, "pass1234", "newpass123", "newpass123")
	require.NoError(t, err)

	_, issuedAt, err := svc.TokenManager().Verify(token)
	require.NoError(t, err)

	stored, err := colls.Users.FindByID(context.Background(), user.ID, store.WithHidden())
	require.NoError(t, err)
	assert.False(t, stored.PasswordChangedSince(issuedAt), "token issued after a password change must stay valid")
}

func TestUpdateMePatchesProfileOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := signupTestUser(t, svc)

	updated, err := svc.UpdateMe(context.Background(), user.ID, "Annie", "", "avatar.png")
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, "ann@example.com", updated.Email)
	assert.Equal(t, "avatar.png", updated.Photo)
}

func TestUpdateMeNothingToUpdate(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := signupTestUser(t, svc)

	_, err := svc.UpdateMe(context.Background(), user.ID, "", "", "")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestDeactivateMeHidesAccount(t *testing.T) {
	svc, colls, _ := newTestService(t)
	user := signupTestUser(t, svc)

	require.NoError(t, svc.DeactivateMe(context.Background(), user.ID))

	_, err := colls.Users.FindByID(context.Background(), user.ID)
	assertErrorCode(t, err, "NOT_FOUND")

	_, _, _, err = svc.Login(context.Background(), "ann@example.com", "pass1234")
	assertErrorCode(t, err, "INCORRECT_CREDENTIALS")
}
