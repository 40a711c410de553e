package errorutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPassesDomainErrorThrough(t *testing.T) {
	original := NewValidationError("bad input", nil)
	classified := Classify(original)

	assert.Equal(t, "VALIDATION_FAILED", classified.Code)
	assert.Equal(t, http.StatusBadRequest, classified.HTTPStatus)
	assert.True(t, classified.Operational)
}

func TestClassifyWrappedDomainError(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), NewForbidden("no"))
	classified := Classify(wrapped)

	assert.Equal(t, "FORBIDDEN", classified.Code)
}

func TestClassifyFiberError(t *testing.T) {
	classified := Classify(fiber.ErrMethodNotAllowed)

	assert.Equal(t, "REQUEST_FAILED", classified.Code)
	assert.Equal(t, http.StatusMethodNotAllowed, classified.HTTPStatus)
}

func TestClassifyNoRows(t *testing.T) {
	classified := Classify(pgx.ErrNoRows)

	assert.Equal(t, "NOT_FOUND", classified.Code)
	assert.Equal(t, http.StatusNotFound, classified.HTTPStatus)
}

func TestClassifyPGErrors(t *testing.T) {
	dup := Classify(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	assert.Equal(t, "DUPLICATE_VALUE", dup.Code)
	assert.Equal(t, http.StatusBadRequest, dup.HTTPStatus)

	cast := Classify(&pgconn.PgError{Code: "22P02"})
	assert.Equal(t, "VALIDATION_FAILED", cast.Code)
}

func TestClassifyJWTErrors(t *testing.T) {
	assert.Equal(t, "TOKEN_EXPIRED", Classify(jwt.ErrTokenExpired).Code)
	assert.Equal(t, "TOKEN_INVALID", Classify(jwt.ErrTokenMalformed).Code)
	assert.Equal(t, "TOKEN_INVALID", Classify(jwt.ErrSignatureInvalid).Code)
}

func TestClassifyUnknownBecomesInternal(t *testing.T) {
	classified := Classify(errors.New("pool exhausted"))

	assert.Equal(t, "INTERNAL_ERROR", classified.Code)
	assert.False(t, classified.Operational)
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestParseVerbosityMode(t *testing.T) {
	assert.Equal(t, ModeSafe, ParseVerbosityMode("production"))
	assert.Equal(t, ModeVerbose, ParseVerbosityMode("development"))
	assert.Equal(t, ModeVerbose, ParseVerbosityMode(""))
}

func TestNormalizeSafeHidesInternalDetail(t *testing.T) {
	n := NewNormalizer(ModeSafe)

	status, body, _ := n.Normalize(errors.New("dsn=postgres://secret"), nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "something went wrong", body["message"])
	_, hasStack := body["stack"]
	assert.False(t, hasStack)
}

func TestNormalizeSafeDisclosesOperational(t *testing.T) {
	n := NewNormalizer(ModeSafe)

	status, body, _ := n.Normalize(NewNotFound("job", nil), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "job not found", body["message"])
}

func TestNormalizeVerboseIncludesCodeAndStack(t *testing.T) {
	n := NewNormalizer(ModeVerbose)

	status, body, domainErr := n.Normalize(errors.New("boom"), []byte("stacktrace"))
	require.NotNil(t, domainErr)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", body["error"])
	assert.Equal(t, "stacktrace", body["stack"])
}

func TestNormalizeIncludesDetails(t *testing.T) {
	n := NewNormalizer(ModeSafe)

	_, body, _ := n.Normalize(NewDuplicateValue("email"), nil)
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "email", details["field"])
}

func TestStatusWord(t *testing.T) {
	assert.Equal(t, "fail", statusWord(http.StatusBadRequest))
	assert.Equal(t, "fail", statusWord(http.StatusNotFound))
	assert.Equal(t, "error", statusWord(http.StatusInternalServerError))
}
