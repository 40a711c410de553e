package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DomainError standardizes application errors. Operational errors are
// anticipated failures whose message is safe to disclose to the caller;
// anything else is reported as a generic internal error in safe mode.
type DomainError struct {
	Code        string
	Message     string
	HTTPStatus  int
	Operational bool
	Details     map[string]any
	Err         error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs an operational DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Operational: true, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewNotAuthenticated(message string) error {
	return NewDomainError("NOT_AUTHENTICATED", message, http.StatusUnauthorized, nil)
}

func NewTokenInvalid() error {
	return NewDomainError("TOKEN_INVALID", "invalid token, please log in again", http.StatusUnauthorized, nil)
}

func NewTokenExpired() error {
	return NewDomainError("TOKEN_EXPIRED", "token expired, please log in again", http.StatusUnauthorized, nil)
}

func NewIdentityGone() error {
	return NewDomainError("IDENTITY_GONE", "the account owning this token no longer exists", http.StatusUnauthorized, nil)
}

func NewSecretChangedSince() error {
	return NewDomainError("SECRET_CHANGED", "password changed after this token was issued, please log in again", http.StatusUnauthorized, nil)
}

func NewIncorrectCredentials() error {
	return NewDomainError("INCORRECT_CREDENTIALS", "incorrect email or password", http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewDuplicateValue(field string) error {
	return NewDomainError("DUPLICATE_VALUE", fmt.Sprintf("the value for %q already exists, use another value", field),
		http.StatusBadRequest, map[string]any{"field": field})
}

func NewTooManyRequests() error {
	return NewDomainError("TOO_MANY_REQUESTS", "too many requests from this IP, please try again in an hour", http.StatusTooManyRequests, nil)
}

func NewEmailDeliveryFailed(err error) error {
	de := NewDomainError("EMAIL_DELIVERY_FAILED", "there was an error sending the email, try again later", http.StatusInternalServerError, nil)
	de.Err = err
	return de
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "something went wrong",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Classify converts any error into a DomainError, reclassifying known
// storage and token failure shapes into the operational taxonomy first so
// that no raw driver detail reaches a client.
func Classify(err error) *DomainError {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return NewDomainError("REQUEST_FAILED", fiberErr.Message, fiberErr.Code, nil)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return NewDuplicateValue(pgErr.ConstraintName).(*DomainError)
		case "22P02":
			return NewValidationError("invalid identifier", nil).(*DomainError)
		}
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return NewTokenExpired().(*DomainError)
	}
	if errors.Is(err, jwt.ErrTokenMalformed) || errors.Is(err, jwt.ErrSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) || errors.Is(err, jwt.ErrTokenNotValidYet) {
		return NewTokenInvalid().(*DomainError)
	}

	de, _ := NewInternalError(err).(*DomainError)
	return de
}

// ToDomainError is kept as an alias of Classify for call sites that predate it.
func ToDomainError(err error) *DomainError {
	return Classify(err)
}

// VerbosityMode selects how much failure detail leaves the process.
type VerbosityMode int

const (
	// ModeVerbose returns raw error detail, for internal diagnosis only.
	ModeVerbose VerbosityMode = iota
	// ModeSafe discloses operational messages and hides everything else.
	ModeSafe
)

// ParseVerbosityMode maps a deployment environment name onto a mode.
func ParseVerbosityMode(env string) VerbosityMode {
	if env == "production" {
		return ModeSafe
	}
	return ModeVerbose
}

// Normalizer renders every failure into the single client-facing error shape.
type Normalizer struct {
	mode VerbosityMode
}

// NewNormalizer builds a normalizer for the given mode. The mode is fixed at
// construction; nothing here reads global process state.
func NewNormalizer(mode VerbosityMode) *Normalizer {
	return &Normalizer{mode: mode}
}

// Normalize classifies the error and produces the HTTP status plus response
// body. It also reports the classified error so the caller can log it.
func (n *Normalizer) Normalize(err error, stack []byte) (int, map[string]any, *DomainError) {
	domainErr := Classify(err)

	if n.mode == ModeVerbose {
		body := map[string]any{
			"status":  statusWord(domainErr.HTTPStatus),
			"error":   domainErr.Code,
			"message": domainErr.Error(),
		}
		if len(domainErr.Details) > 0 {
			body["details"] = domainErr.Details
		}
		if len(stack) > 0 {
			body["stack"] = string(stack)
		}
		return domainErr.HTTPStatus, body, domainErr
	}

	if domainErr.Operational {
		body := map[string]any{
			"status":  statusWord(domainErr.HTTPStatus),
			"message": domainErr.Message,
		}
		if len(domainErr.Details) > 0 {
			body["details"] = domainErr.Details
		}
		return domainErr.HTTPStatus, body, domainErr
	}

	return http.StatusInternalServerError, map[string]any{
		"status":  "error",
		"message": "something went wrong",
	}, domainErr
}

func statusWord(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}
