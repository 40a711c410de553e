package domain

import (
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// User is an account that can authenticate and own jobs or reviews.
//
// PasswordHash, the reset-token digest and the password/reset timestamps are
// persisted but hidden from API responses by the users collection; the reset
// token plaintext is never stored anywhere.
type User struct {
	ID                   string     `json:"id,omitempty"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Photo                string     `json:"photo,omitempty"`
	Role                 Role       `json:"role"`
	PasswordHash         string     `json:"passwordHash,omitempty"`
	PasswordChangedAt    *time.Time `json:"passwordChangedAt,omitempty"`
	PasswordResetToken   string     `json:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `json:"passwordResetExpires,omitempty"`
	Active               bool       `json:"active"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// NewUser builds an account from signup input. The password confirmation must
// equal the password; it is checked here and never stored. The caller hashes
// the password and sets PasswordHash before persisting.
func NewUser(name, email, password, passwordConfirm string, role Role) (*User, error) {
	user := &User{
		Name:   strings.TrimSpace(name),
		Email:  NormalizeEmail(email),
		Role:   role,
		Active: true,
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	if err := ValidatePassword(password, passwordConfirm); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// ValidatePassword checks a new password and its confirmation. The
// confirmation must equal the password; it is compared here and never stored.
func ValidatePassword(password, confirm string) error {
	if password == "" {
		return apperrors.NewValidationError("password required", nil)
	}
	if len(password) < 6 {
		return apperrors.NewValidationError("password must have at least 6 characters", nil)
	}
	if password != confirm {
		return apperrors.NewValidationError("passwords are not the same", nil)
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address for unique comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DocID returns the document id.
func (u *User) DocID() string { return u.ID }

// SetDocID assigns the document id.
func (u *User) SetDocID(id string) { u.ID = id }

// Touch records the creation time when unset.
func (u *User) Touch(now time.Time) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
}

// Validate checks the document against its schema rules.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	if u.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return apperrors.NewValidationError("invalid email", nil)
	}
	if !u.Role.Valid() {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": string(u.Role)})
	}
	return nil
}

// PasswordChangedSince reports whether the password changed at or after the
// given token issue time. A token issued at the exact change instant is stale.
func (u *User) PasswordChangedSince(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return !u.PasswordChangedAt.Before(issuedAt)
}

// ClearPasswordReset drops any outstanding reset token state.
func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
}
