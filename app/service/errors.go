package service

import (
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/types"
)

var (
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrEmailTaken            = errors.New("email is already registered")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrWeakPassword          = errors.New("password does not meet policy requirements")
)

// EmailNotVerifiedError is returned by SignIn when the password matched but
// the account has not confirmed its email yet.
type EmailNotVerifiedError struct {
	Email string
}

func (e *EmailNotVerifiedError) Error() string {
	return ErrEmailNotVerified.Error()
}

func (e *EmailNotVerifiedError) Is(target error) bool {
	return target == ErrEmailNotVerified
}

// weakPassword matches both ErrWeakPassword and *types.ValidationError.
func weakPassword(field string, cause error) error {
	return fmt.Errorf("%w: %w", ErrWeakPassword, types.NewValidationError(field, cause.Error()))
}
