package dto

import (
	"time"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
)

// RegisterResult is returned by a successful registration. Warning is set when
// the account was created but the verification email could not be handed off.
type RegisterResult struct {
	User    *entity.User
	Warning string
}

type SignInResult struct {
	User         *entity.User
	SessionToken string
	ExpiresAt    time.Time
}

type ResendVerificationResult struct {
	AlreadyVerified bool
	Warning         string
}

type RequestPasswordResetResult struct {
	Warning string
}
