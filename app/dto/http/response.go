package http

import (
	"time"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Email  string            `json:"email,omitempty"`
}

// PublicUser is the view returned on sign-in and sign-up.
type PublicUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
}

// UserProfile is the view returned by who-am-I.
type UserProfile struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         *string    `json:"phone"`
	EmailVerified bool       `json:"email_verified"`
	VerifiedAt    *time.Time `json:"verified_at"`
	CreatedAt     time.Time  `json:"created_at"`
	StudentID     *string    `json:"student_id"`
}

type SignUpResponse struct {
	User    PublicUser `json:"user"`
	Message string     `json:"message"`
	Warning string     `json:"warning,omitempty"`
}

type SignInResponse struct {
	User PublicUser `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

type ResendVerificationResponse struct {
	Message         string `json:"message"`
	AlreadyVerified bool   `json:"already_verified"`
	Warning         string `json:"warning,omitempty"`
}

type MeResponse struct {
	User *UserProfile `json:"user"`
}

func NewPublicUser(user *entity.User) PublicUser {
	return PublicUser{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		EmailVerified: user.EmailVerified,
	}
}

func NewUserProfile(user *entity.User) *UserProfile {
	profile := &UserProfile{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
	if user.Phone.Valid {
		profile.Phone = &user.Phone.String
	}
	if user.StudentID.Valid {
		profile.StudentID = &user.StudentID.String
	}
	if user.VerifiedAt.Valid {
		profile.VerifiedAt = &user.VerifiedAt.Time
	}
	return profile
}
