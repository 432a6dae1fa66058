package types

import (
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	maxNameLength      = 100
	maxEmailLength     = 254
	maxPhoneLength     = 32
	maxStudentIDLength = 32
)

type SignUpRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	StudentID string `json:"student_id,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

type ConfirmPasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func NewSignUpRequestFromContext(ctx echo.Context) (*SignUpRequest, error) {
	var body SignUpRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *SignUpRequest) Validate() error {
	v := &ValidationError{}

	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		v.Add("name", "name is required")
	case len(name) > maxNameLength:
		v.Add("name", "name is too long")
	}
	validateEmail(v, "email", r.Email)
	if r.Password == "" {
		v.Add("password", "password is required")
	}
	if len(strings.TrimSpace(r.StudentID)) > maxStudentIDLength {
		v.Add("student_id", "student_id is too long")
	}
	if len(strings.TrimSpace(r.Phone)) > maxPhoneLength {
		v.Add("phone", "phone is too long")
	}

	return v.OrNil()
}

func NewSignInRequestFromContext(ctx echo.Context) (*SignInRequest, error) {
	var body SignInRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

// Validate only checks presence; a malformed email is reported as invalid
// credentials by the service so that sign-in never leaks format rules.
func (r *SignInRequest) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(r.Email) == "" {
		v.Add("email", "email is required")
	}
	if r.Password == "" {
		v.Add("password", "password is required")
	}

	return v.OrNil()
}

func NewResendVerificationRequestFromContext(ctx echo.Context) (*ResendVerificationRequest, error) {
	var body ResendVerificationRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ResendVerificationRequest) Validate() error {
	v := &ValidationError{}
	validateEmail(v, "email", r.Email)

	return v.OrNil()
}

func NewVerifyEmailRequestFromContext(ctx echo.Context) (*VerifyEmailRequest, error) {
	var body VerifyEmailRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *VerifyEmailRequest) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(r.Token) == "" {
		v.Add("token", "token is required")
	}

	return v.OrNil()
}

func NewRequestPasswordResetRequestFromContext(ctx echo.Context) (*RequestPasswordResetRequest, error) {
	var body RequestPasswordResetRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RequestPasswordResetRequest) Validate() error {
	v := &ValidationError{}
	validateEmail(v, "email", r.Email)

	return v.OrNil()
}

func NewConfirmPasswordResetRequestFromContext(ctx echo.Context) (*ConfirmPasswordResetRequest, error) {
	var body ConfirmPasswordResetRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ConfirmPasswordResetRequest) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(r.Token) == "" {
		v.Add("token", "token is required")
	}
	if r.NewPassword == "" {
		v.Add("new_password", "new_password is required")
	}

	return v.OrNil()
}

func validateEmail(v *ValidationError, field, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		v.Add(field, field+" is required")
		return
	}
	if len(email) > maxEmailLength {
		v.Add(field, field+" is too long")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		v.Add(field, field+" is not a valid email address")
	}
}
