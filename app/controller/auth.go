package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	httpdto "github.com/vibast-solutions/ms-go-lostfound-auth/app/dto/http"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/middleware"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/service"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/types"
)

const (
	msgInvalidBody   = "invalid request body"
	msgValidation    = "validation failed"
	msgInternalError = "internal server error"

	msgSignedUp        = "account created, check your email to verify your address"
	msgSignedOut       = "signed out"
	msgVerified        = "email verified"
	msgResent          = "if the account exists and is not verified, a new verification link has been sent"
	msgAlreadyVerified = "email is already verified"
	msgResetRequested  = "if an account exists for that email, a password reset link has been sent"
	msgPasswordReset   = "password has been reset"
)

// CookieSettings controls the session cookie written on sign-in.
type CookieSettings struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type AuthController struct {
	auth         service.AuthService
	registration service.RegistrationService
	verification service.VerificationService
	reset        service.PasswordResetService
	sessions     *middleware.SessionMiddleware
	cookie       CookieSettings
}

func NewAuthController(
	auth service.AuthService,
	registration service.RegistrationService,
	verification service.VerificationService,
	reset service.PasswordResetService,
	sessions *middleware.SessionMiddleware,
	cookie CookieSettings,
) *AuthController {
	return &AuthController{
		auth:         auth,
		registration: registration,
		verification: verification,
		reset:        reset,
		sessions:     sessions,
		cookie:       cookie,
	}
}

// RegisterRoutes mounts the auth endpoints on g.
func (c *AuthController) RegisterRoutes(g *echo.Group) {
	g.POST("/signup", c.SignUp)
	g.POST("/signin", c.SignIn)
	g.POST("/signout", c.SignOut)
	g.GET("/me", c.Me, c.sessions.Resolve)
	g.POST("/resend-verification", c.ResendVerification)
	g.POST("/verify-email", c.VerifyEmail)
	g.POST("/reset/request", c.RequestPasswordReset)
	g.POST("/reset/confirm", c.ConfirmPasswordReset)
}

func (c *AuthController) SignUp(ctx echo.Context) error {
	req, err := types.NewSignUpRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind signup request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Signup validation failed")
		return validationFailed(ctx, err)
	}

	result, err := c.registration.Register(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			logrus.WithField("email", req.Email).Info("Signup failed: email taken")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "email is already registered"})
		}
		if isValidation(err) {
			return validationFailed(ctx, err)
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Signup failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	return ctx.JSON(http.StatusCreated, httpdto.SignUpResponse{
		User:    httpdto.NewPublicUser(result.User),
		Message: msgSignedUp,
		Warning: result.Warning,
	})
}

func (c *AuthController) SignIn(ctx echo.Context) error {
	req, err := types.NewSignInRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind signin request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	result, err := c.auth.SignIn(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.Debug("Signin failed: invalid credentials")
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: service.ErrInvalidCredentials.Error()})
		}
		if email, ok := service.IsEmailNotVerified(err); ok {
			logrus.WithField("email", email).Info("Signin refused: email not verified")
			return ctx.JSON(http.StatusForbidden, httpdto.ErrorResponse{Error: service.ErrEmailNotVerified.Error(), Email: email})
		}
		logrus.WithError(err).Error("Signin failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	ctx.SetCookie(c.sessionCookie(result.SessionToken, int(c.cookie.TTL.Seconds())))
	logrus.WithField("user_id", result.User.ID).Info("Signin successful")
	return ctx.JSON(http.StatusOK, httpdto.SignInResponse{User: httpdto.NewPublicUser(result.User)})
}

// SignOut always clears the cookie, even when the session was unknown or the
// store could not be reached.
func (c *AuthController) SignOut(ctx echo.Context) error {
	token := c.sessions.SessionToken(ctx)
	ctx.SetCookie(c.sessionCookie("", -1))

	if err := c.auth.SignOut(ctx.Request().Context(), token); err != nil {
		logrus.WithError(err).Error("Signout failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: msgSignedOut})
}

func (c *AuthController) Me(ctx echo.Context) error {
	user := middleware.CurrentUser(ctx)
	if user == nil {
		return ctx.JSON(http.StatusOK, httpdto.MeResponse{})
	}
	return ctx.JSON(http.StatusOK, httpdto.MeResponse{User: httpdto.NewUserProfile(user)})
}

func (c *AuthController) ResendVerification(ctx echo.Context) error {
	req, err := types.NewResendVerificationRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind resend verification request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	result, err := c.verification.ResendVerification(ctx.Request().Context(), req)
	if err != nil {
		logrus.WithError(err).Error("Resend verification failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	if result.AlreadyVerified {
		return ctx.JSON(http.StatusOK, httpdto.ResendVerificationResponse{Message: msgAlreadyVerified, AlreadyVerified: true})
	}
	return ctx.JSON(http.StatusOK, httpdto.ResendVerificationResponse{Message: msgResent, Warning: result.Warning})
}

func (c *AuthController) VerifyEmail(ctx echo.Context) error {
	req, err := types.NewVerifyEmailRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind verify email request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	if err = c.verification.Verify(ctx.Request().Context(), req); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: service.ErrInvalidToken.Error()})
		case errors.Is(err, service.ErrTokenExpired):
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: service.ErrTokenExpired.Error()})
		}
		logrus.WithError(err).Error("Email verification failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: msgVerified})
}

// RequestPasswordReset answers identically for known and unknown emails.
// Delivery failures are logged by the service and not reported here.
func (c *AuthController) RequestPasswordReset(ctx echo.Context) error {
	req, err := types.NewRequestPasswordResetRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	if _, err = c.reset.RequestReset(ctx.Request().Context(), req); err != nil {
		logrus.WithError(err).Error("Password reset request failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: msgResetRequested})
}

func (c *AuthController) ConfirmPasswordReset(ctx echo.Context) error {
	req, err := types.NewConfirmPasswordResetRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset confirmation")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	if err = c.reset.ConfirmReset(ctx.Request().Context(), req); err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: service.ErrInvalidOrExpiredToken.Error()})
		}
		if isValidation(err) {
			return validationFailed(ctx, err)
		}
		logrus.WithError(err).Error("Password reset confirmation failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: msgPasswordReset})
}

func (c *AuthController) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func isValidation(err error) bool {
	var validation *types.ValidationError
	return errors.As(err, &validation)
}

func validationFailed(ctx echo.Context, err error) error {
	var validation *types.ValidationError
	if !errors.As(err, &validation) {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgValidation, Fields: validation.Fields})
}
