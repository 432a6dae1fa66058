package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	httpdto "github.com/vibast-solutions/ms-go-lostfound-auth/app/dto/http"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/service"
)

const userContextKey = "user"

// SessionMiddleware resolves the session cookie into the current user. It
// never rejects a request on its own; use RequireAuth for that.
type SessionMiddleware struct {
	authenticator service.SessionAuthenticator
	cookieName    string
}

func NewSessionMiddleware(authenticator service.SessionAuthenticator, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{authenticator: authenticator, cookieName: cookieName}
}

func (m *SessionMiddleware) Resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			return next(c)
		}

		if user := m.authenticator.Resolve(c.Request().Context(), cookie.Value); user != nil {
			c.Set(userContextKey, user)
		}
		return next(c)
	}
}

func (m *SessionMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.Resolve(func(c echo.Context) error {
		if CurrentUser(c) == nil {
			logrus.Debug("Request without a valid session")
			return c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "authentication required"})
		}
		return next(c)
	})
}

// CurrentUser returns the user resolved for this request, or nil.
func CurrentUser(c echo.Context) *entity.User {
	user, _ := c.Get(userContextKey).(*entity.User)
	return user
}

// SessionToken returns the raw session cookie value, if any.
func (m *SessionMiddleware) SessionToken(c echo.Context) string {
	cookie, err := c.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
