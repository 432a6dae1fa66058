package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Email is a rendered message ready to be handed to a Mailer.
type Email struct {
	Subject  string
	HTMLBody string
}

// Composer renders the account emails. Links point at the web frontend
// rooted at baseURL.
type Composer struct {
	baseURL         string
	verificationTTL time.Duration
	resetTTL        time.Duration
}

func NewComposer(baseURL string, verificationTTL, resetTTL time.Duration) *Composer {
	return &Composer{
		baseURL:         baseURL,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
	}
}

func (c *Composer) Verification(name, token string) (Email, error) {
	return c.render("verification.html", "Verify your email address", name, c.link("/verify-email", token), c.verificationTTL)
}

func (c *Composer) ResendVerification(name, token string) (Email, error) {
	return c.render("resend_verification.html", "Your new verification link", name, c.link("/verify-email", token), c.verificationTTL)
}

func (c *Composer) PasswordReset(name, token string) (Email, error) {
	return c.render("password_reset.html", "Reset your password", name, c.link("/reset-password", token), c.resetTTL)
}

func (c *Composer) link(path, token string) string {
	return c.baseURL + path + "?token=" + url.QueryEscape(token)
}

func (c *Composer) render(name, subject, userName, link string, ttl time.Duration) (Email, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, map[string]string{
		"Name":      userName,
		"Link":      link,
		"ExpiresIn": humanizeDuration(ttl),
	})
	if err != nil {
		return Email{}, fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return Email{Subject: subject, HTMLBody: buf.String()}, nil
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
