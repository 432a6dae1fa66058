package mailer

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Sender delivers a composed message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	sender     Sender
	from       string
	timeout    time.Duration
	maxRetries uint64
	backoff    time.Duration
}

type SMTPOption func(*SMTPMailer)

// WithBackoff overrides the base delay between delivery attempts.
func WithBackoff(d time.Duration) SMTPOption {
	return func(m *SMTPMailer) {
		if d > 0 {
			m.backoff = d
		}
	}
}

func NewSMTPMailer(host string, port int, username, password, from string, timeout time.Duration, maxRetries int, opts ...SMTPOption) *SMTPMailer {
	return NewSMTPMailerWithSender(gomail.NewDialer(host, port, username, password), from, timeout, maxRetries, opts...)
}

func NewSMTPMailerWithSender(sender Sender, from string, timeout time.Duration, maxRetries int, opts ...SMTPOption) *SMTPMailer {
	if maxRetries < 0 {
		maxRetries = 0
	}
	m := &SMTPMailer{
		sender:     sender,
		from:       from,
		timeout:    timeout,
		maxRetries: uint64(maxRetries),
		backoff:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// dialAndSend returns when the exchange finishes or ctx ends, whichever comes
// first. gomail has no deadlines of its own, so a stalled exchange is left to
// finish in the background.
func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *gomail.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- m.sender.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers one HTML email, retrying transient failures with exponential
// backoff until the attempts or the timeout run out.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	attempt := 0
	backoff := retry.WithMaxRetries(m.maxRetries, retry.NewExponential(m.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := m.dialAndSend(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return err
			}
			logrus.WithError(err).
				WithField("attempt", attempt).
				WithField("subject", subject).
				Warn("SMTP delivery attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
}
