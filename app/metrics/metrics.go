package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeNotVerified        = "not_verified"
	OutcomeEmailTaken         = "email_taken"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeExpired            = "expired"
	OutcomeError              = "error"
)

// Token and email kinds.
const (
	KindVerification = "verification"
	KindReset        = "reset"
	KindSession      = "session"
)

// SignIns counts sign-in attempts by outcome.
var SignIns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lostfound_auth_sign_ins_total",
		Help: "Total number of sign-in attempts",
	},
	[]string{"outcome"},
)

var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lostfound_auth_registrations_total",
		Help: "Total number of registration attempts",
	},
	[]string{"outcome"},
)

// TokenConsumptions counts verification and reset token redemptions.
var TokenConsumptions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lostfound_auth_token_consumptions_total",
		Help: "Total number of one-time token redemptions",
	},
	[]string{"kind", "outcome"},
)

var MailFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lostfound_auth_mail_failures_total",
		Help: "Total number of emails that could not be handed to the mailer",
	},
	[]string{"kind"},
)

var SweptRows = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lostfound_auth_swept_rows_total",
		Help: "Total number of expired rows removed by the sweeper",
	},
	[]string{"kind"},
)

// RegisterMetrics registers the auth metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(SignIns)
	reg.MustRegister(Registrations)
	reg.MustRegister(TokenConsumptions)
	reg.MustRegister(MailFailures)
	reg.MustRegister(SweptRows)
}

func RecordSignIn(outcome string) {
	SignIns.WithLabelValues(outcome).Inc()
}

func RecordRegistration(outcome string) {
	Registrations.WithLabelValues(outcome).Inc()
}

func RecordTokenConsumption(kind, outcome string) {
	TokenConsumptions.WithLabelValues(kind, outcome).Inc()
}

func RecordMailFailure(kind string) {
	MailFailures.WithLabelValues(kind).Inc()
}

// RecordSwept adds n removed rows of the given kind. Zero is ignored.
func RecordSwept(kind string, n int64) {
	if n <= 0 {
		return
	}
	SweptRows.WithLabelValues(kind).Add(float64(n))
}
