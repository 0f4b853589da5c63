// Package metrics holds the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Counters are created at package init so service code can increment them
// unconditionally; they only show up on /metrics once Register is called.
var (
	UsersRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_users_registered_total",
		Help: "Total number of accounts registered.",
	})
	EmailsVerifiedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_emails_verified_total",
		Help: "Total number of email addresses verified.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_logins_failure_total",
		Help: "Total number of rejected login attempts.",
	})
	PasswordResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_password_resets_total",
		Help: "Total number of completed password resets.",
	})
	SessionsRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_sessions_revoked_total",
		Help: "Total number of sessions revoked, including logouts.",
	})
)

// Register registers the service metrics on reg. It should be called once at
// application startup.
func Register(reg prometheus.Registerer) {
	collectors := []prometheus.Collector{
		UsersRegisteredTotal,
		EmailsVerifiedTotal,
		LoginSuccessTotal,
		LoginFailureTotal,
		PasswordResetsTotal,
		SessionsRevokedTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
}
