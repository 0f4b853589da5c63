// Package audit emits a structured trail of security-relevant events.
package audit

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Actions recorded in the audit trail.
const (
	ActionRegister      = "register"
	ActionVerifyEmail   = "verify_email"
	ActionLogin         = "login"
	ActionLogout        = "logout"
	ActionLogoutAll     = "logout_all"
	ActionRevokeSession = "revoke_session"
	ActionResetRequest  = "password_reset_request"
	ActionResetComplete = "password_reset_complete"
)

var auditLogger = zerolog.New(os.Stdout).With().Timestamp().Str("log", "audit").Logger()

// Record writes one audit entry. user may be empty when the actor is unknown,
// for example a failed login against a nonexistent account. target names the
// affected resource (an email address or session ID) when one applies.
func Record(action, user, target string, success bool, err error) {
	event := auditLogger.Log().
		Time("at", time.Now().UTC()).
		Str("action", action).
		Bool("success", success)
	if user != "" {
		event = event.Str("user", user)
	}
	if target != "" {
		event = event.Str("target", target)
	}
	if err != nil {
		event = event.Str("error", err.Error())
	}
	event.Msg("")
}
