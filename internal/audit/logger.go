package audit

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is one audit record. Audit entries keep the fine-grained
// internal reasons that client responses deliberately omit.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Role      string    `json:"role,omitempty"`
	User      string    `json:"user,omitempty"`
	Target    string    `json:"target,omitempty"`
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

var auditLogger = log.Output(os.Stdout).With().Str("log", "audit").Logger()

// Log records an audit event. Emission is fire-and-forget: failures
// here never affect the flow being audited.
func Log(action, role, user, target, details string, success bool, err error) {
	e := auditLogger.Log().
		Time("timestamp", time.Now().UTC()).
		Str("action", action).
		Bool("success", success)
	if role != "" {
		e = e.Str("role", role)
	}
	if user != "" {
		e = e.Str("user", user)
	}
	if target != "" {
		e = e.Str("target", target)
	}
	if details != "" {
		e = e.Str("details", details)
	}
	if err != nil {
		e = e.Str("error", err.Error())
	}
	e.Msg("audit")
}
