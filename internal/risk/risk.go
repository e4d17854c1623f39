package risk

import (
	"time"

	"github.com/geocoder89/accounthub/internal/domain/user"
)

// Reason is the machine-distinguishable outcome of an evaluation.
type Reason string

const (
	ReasonAllowed      Reason = "allowed"
	ReasonBot          Reason = "bot_detected"
	ReasonShield       Reason = "shield_blocked"
	ReasonRateLimit    Reason = "rate_limited"
	ReasonBackendError Reason = "backend_error"
)

// Request is the slice of an inbound HTTP request the pipeline looks at.
type Request struct {
	Method    string
	Path      string
	RawQuery  string
	UserAgent string
	ClientIP  string
	RequestID string
	Role      user.Role
}

type Decision struct {
	Allowed bool
	Reason  Reason
	Role    user.Role

	// RetryAfter is set on rate-limit denials.
	RetryAfter time.Duration

	// BotCategory is set when Reason is ReasonBot.
	BotCategory string

	// Rule names the shield rule that tripped when Reason is ReasonShield.
	Rule string
}

func allow(role user.Role) Decision {
	return Decision{Allowed: true, Reason: ReasonAllowed, Role: role}
}
