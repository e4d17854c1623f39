package middlewares

import (
	"net/http"
	"strconv"

	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/risk"
	"github.com/gin-gonic/gin"
)

// Evaluator is what the guard needs from the risk engine.
type Evaluator interface {
	Evaluate(ctx *gin.Context, req risk.Request) risk.Decision
}

type engineEvaluator struct {
	engine *risk.Engine
}

func (e engineEvaluator) Evaluate(ctx *gin.Context, req risk.Request) risk.Decision {
	return e.engine.Evaluate(ctx.Request.Context(), req)
}

func RiskGuard(engine *risk.Engine) gin.HandlerFunc {
	return riskGuard(engineEvaluator{engine: engine})
}

func riskGuard(ev Evaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleStr, _ := RoleFromContext(c)

		reqID, _ := c.Get(CtxRequestID)
		reqIDStr, _ := reqID.(string)

		decision := ev.Evaluate(c, risk.Request{
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			RawQuery:  c.Request.URL.RawQuery,
			UserAgent: c.Request.UserAgent(),
			ClientIP:  c.ClientIP(),
			RequestID: reqIDStr,
			Role:      user.RoleOf(roleStr),
		})

		if decision.Allowed {
			c.Next()
			return
		}

		switch decision.Reason {
		case risk.ReasonBot:
			abortDenied(c, "bot_detected", "Automated requests are not allowed")

		case risk.ReasonShield:
			abortDenied(c, "shield_blocked", "Request blocked by security policy")

		case risk.ReasonRateLimit:
			retryAfter := int(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			abortDenied(c, "rate_limited", rateLimitMessage(decision.Role))

		default:
			// backend down with fail-open disabled
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorEnvelope(c, "risk_unavailable", "Service temporarily unavailable"))
		}
	}
}

func abortDenied(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, errorEnvelope(c, code, message))
}

func rateLimitMessage(role user.Role) string {
	switch role {
	case user.RoleAdmin:
		return "Admin request limit exceeded. Slow down."
	case user.RoleUser:
		return "User request limit exceeded. Slow down."
	default:
		return "Too many requests. Please try again later."
	}
}
