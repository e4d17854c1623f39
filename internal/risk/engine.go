package risk

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/accounthub/internal/observability"
)

// Engine is the per-request security decision pipeline: shield rules, bot
// detection, then a role-partitioned sliding-window rate limit.
type Engine struct {
	log      *slog.Logger
	prom     *observability.Prom
	store    WindowStore
	policies PolicyTable

	// failOpen controls what happens when the window backend errors:
	// true allows the request through (logged + counted), false denies
	// with ReasonBackendError.
	failOpen bool

	// allowedBotCategories pass bot detection (e.g. search crawlers on a
	// public deployment). Empty means every detected bot is denied.
	allowedBotCategories map[string]struct{}
}

type EngineOptions struct {
	Policies             PolicyTable
	FailOpen             bool
	AllowedBotCategories []string
}

func NewEngine(log *slog.Logger, prom *observability.Prom, store WindowStore, opts EngineOptions) *Engine {
	allowed := make(map[string]struct{}, len(opts.AllowedBotCategories))
	for _, cat := range opts.AllowedBotCategories {
		allowed[cat] = struct{}{}
	}

	return &Engine{
		log:                  log,
		prom:                 prom,
		store:                store,
		policies:             opts.Policies,
		failOpen:             opts.FailOpen,
		allowedBotCategories: allowed,
	}
}

// Evaluate runs the pipeline. The returned decision is already logged and
// counted; callers only translate it to a response.
func (e *Engine) Evaluate(ctx context.Context, req Request) Decision {
	d := e.evaluate(ctx, req)

	if e.prom != nil {
		e.prom.RiskDecisions.WithLabelValues(string(d.Reason), d.Role.String()).Inc()
	}

	if !d.Allowed {
		e.log.WarnContext(ctx, "request denied",
			"reason", d.Reason,
			"role", d.Role,
			"method", req.Method,
			"path", req.Path,
			"client_ip", req.ClientIP,
			"user_agent", req.UserAgent,
			"request_id", req.RequestID,
			"bot_category", d.BotCategory,
			"rule", d.Rule,
			"retry_after_ms", d.RetryAfter.Milliseconds(),
		)
	}

	return d
}

func (e *Engine) evaluate(ctx context.Context, req Request) Decision {
	if rule := MatchShield(req.Path, req.RawQuery); rule != "" {
		return Decision{Reason: ReasonShield, Role: req.Role, Rule: rule}
	}

	if category, isBot := DetectBot(req.UserAgent); isBot {
		if _, ok := e.allowedBotCategories[category]; !ok {
			return Decision{Reason: ReasonBot, Role: req.Role, BotCategory: category}
		}
	}

	policy := e.policies.For(req.Role)

	// limiter state is partitioned per role, then per client
	key := "risk:window:" + req.Role.String() + ":" + req.ClientIP

	count, oldest, err := e.store.Take(ctx, key, policy.Window)

	if err != nil {
		if e.prom != nil {
			e.prom.RiskBackendErrors.Inc()
		}

		e.log.ErrorContext(ctx, "risk backend error", "err", err, "fail_open", e.failOpen)

		if e.failOpen {
			return allow(req.Role)
		}
		return Decision{Reason: ReasonBackendError, Role: req.Role}
	}

	if count > int64(policy.Max) {
		retryAfter := policy.Window
		if !oldest.IsZero() {
			if until := time.Until(oldest.Add(policy.Window)); until > 0 {
				retryAfter = until
			}
		}

		return Decision{Reason: ReasonRateLimit, Role: req.Role, RetryAfter: retryAfter}
	}

	return allow(req.Role)
}
