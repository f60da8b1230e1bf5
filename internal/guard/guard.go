package guard

import (
	"context"

	"github.com/medrex/clinic-portal/internal/session"
	"github.com/medrex/clinic-portal/pkg/logger"
	"github.com/medrex/clinic-portal/pkg/monitoring"
	"github.com/medrex/clinic-portal/pkg/types"
)

// Navigator issues abstract "navigate to path" requests
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

// Denial reasons reported alongside a Result
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonForbidden       = "forbidden"
	ReasonMalformed       = "malformed_requirement"
)

// Result is a decision plus the navigation target for redirects
type Result struct {
	Decision Decision `json:"decision"`
	Target   string   `json:"target,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// Allowed reports whether access was granted
func (r Result) Allowed() bool {
	return r.Decision == Allow
}

// Guard evaluates requirements against the live session and issues the
// navigation a redirect decision calls for.
type Guard struct {
	store       *session.Store
	navigator   Navigator
	loginPath   string
	defaultPath string
	metrics     *monitoring.MetricsCollector
	logger      *logger.Logger
}

// Config holds the navigation targets used by a Guard
type Config struct {
	LoginPath   string
	DefaultPath string
}

// New creates a Guard. navigator may be nil when no navigation is wanted.
func New(store *session.Store, navigator Navigator, cfg Config, metrics *monitoring.MetricsCollector, log *logger.Logger) *Guard {
	return &Guard{
		store:       store,
		navigator:   navigator,
		loginPath:   cfg.LoginPath,
		defaultPath: cfg.DefaultPath,
		metrics:     metrics,
		logger:      log,
	}
}

// Resolve evaluates req against sess without side effects
func (g *Guard) Resolve(sess types.Session, req Requirement, policy Policy) Result {
	result := Result{Decision: Evaluate(sess, req, policy)}
	if result.Allowed() {
		return result
	}

	switch {
	case !sess.IsAuthenticated():
		result.Reason = ReasonUnauthenticated
	case req.Validate() != nil:
		result.Reason = ReasonMalformed
	default:
		result.Reason = ReasonForbidden
	}

	if result.Decision == DenyRedirect {
		if result.Reason == ReasonUnauthenticated {
			result.Target = g.loginPath
		} else {
			result.Target = g.defaultPath
		}
	}
	return result
}

// Check evaluates req against the current session, records the decision
// and navigates when redirected.
func (g *Guard) Check(ctx context.Context, req Requirement, policy Policy) Result {
	sess := g.store.Session()
	result := g.Resolve(sess, req, policy)
	g.record(ctx, sess, req, result)

	if result.Decision == DenyRedirect && g.navigator != nil {
		if err := g.navigator.Navigate(ctx, result.Target); err != nil {
			g.logger.WithContext(ctx).WithError(err).WithField("target", result.Target).
				Warn("Guard navigation failed")
		}
	}
	return result
}

// Watch calls fn with the current result and again on every session
// change. It never navigates. The returned function stops watching.
func (g *Guard) Watch(req Requirement, policy Policy, fn func(Result)) func() {
	stop := g.store.Subscribe(func(sess types.Session) {
		fn(g.Resolve(sess, req, policy))
	})
	fn(g.Resolve(g.store.Session(), req, policy))
	return stop
}

func (g *Guard) record(ctx context.Context, sess types.Session, req Requirement, result Result) {
	g.metrics.RecordGuardDecision(string(result.Decision))

	if result.Allowed() {
		return
	}

	entry := g.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"component":   "guard",
		"decision":    result.Decision,
		"reason":      result.Reason,
		"target":      result.Target,
		"mode":        req.Mode.String(),
		"permissions": req.Names,
	})

	switch result.Reason {
	case ReasonMalformed:
		entry.WithError(req.Validate()).Warn("Malformed access requirement denied")
	case ReasonForbidden:
		g.logger.Security("access_denied", sess.User.ID, map[string]interface{}{
			"mode":        req.Mode.String(),
			"permissions": req.Names,
		})
	default:
		entry.Debug("Access denied")
	}
}
