// Package auth populates the session store from persisted state, from
// credential exchange and from logout.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medrex/clinic-portal/internal/session"
	"github.com/medrex/clinic-portal/pkg/logger"
	"github.com/medrex/clinic-portal/pkg/monitoring"
	"github.com/medrex/clinic-portal/pkg/types"
)

const authMethodPassword = "password"

// Options holds the collaborators of a Lifecycle
type Options struct {
	Store       *session.Store
	Storage     session.Storage
	Auth        AuthClient
	Permissions PermissionClient
	Tokens      TokenSink
	Navigator   Navigator
	LoginPath   string
	Metrics     *monitoring.MetricsCollector
	Tracer      trace.Tracer
	Logger      *logger.Logger

	// Now overrides the clock used for token expiry checks
	Now func() time.Time
}

// Lifecycle is the only writer of the session store and the persisted
// storage. Operations run one at a time.
type Lifecycle struct {
	store       *session.Store
	storage     session.Storage
	auth        AuthClient
	permissions PermissionClient
	tokens      TokenSink
	navigator   Navigator
	loginPath   string
	metrics     *monitoring.MetricsCollector
	tracer      trace.Tracer
	logger      *logger.Logger
	now         func() time.Time

	opMu      sync.Mutex
	disposed  atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

// NewLifecycle validates opts and creates a Lifecycle
func NewLifecycle(opts Options) (*Lifecycle, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("session store is required")
	case opts.Storage == nil:
		return nil, errors.New("persisted storage is required")
	case opts.Auth == nil:
		return nil, errors.New("auth client is required")
	case opts.Permissions == nil:
		return nil, errors.New("permission client is required")
	case opts.Tokens == nil:
		return nil, errors.New("token sink is required")
	case opts.Metrics == nil:
		return nil, errors.New("metrics collector is required")
	case opts.Logger == nil:
		return nil, errors.New("logger is required")
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/medrex/clinic-portal/internal/auth")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	return &Lifecycle{
		store:       opts.Store,
		storage:     opts.Storage,
		auth:        opts.Auth,
		permissions: opts.Permissions,
		tokens:      opts.Tokens,
		navigator:   opts.Navigator,
		loginPath:   loginPath,
		metrics:     opts.Metrics,
		tracer:      tracer,
		logger:      opts.Logger,
		now:         now,
		ready:       make(chan struct{}),
	}, nil
}

// Ready is closed once the first Restore has settled, or on Close
func (l *Lifecycle) Ready() <-chan struct{} {
	return l.ready
}

// Close disposes the lifecycle. Results of operations still in flight are
// discarded instead of being applied to the store.
func (l *Lifecycle) Close() {
	l.disposed.Store(true)
	l.markReady()
}

// Closed reports whether Close has been called
func (l *Lifecycle) Closed() bool {
	return l.disposed.Load()
}

func (l *Lifecycle) markReady() {
	l.readyOnce.Do(func() { close(l.ready) })
}

func (l *Lifecycle) log() *logrus.Entry {
	return l.logger.WithComponent("auth")
}

func (l *Lifecycle) userLog(userID string) *logrus.Entry {
	return l.logger.WithUserID(userID).WithField("component", "auth")
}

// Restore populates the store from persisted storage. Any missing, corrupt
// or expired state purges the persisted keys and leaves the session
// anonymous. A storage read error also leaves it anonymous but keeps the
// keys. It always settles and marks the lifecycle ready.
func (l *Lifecycle) Restore(ctx context.Context) types.Session {
	l.opMu.Lock()
	defer l.opMu.Unlock()
	defer l.markReady()

	ctx, span := monitoring.StartAuthSpan(ctx, l.tracer, "restore")
	defer span.End()

	if l.disposed.Load() {
		l.metrics.RecordSessionRestore(monitoring.OutcomeDisposed)
		return l.store.Session()
	}

	l.store.Set(loadingSession())

	sess, outcome, err := l.readSnapshot(ctx)
	span.SetAttributes(attribute.String("auth.outcome", outcome))

	if l.disposed.Load() {
		l.metrics.RecordSessionRestore(monitoring.OutcomeDisposed)
		l.log().Debug("Discarding restore result for disposed lifecycle")
		return l.store.Session()
	}

	if outcome != monitoring.OutcomeSuccess {
		if err != nil {
			monitoring.RecordError(span, err)
			l.log().WithError(err).WithField("outcome", outcome).Warn("Persisted session not restored")
		}
		// an unreadable store may hold a valid session for the next boot
		if outcome != monitoring.OutcomeFailure {
			if purgeErr := session.RemoveKeys(ctx, l.storage); purgeErr != nil {
				l.log().WithError(purgeErr).Error("Failed to purge persisted session")
			}
		}
		l.tokens.SetToken("")
		l.store.Clear()
		l.metrics.RecordSessionRestore(outcome)
		l.metrics.SetPermissionsGranted(0)
		return l.store.Session()
	}

	l.tokens.SetToken(sess.Token)
	l.store.Set(sess)
	l.metrics.RecordSessionRestore(outcome)
	l.metrics.SetPermissionsGranted(len(sess.Permissions))
	l.userLog(sess.User.ID).WithFields(map[string]interface{}{
		"role":        sess.User.Role,
		"permissions": len(sess.Permissions),
	}).Info("Session restored")

	return l.store.Session()
}

// readSnapshot reads and parses the persisted keys
func (l *Lifecycle) readSnapshot(ctx context.Context) (types.Session, string, error) {
	token, hasToken, err := l.storage.Get(ctx, session.KeyToken)
	if err != nil {
		return types.Session{}, monitoring.OutcomeFailure, fmt.Errorf("failed to read token: %w", err)
	}
	rawUser, hasUser, err := l.storage.Get(ctx, session.KeyUser)
	if err != nil {
		return types.Session{}, monitoring.OutcomeFailure, fmt.Errorf("failed to read user: %w", err)
	}
	if !hasToken || !hasUser || token == "" {
		if hasToken || hasUser {
			return types.Session{}, monitoring.OutcomeCorrupt, errors.New("persisted session is incomplete")
		}
		return types.Session{}, monitoring.OutcomeEmpty, nil
	}

	var user types.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return types.Session{}, monitoring.OutcomeCorrupt, types.NewStorageError(types.ErrCodeSessionCorrupt, "persisted user is not valid JSON", err)
	}
	if user.ID == "" {
		return types.Session{}, monitoring.OutcomeCorrupt, types.NewStorageError(types.ErrCodeSessionCorrupt, "persisted user has no id", nil)
	}

	perms := types.PermissionSet{}
	rawPerms, hasPerms, err := l.storage.Get(ctx, session.KeyPermissions)
	if err != nil {
		return types.Session{}, monitoring.OutcomeFailure, fmt.Errorf("failed to read permissions: %w", err)
	}
	if hasPerms {
		var names []string
		if err := json.Unmarshal([]byte(rawPerms), &names); err != nil {
			return types.Session{}, monitoring.OutcomeCorrupt, types.NewStorageError(types.ErrCodeSessionCorrupt, "persisted permissions are not a JSON list", err)
		}
		perms = types.NewPermissionSet(names...)
	}

	if tokenExpired(token, l.now()) {
		return types.Session{}, monitoring.OutcomeExpired, errors.New("persisted token has expired")
	}

	return types.Session{
		User:        user,
		Token:       token,
		Permissions: perms,
		Status:      types.StatusAuthenticated,
	}, monitoring.OutcomeSuccess, nil
}

// Login exchanges creds for a session. It reports false when the exchange
// fails, leaving the store as it was before the call and persisting
// nothing. A failed permission fetch still logs in with no permissions.
func (l *Lifecycle) Login(ctx context.Context, creds types.Credentials) bool {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	ctx, span := monitoring.StartAuthSpan(ctx, l.tracer, "login")
	defer span.End()

	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		l.metrics.RecordAuthAttempt(authMethodPassword, monitoring.OutcomeFailure)
		l.log().Debug("Login rejected: missing credentials")
		return false
	}
	if l.disposed.Load() {
		return false
	}

	attemptID := uuid.NewString()
	span.SetAttributes(attribute.String("auth.attempt_id", attemptID))

	previous := l.store.Session()
	l.store.Set(loadingSession())

	result, err := l.auth.Login(ctx, creds)
	if err == nil {
		err = validateLoginResult(result)
	}
	if err != nil {
		monitoring.RecordError(span, err)
		l.metrics.RecordAuthAttempt(authMethodPassword, monitoring.OutcomeFailure)
		l.logger.Audit("", "login", "session", false, map[string]interface{}{
			"attempt_id":      attemptID,
			"email":           email,
			"organization_id": creds.OrganizationID,
			"error":           err.Error(),
		})
		if !l.disposed.Load() {
			l.store.Set(previous)
		}
		return false
	}

	role, known := MapRole(result.Role)
	if !known {
		l.userLog(result.UserID).WithFields(map[string]interface{}{
			"external_role": result.Role,
			"mapped_role":   role,
		}).Warn("Unrecognized backend role passed through")
	}

	// permission lookups are authenticated with the new credential
	l.tokens.SetToken(result.Token)

	outcome := monitoring.OutcomeSuccess
	perms := types.PermissionSet{}
	names, err := l.permissions.GetUserPermissions(ctx, result.UserID)
	if err != nil {
		outcome = monitoring.OutcomeDegraded
		l.userLog(result.UserID).WithError(err).
			Warn("Permission fetch failed, continuing with no permissions")
	} else {
		perms = types.NewPermissionSet(names...)
	}

	userEmail := result.Email
	if userEmail == "" {
		userEmail = email
	}
	sess := types.Session{
		User: types.User{
			ID:             result.UserID,
			Email:          userEmail,
			DisplayName:    result.DisplayName,
			Role:           role,
			OrganizationID: creds.OrganizationID,
		},
		Token:       result.Token,
		Permissions: perms,
		Status:      types.StatusAuthenticated,
	}

	if l.disposed.Load() {
		l.tokens.SetToken(previous.Token)
		l.log().Debug("Discarding login result for disposed lifecycle")
		return false
	}

	if err := l.persist(ctx, sess); err != nil {
		monitoring.RecordError(span, err)
		l.userLog(sess.User.ID).WithError(err).Error("Failed to persist session, login aborted")
		if purgeErr := session.RemoveKeys(ctx, l.storage); purgeErr != nil {
			l.log().WithError(purgeErr).Error("Failed to purge partially persisted session")
		}
		l.metrics.RecordAuthAttempt(authMethodPassword, monitoring.OutcomeFailure)
		l.tokens.SetToken("")
		l.store.Clear()
		return false
	}

	l.store.Set(sess)
	l.metrics.RecordAuthAttempt(authMethodPassword, outcome)
	l.metrics.SetPermissionsGranted(len(perms))
	span.SetAttributes(
		attribute.String("auth.outcome", outcome),
		attribute.Int("auth.permissions", len(perms)),
	)
	l.logger.Audit(sess.User.ID, "login", "session", true, map[string]interface{}{
		"attempt_id":      attemptID,
		"role":            sess.User.Role,
		"organization_id": creds.OrganizationID,
		"permissions":     len(perms),
	})

	return true
}

func validateLoginResult(result *types.LoginResult) error {
	if result == nil {
		return types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "empty login response", nil)
	}
	if result.Token == "" || result.UserID == "" {
		return types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "login response is missing token or user id", nil)
	}
	return nil
}

// persist writes the snapshot restored on the next boot
func (l *Lifecycle) persist(ctx context.Context, sess types.Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	perms, err := json.Marshal(sess.Permissions.Names())
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	writes := []struct{ key, value string }{
		{session.KeyUser, string(user)},
		{session.KeyToken, sess.Token},
		{session.KeyPermissions, string(perms)},
	}
	for _, w := range writes {
		if err := l.storage.Set(ctx, w.key, w.value); err != nil {
			return types.NewStorageError(types.ErrCodeStorageFailure, "failed to persist "+w.key, err)
		}
	}
	return nil
}

// Logout invalidates the server-side session on a best-effort basis, then
// always clears the store and the persisted keys and navigates to login.
func (l *Lifecycle) Logout(ctx context.Context) {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	ctx, span := monitoring.StartAuthSpan(ctx, l.tracer, "logout")
	defer span.End()

	userID := l.store.Session().User.ID

	if err := l.auth.Logout(ctx); err != nil {
		monitoring.RecordError(span, err)
		l.userLog(userID).WithError(err).Warn("Server-side logout failed, clearing local session anyway")
	}

	if err := session.RemoveKeys(ctx, l.storage); err != nil {
		l.log().WithError(err).Error("Failed to remove persisted session keys")
	}
	l.tokens.SetToken("")
	l.metrics.SetPermissionsGranted(0)

	if l.disposed.Load() {
		return
	}
	l.store.Clear()

	l.logger.Audit(userID, "logout", "session", true, nil)

	if l.navigator != nil {
		if err := l.navigator.Navigate(ctx, l.loginPath); err != nil {
			l.log().WithError(err).Warn("Navigation to login failed")
		}
	}
}

func loadingSession() types.Session {
	return types.Session{Status: types.StatusLoading, Permissions: types.PermissionSet{}}
}
