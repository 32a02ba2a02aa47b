// Package gate tracks whether the current process has an authenticated
// admin user, and keeps that answer current as auth events arrive.
//
// The gate owns a single session/role pair. All mutations happen on one
// goroutine (the event loop started by Start), and snapshot reads are
// guarded by a mutex, so consumers on any goroutine see a consistent
// state.
package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultBootstrapTimeout bounds how long the gate waits for the
// persisted session on startup before giving up and resolving to
// unauthenticated.
const DefaultBootstrapTimeout = 10 * time.Second

// EventKind identifies a session change reported by the auth backend.
type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Session is a server-issued proof of authentication with the identity
// embedded in it.
type Session struct {
	Token       string
	UserID      int64
	Email       string
	DisplayName string
}

// Event is a session change notification.
type Event struct {
	Kind    EventKind
	Session *Session // nil when no session remains
}

// AuthAPI is the session half of the remote service contract.
type AuthAPI interface {
	// GetPersistedSession returns the session persisted from a previous
	// run, or (nil, nil) when there is none.
	GetPersistedSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// Events delivers session change notifications. The channel is
	// expected to stay open for the lifetime of the gate.
	Events() <-chan Event
}

// Notifier receives user-visible transient notifications.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// State is the gate's observable authentication state.
type State string

const (
	StateLoading         State = "loading"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Snapshot is a point-in-time view of the gate.
type Snapshot struct {
	State State
	Email string
	Admin bool
}

type Option func(*Gate)

// WithBootstrapTimeout overrides the startup timeout.
func WithBootstrapTimeout(d time.Duration) Option {
	return func(g *Gate) { g.bootstrapTimeout = d }
}

// Gate resolves and tracks the admin/non-admin decision for the
// current process.
type Gate struct {
	api    AuthAPI
	dir    Directory
	notify Notifier
	logger *slog.Logger

	bootstrapTimeout time.Duration

	mu        sync.Mutex
	snap      Snapshot
	listeners map[int]func(Snapshot)
	nextID    int
}

func New(api AuthAPI, dir Directory, notify Notifier, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		api:              api,
		dir:              dir,
		notify:           notify,
		logger:           logger,
		bootstrapTimeout: DefaultBootstrapTimeout,
		snap:             Snapshot{State: StateLoading},
		listeners:        make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Snapshot returns the current state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap
}

// Subscribe registers a listener called after every state change. The
// returned function removes it.
func (g *Gate) Subscribe(fn func(Snapshot)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// Start launches the bootstrap fetch and the event loop. It returns
// immediately; the loop stops when ctx is cancelled.
func (g *Gate) Start(ctx context.Context) {
	go g.run(ctx)
}

// SignIn submits credentials. On success, role resolution is deferred
// to the SIGNED_IN event so the lookup is not performed twice; the
// returned error therefore carries no role information.
func (g *Gate) SignIn(ctx context.Context, email, password string) error {
	_, err := g.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		g.notify.Error(err.Error())
		return err
	}
	return nil
}

// SignOut invalidates the session. On failure the local state is left
// untouched, so the caller does not appear signed out while the server
// still holds a live session.
func (g *Gate) SignOut(ctx context.Context) error {
	if err := g.api.SignOut(ctx); err != nil {
		g.notify.Error(err.Error())
		return err
	}
	g.set(Snapshot{State: StateUnauthenticated})
	g.notify.Success("Successfully signed out!")
	return nil
}

func (g *Gate) run(ctx context.Context) {
	boot := make(chan *Session, 1)
	go func() {
		sess, err := g.api.GetPersistedSession(ctx)
		if err != nil {
			g.logger.Error("get persisted session", "error", err)
			boot <- nil
			return
		}
		boot <- sess
	}()

	timer := time.NewTimer(g.bootstrapTimeout)
	defer timer.Stop()

	bootstrapped := false
	events := g.api.Events()
	for {
		select {
		case <-ctx.Done():
			return

		case sess := <-boot:
			if bootstrapped {
				// An event already settled the state; a stale
				// bootstrap result must not clobber it.
				continue
			}
			bootstrapped = true
			timer.Stop()
			if sess == nil {
				g.set(Snapshot{State: StateUnauthenticated})
				continue
			}
			admin := ResolveRole(ctx, g.dir, sess.Email, sess.DisplayName, g.logger)
			g.set(Snapshot{State: StateAuthenticated, Email: sess.Email, Admin: admin})

		case <-timer.C:
			if !bootstrapped {
				bootstrapped = true
				// The session fetch never settled; stop waiting so
				// consumers are not stuck in the loading state.
				g.logger.Warn("bootstrap timeout reached")
				g.set(Snapshot{State: StateUnauthenticated})
			}

		case ev, ok := <-events:
			if !ok {
				return
			}
			if !bootstrapped {
				bootstrapped = true
				timer.Stop()
			}
			g.handleEvent(ctx, ev)
		}
	}
}

func (g *Gate) handleEvent(ctx context.Context, ev Event) {
	if ev.Session == nil {
		g.set(Snapshot{State: StateUnauthenticated})
		return
	}

	admin := ResolveRole(ctx, g.dir, ev.Session.Email, ev.Session.DisplayName, g.logger)

	if ev.Kind == EventSignedIn && !admin {
		// Enforcement point: undo the sign-in before anything can act
		// on the session.
		if err := g.api.SignOut(ctx); err != nil {
			g.logger.Error("revoke non-admin session", "email", ev.Session.Email, "error", err)
		}
		g.notify.Error(AccessDeniedMessage)
		g.set(Snapshot{State: StateUnauthenticated})
		return
	}

	if ev.Kind == EventSignedIn {
		g.notify.Success("Successfully signed in!")
	}
	g.set(Snapshot{State: StateAuthenticated, Email: ev.Session.Email, Admin: admin})
}

func (g *Gate) set(snap Snapshot) {
	g.mu.Lock()
	g.snap = snap
	fns := make([]func(Snapshot), 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
