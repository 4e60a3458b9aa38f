package guard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultRequiredRole gates the console to administrators unless
// configured otherwise.
const DefaultRequiredRole = "Admin"

// DefaultSignOutDelay is how long a denial screen is shown before the
// forced sign-out fires.
const DefaultSignOutDelay = time.Second

// Config wires an Evaluator with its collaborators. Identity, Oracle and
// Mirror are required; the rest have defaults.
type Config struct {
	Identity IdentityProvider
	Oracle   PermissionOracle
	Mirror   MirrorStore
	Logger   *slog.Logger

	RequiredRole string
	SignOutDelay time.Duration
	// LoginRoute is excluded from the out-of-band mirror clearing rule.
	LoginRoute string
	// OnForcedSignOut runs after a scheduled sign-out has completed.
	// Used by the HTTP layer to hard-navigate to the sign-in page.
	OnForcedSignOut func()
}

// Inputs are the ambient session values an evaluation reconciles against
// the authoritative record.
type Inputs struct {
	Principal      *Principal
	CachedRole     string
	SessionLoading bool
	SessionErr     error
	Route          string
}

// Evaluator gates access to the protected subtree. Every navigation runs
// Evaluate; the authoritative role fetched from the oracle is the sole
// allow/deny determinant. The cached role is advisory only.
//
// Concurrency: evaluations may overlap. Each one takes a generation
// number before the oracle lookup; a result is applied only if no newer
// evaluation has started since (stale responses are discarded, their
// side effects suppressed).
type Evaluator struct {
	identity IdentityProvider
	oracle   PermissionOracle
	mirror   MirrorStore
	logger   *slog.Logger

	requiredRole    string
	signOutDelay    time.Duration
	loginRoute      string
	onForcedSignOut func()

	mu           sync.Mutex
	gen          uint64
	closed       bool
	route        string
	last         Decision
	signOutTimer *time.Timer
	unsubscribe  func()
}

// New constructs an Evaluator. It does not subscribe to session changes
// until Mount is called.
func New(cfg Config) *Evaluator {
	if cfg.RequiredRole == "" {
		cfg.RequiredRole = DefaultRequiredRole
	}
	if cfg.SignOutDelay <= 0 {
		cfg.SignOutDelay = DefaultSignOutDelay
	}
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = "/auth/login"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Evaluator{
		identity:        cfg.Identity,
		oracle:          cfg.Oracle,
		mirror:          cfg.Mirror,
		logger:          cfg.Logger,
		requiredRole:    cfg.RequiredRole,
		signOutDelay:    cfg.SignOutDelay,
		loginRoute:      cfg.LoginRoute,
		onForcedSignOut: cfg.OnForcedSignOut,
		last:            Decision{State: StateLoading},
	}
}

// Mount attaches the session-change subscription for the lifetime of the
// evaluator. A nil-principal notification while the current route is not
// the sign-in route clears the mirror, covering sign-outs from another
// tab or process.
func (e *Evaluator) Mount(route string) {
	e.mu.Lock()
	e.route = route
	if e.closed || e.unsubscribe != nil || e.identity == nil {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	unsub := e.identity.Subscribe(func(p *Principal) {
		if p != nil {
			return
		}
		e.mu.Lock()
		route := e.route
		closed := e.closed
		e.mu.Unlock()
		if closed || route == e.loginRoute {
			return
		}
		if err := e.mirror.Clear(context.Background()); err != nil {
			e.logger.Warn("guard: clear mirror on session change", slog.Any("error", err))
		}
	})

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		unsub()
		return
	}
	e.unsubscribe = unsub
	e.mu.Unlock()
}

// SetRoute records the current route for the subscription rule.
func (e *Evaluator) SetRoute(route string) {
	e.mu.Lock()
	e.route = route
	e.mu.Unlock()
}

// Close cancels any pending forced sign-out, detaches the subscription
// and stops all further mirror writes. Safe to call more than once.
func (e *Evaluator) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.signOutTimer != nil {
		e.signOutTimer.Stop()
		e.signOutTimer = nil
	}
	unsub := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Drop tears the evaluator down after its session has signed out. On
// top of Close it clears the mirror slot: the slot must not outlive the
// session it describes. The registry calls this instead of Close when a
// sign-out notification arrives, because dispatch order between the
// registry and the evaluator's own session subscription is not
// guaranteed and a Close that wins the race would otherwise leave the
// mirror behind. The sign-in route keeps its slot, matching the
// session-change rule.
func (e *Evaluator) Drop(ctx context.Context) {
	e.mu.Lock()
	alreadyClosed := e.closed
	route := e.route
	e.mu.Unlock()

	e.Close()

	if alreadyClosed || route == e.loginRoute {
		return
	}
	if err := e.mirror.Clear(ctx); err != nil {
		e.logger.Warn("guard: clear mirror on drop", slog.Any("error", err))
	}
}

// Decision returns the most recently applied decision.
func (e *Evaluator) Decision() Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Evaluate runs one pass of the gate. Order of operations follows the
// access protocol: loading settles first, then the authoritative lookup,
// then the mirror write or clear, never the other way around.
func (e *Evaluator) Evaluate(ctx context.Context, in Inputs) Decision {
	if in.Route != "" {
		e.SetRoute(in.Route)
	}

	if in.SessionErr != nil {
		e.logger.Error("guard: session bootstrap failed", slog.Any("error", in.SessionErr))
		return e.apply(0, Decision{State: StateError, Reason: reasonSessionLoad})
	}
	if in.SessionLoading {
		// No access decision is made while the session is settling.
		return Decision{State: StateLoading}
	}
	if in.Principal == nil {
		return e.apply(0, Decision{State: StateUnauthenticated})
	}

	e.mu.Lock()
	if e.closed {
		last := e.last
		e.mu.Unlock()
		return last
	}
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	record, err := e.oracle.UserRecord(ctx, in.Principal.ID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.clearMirror(ctx, gen)
			return e.apply(gen, Decision{State: StateError, Reason: reasonRecordNotFound})
		}
		e.logger.Error("guard: role lookup failed",
			slog.String("principal", in.Principal.ID),
			slog.Any("error", err))
		// Transient failure: deny access but leave the mirror as-is so a
		// recovered lookup on reload does not flash unauthorized content.
		return e.apply(gen, Decision{State: StateError, Reason: reasonLookupFailed})
	}

	var warning string
	if in.CachedRole != "" && in.CachedRole != record.Role {
		warning = "cached role does not match authoritative role"
		e.logger.Warn("guard: role mismatch",
			slog.String("principal", in.Principal.ID),
			slog.String("cached", in.CachedRole),
			slog.String("authoritative", record.Role))
	}

	if record.Role == e.requiredRole {
		e.writeMirror(ctx, gen, MirrorEntry{
			UID:        in.Principal.ID,
			Email:      in.Principal.Email,
			Name:       pickName(record.Name, in.Principal.Email),
			Role:       record.Role,
			VerifiedAt: time.Now().UTC(),
		})
		return e.apply(gen, Decision{State: StateAllowed, Warning: warning})
	}

	e.clearMirror(ctx, gen)
	decision := e.apply(gen, Decision{State: StateDenied, ObservedRole: record.Role, Warning: warning})
	if decision.State == StateDenied {
		e.scheduleSignOut()
	}
	return decision
}

// EnsureMirror recreates the mirror when it is missing but the latest
// evaluation already granted access. This is the defense-in-depth
// fallback; it never grants access by itself.
func (e *Evaluator) EnsureMirror(ctx context.Context, p *Principal) error {
	e.mu.Lock()
	if e.closed || e.last.State != StateAllowed {
		e.mu.Unlock()
		return nil
	}
	gen := e.gen
	e.mu.Unlock()

	entry, err := e.mirror.Read(ctx)
	if err != nil {
		return err
	}
	if entry != nil {
		return nil
	}
	e.logger.Warn("guard: mirror missing for authorized session", slog.String("principal", p.ID))
	e.writeMirror(ctx, gen, MirrorEntry{
		UID:        p.ID,
		Email:      p.Email,
		Name:       pickName(p.Name, p.Email),
		Role:       e.requiredRole,
		VerifiedAt: time.Now().UTC(),
		Restored:   true,
	})
	return nil
}

// apply installs a decision unless a newer evaluation superseded it or
// the evaluator is closed. gen 0 marks decisions that need no lookup and
// therefore cannot go stale.
func (e *Evaluator) apply(gen uint64, d Decision) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.last
	}
	if gen != 0 && gen != e.gen {
		// A newer evaluation is in flight or already applied; discard.
		return e.last
	}
	if d.State != StateDenied && e.signOutTimer != nil {
		e.signOutTimer.Stop()
		e.signOutTimer = nil
	}
	e.last = d
	return d
}

func (e *Evaluator) writeMirror(ctx context.Context, gen uint64, entry MirrorEntry) {
	e.mu.Lock()
	stale := e.closed || (gen != 0 && gen != e.gen)
	e.mu.Unlock()
	if stale {
		return
	}
	if err := e.mirror.Write(ctx, entry); err != nil {
		e.logger.Warn("guard: write mirror", slog.Any("error", err))
	}
}

func (e *Evaluator) clearMirror(ctx context.Context, gen uint64) {
	e.mu.Lock()
	stale := e.closed || (gen != 0 && gen != e.gen)
	e.mu.Unlock()
	if stale {
		return
	}
	if err := e.mirror.Clear(ctx); err != nil {
		e.logger.Warn("guard: clear mirror", slog.Any("error", err))
	}
}

// scheduleSignOut arms the forced sign-out timer after a denial. A timer
// already pending is left alone so repeated evaluations cannot postpone
// the sign-out; any non-denied decision cancels it (see apply).
func (e *Evaluator) scheduleSignOut() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.signOutTimer != nil {
		return
	}
	e.signOutTimer = time.AfterFunc(e.signOutDelay, e.forceSignOut)
}

func (e *Evaluator) forceSignOut() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.signOutTimer = nil
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.identity.SignOut(ctx); err != nil {
		e.logger.Error("guard: forced sign-out", slog.Any("error", err))
	}
	if err := e.mirror.Clear(ctx); err != nil {
		e.logger.Warn("guard: clear mirror after sign-out", slog.Any("error", err))
	}
	if e.onForcedSignOut != nil {
		e.onForcedSignOut()
	}
}

func pickName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
