package database

import (
	"context"
	"errors"
	"fmt"
)

// Outcome is the terminal state of one migration run.
type Outcome string

const (
	OutcomeSkipped            Outcome = "skipped"
	OutcomeUpgradedClean      Outcome = "upgraded_clean"
	OutcomeUpgradedAfterReset Outcome = "upgraded_after_reset"
	OutcomeBootstrappedFresh  Outcome = "bootstrapped_fresh"
	OutcomeUpgradeFailed      Outcome = "upgrade_failed"
)

// MigrationResult is what Guard.Run reports. Err is set only for
// OutcomeUpgradeFailed.
type MigrationResult struct {
	Outcome Outcome
	Err     error
}

// ErrUnknownRevision means the version table points at a revision that is
// not part of the embedded migration history.
var ErrUnknownRevision = errors.New("recorded schema revision is not in the migration history")

// ErrUnmanaged is returned by backends that do not run migrations.
var ErrUnmanaged = errors.New("datastore schema is not managed by migrations")

// Backend is the datastore side of a migration run.
type Backend interface {
	// Managed is false for datastores whose schema is created directly.
	Managed() bool
	// Lock blocks until the cross-process migration lock is held or the
	// lock timeout passes. release must always be called.
	Lock(ctx context.Context) (release func(), err error)
	// Upgrade applies pending migrations. A stale version pointer is
	// reported as ErrUnknownRevision.
	Upgrade(ctx context.Context) error
	// ResetVersionTable drops the version bookkeeping so the next Upgrade
	// starts from scratch.
	ResetVersionTable(ctx context.Context) error
	// HasCoreTables reports whether any core domain table exists.
	HasCoreTables(ctx context.Context) (bool, error)
	// Bootstrap creates the full schema and marks it as current.
	Bootstrap(ctx context.Context) error
}

// Guard runs migrations once at startup. Run never returns an error and
// never panics; the caller decides how loudly to report the result.
type Guard struct {
	backend Backend
	enabled bool
	observe func(Outcome)
}

// GuardOption customises a Guard.
type GuardOption func(*Guard)

// WithObserver is called with the outcome of every Run.
func WithObserver(fn func(Outcome)) GuardOption {
	return func(g *Guard) { g.observe = fn }
}

// NewGuard returns a migration guard over b. A disabled guard always
// reports OutcomeSkipped.
func NewGuard(b Backend, enabled bool, opts ...GuardOption) *Guard {
	g := &Guard{backend: b, enabled: enabled, observe: func(Outcome) {}}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Run brings the schema up to date under the migration lock:
//
//	skip          disabled or unmanaged datastore
//	lock          wait for the named lock, always released before return
//	upgrade       apply pending migrations
//	reset+retry   once, when the recorded revision is unknown
//	bootstrap     create the schema when no core table exists afterwards
func (g *Guard) Run(ctx context.Context) (res MigrationResult) {
	defer func() {
		if r := recover(); r != nil {
			res = MigrationResult{Outcome: OutcomeUpgradeFailed, Err: fmt.Errorf("migration panic: %v", r)}
		}
		g.observe(res.Outcome)
	}()

	if !g.enabled || g.backend == nil || !g.backend.Managed() {
		return MigrationResult{Outcome: OutcomeSkipped}
	}

	release, err := g.backend.Lock(ctx)
	if err != nil {
		return failed("acquire migration lock", err)
	}
	defer release()

	outcome := OutcomeUpgradedClean
	err = g.backend.Upgrade(ctx)
	if errors.Is(err, ErrUnknownRevision) {
		if rerr := g.backend.ResetVersionTable(ctx); rerr != nil {
			return failed("reset version table", rerr)
		}
		outcome = OutcomeUpgradedAfterReset
		err = g.backend.Upgrade(ctx)
	}
	if err != nil {
		return failed("upgrade", err)
	}

	ok, err := g.backend.HasCoreTables(ctx)
	if err != nil {
		return failed("inspect schema", err)
	}
	if !ok {
		if err := g.backend.Bootstrap(ctx); err != nil {
			return failed("bootstrap schema", err)
		}
		outcome = OutcomeBootstrappedFresh
	}
	return MigrationResult{Outcome: outcome}
}

func failed(step string, err error) MigrationResult {
	return MigrationResult{Outcome: OutcomeUpgradeFailed, Err: fmt.Errorf("%s: %w", step, err)}
}
