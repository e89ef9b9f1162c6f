package mutation

import (
	"context"
	"sync"

	"github.com/paperhub/admindata/pkg/domain"
	"github.com/paperhub/admindata/pkg/entitycache"
	"github.com/paperhub/admindata/pkg/logger"
)

// Outcome reports how a mutation concluded
type Outcome string

const (
	// OutcomeCommitted means the server confirmed the mutation and the
	// authoritative entity was reconciled into the cache
	OutcomeCommitted Outcome = "committed"
	// OutcomeDegraded means the upstream was unreachable, the change was
	// persisted to the fallback store and the optimistic collection stands
	OutcomeDegraded Outcome = "degraded"
	// OutcomeRolledBack means the server rejected the mutation and the
	// pre-mutation snapshot was restored
	OutcomeRolledBack Outcome = "rolled_back"
)

// Coordinator serializes mutations per (entity type, id) so that two rapid
// edits of the same entity compose instead of racing each other's rollback.
// Mutations on different keys proceed independently.
type Coordinator struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	logger logger.Logger
}

// NewCoordinator creates a mutation coordinator
func NewCoordinator(log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Default()
	}
	return &Coordinator{
		locks:  make(map[string]*sync.Mutex),
		logger: log,
	}
}

func (c *Coordinator) lock(key string) func() {
	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Options describes one optimistic mutation over a cached collection.
// Match selects the targeted entity, Apply merges the new partial state into
// it, Invoke performs the gateway call, Reconcile folds the authoritative
// entity over the optimistic one, and Persist writes the change to the
// fallback store when the gateway reports the upstream unreachable.
type Options[T any] struct {
	Cache     *entitycache.Cache[T]
	Match     func(T) bool
	Apply     func(T) T
	Invoke    func(ctx context.Context) (*T, error)
	Reconcile func(optimistic, authoritative T) T
	Persist   func(ctx context.Context) error
}

// Run executes the five-step optimistic mutation protocol: snapshot,
// apply-locally, invoke-gateway, commit-or-rollback, notify.
//
// The snapshot is taken after acquiring the per-key lock, so a second
// mutation on the same key observes the first one's committed state. On any
// failure other than an unreachable upstream the snapshot is restored
// exactly and the error surfaces to the caller.
func Run[T any](ctx context.Context, c *Coordinator, key string, opts Options[T]) (Outcome, error) {
	unlock := c.lock(key)
	defer unlock()

	// Step 1: snapshot the current cached collection
	snapshot, err := opts.Cache.Get(ctx)
	if err != nil {
		return OutcomeRolledBack, err
	}

	// Step 2: apply locally and publish immediately
	optimistic := make([]T, len(snapshot))
	targetIdx := -1
	for i, item := range snapshot {
		if opts.Match(item) {
			optimistic[i] = opts.Apply(item)
			targetIdx = i
		} else {
			optimistic[i] = item
		}
	}
	if targetIdx == -1 {
		return OutcomeRolledBack, domain.NewNotFoundError("entity " + key)
	}
	opts.Cache.Publish(optimistic)

	// Step 3: invoke the gateway
	authoritative, err := opts.Invoke(ctx)

	// Step 4: commit, fall back or roll back
	switch {
	case err == nil:
		if authoritative != nil && opts.Reconcile != nil {
			committed := make([]T, len(optimistic))
			copy(committed, optimistic)
			committed[targetIdx] = opts.Reconcile(optimistic[targetIdx], *authoritative)
			// Step 5: notify with the committed collection
			opts.Cache.Publish(committed)
		}
		return OutcomeCommitted, nil

	case domain.IsUnreachable(err):
		// No authoritative response to reconcile against: persist the change
		// and keep the already-published optimistic collection as committed.
		// To the caller this is indistinguishable from a real success.
		if opts.Persist != nil {
			if perr := opts.Persist(ctx); perr != nil {
				c.logger.Error("failed persisting degraded-mode change", "key", key, "error", perr)
				opts.Cache.Publish(snapshot)
				return OutcomeRolledBack, domain.NewInternalError(perr)
			}
		}
		c.logger.Warn("mutation committed in degraded mode", "key", key)
		return OutcomeDegraded, nil

	default:
		// Step 5: notify with the restored snapshot
		opts.Cache.Publish(snapshot)
		c.logger.Warn("mutation rolled back", "key", key, "error", err)
		return OutcomeRolledBack, err
	}
}
