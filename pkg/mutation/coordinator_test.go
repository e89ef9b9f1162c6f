package mutation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperhub/admindata/pkg/domain"
	"github.com/paperhub/admindata/pkg/entitycache"
	"github.com/paperhub/admindata/pkg/logger"
)

type record struct {
	ID    int
	Rate  float64
	Notes string
}

func newRecordCache(items []record) *entitycache.Cache[record] {
	cache := entitycache.New(func(ctx context.Context) ([]record, error) {
		return items, nil
	})
	return cache
}

func baseOptions(cache *entitycache.Cache[record], id int) Options[record] {
	return Options[record]{
		Cache: cache,
		Match: func(r record) bool { return r.ID == id },
		Apply: func(r record) record {
			r.Rate = 20
			return r
		},
	}
}

func TestCommitReconcilesAuthoritativeEntity(t *testing.T) {
	cache := newRecordCache([]record{{ID: 1, Rate: 10, Notes: "keep"}, {ID: 2, Rate: 15}})
	coord := NewCoordinator(logger.New("error"))

	opts := baseOptions(cache, 1)
	opts.Invoke = func(ctx context.Context) (*record, error) {
		// The server omits Notes; reconcile must not regress it
		return &record{ID: 1, Rate: 21}, nil
	}
	opts.Reconcile = func(optimistic, authoritative record) record {
		if authoritative.Notes == "" {
			authoritative.Notes = optimistic.Notes
		}
		return authoritative
	}

	outcome, err := Run(context.Background(), coord, "record:1", opts)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)

	items, ok := cache.Peek()
	require.True(t, ok)
	assert.Equal(t, 21.0, items[0].Rate)
	assert.Equal(t, "keep", items[0].Notes)
	assert.Equal(t, 15.0, items[1].Rate)
}

func TestRollbackRestoresSnapshotExactly(t *testing.T) {
	original := []record{{ID: 1, Rate: 10}, {ID: 2, Rate: 15, Notes: "untouched"}}
	cache := newRecordCache(original)
	coord := NewCoordinator(logger.New("error"))

	snapshot, err := cache.Get(context.Background())
	require.NoError(t, err)

	var observed [][]record
	cache.Subscribe(func(items []record) {
		observed = append(observed, items)
	})

	opts := baseOptions(cache, 1)
	opts.Invoke = func(ctx context.Context) (*record, error) {
		return nil, domain.NewUpstreamValidationError(422, "rate out of range")
	}

	outcome, err := Run(context.Background(), coord, "record:1", opts)

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, OutcomeRolledBack, outcome)

	// Subscribers saw the optimistic apply, then the exact revert
	require.Len(t, observed, 2)
	assert.Equal(t, 20.0, observed[0][0].Rate)
	assert.Equal(t, snapshot, observed[1])

	items, ok := cache.Peek()
	require.True(t, ok)
	assert.Equal(t, snapshot, items)
}

func TestDegradedModePersistsAndKeepsOptimistic(t *testing.T) {
	cache := newRecordCache([]record{{ID: 1, Rate: 10}})
	coord := NewCoordinator(logger.New("error"))

	persisted := false
	opts := baseOptions(cache, 1)
	opts.Invoke = func(ctx context.Context) (*record, error) {
		return nil, domain.NewUnreachableError(nil)
	}
	opts.Persist = func(ctx context.Context) error {
		persisted = true
		return nil
	}

	outcome, err := Run(context.Background(), coord, "record:1", opts)

	// Degraded fallback is indistinguishable from a real success
	require.NoError(t, err)
	assert.Equal(t, OutcomeDegraded, outcome)
	assert.True(t, persisted)

	items, ok := cache.Peek()
	require.True(t, ok)
	assert.Equal(t, 20.0, items[0].Rate)
}

func TestDegradedPersistFailureRollsBack(t *testing.T) {
	cache := newRecordCache([]record{{ID: 1, Rate: 10}})
	coord := NewCoordinator(logger.New("error"))

	snapshot, err := cache.Get(context.Background())
	require.NoError(t, err)

	opts := baseOptions(cache, 1)
	opts.Invoke = func(ctx context.Context) (*record, error) {
		return nil, domain.NewUnreachableError(nil)
	}
	opts.Persist = func(ctx context.Context) error {
		return assert.AnError
	}

	outcome, err := Run(context.Background(), coord, "record:1", opts)

	require.Error(t, err)
	assert.Equal(t, OutcomeRolledBack, outcome)

	items, _ := cache.Peek()
	assert.Equal(t, snapshot, items)
}

func TestMissingTargetFailsWithoutPublishing(t *testing.T) {
	cache := newRecordCache([]record{{ID: 1, Rate: 10}})
	coord := NewCoordinator(logger.New("error"))

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	var publishes int
	cache.Subscribe(func([]record) { publishes++ })

	opts := baseOptions(cache, 99)
	opts.Invoke = func(ctx context.Context) (*record, error) {
		t.Fatal("gateway must not be invoked for a missing target")
		return nil, nil
	}

	_, err = Run(context.Background(), coord, "record:99", opts)

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Zero(t, publishes)
}

func TestSuccessWithoutEntityKeepsOptimistic(t *testing.T) {
	cache := newRecordCache([]record{{ID: 1, Rate: 10}})
	coord := NewCoordinator(logger.New("error"))

	var publishes int
	cache.Subscribe(func([]record) { publishes++ })

	opts := baseOptions(cache, 1)
	opts.Invoke = func(ctx context.Context) (*record, error) {
		// Message-only success, no entity to reconcile
		return nil, nil
	}

	outcome, err := Run(context.Background(), coord, "record:1", opts)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)

	items, _ := cache.Peek()
	assert.Equal(t, 20.0, items[0].Rate)

	// Exactly one publish: the optimistic apply, which became the commit
	assert.Equal(t, 1, publishes)
}

func TestSameKeyMutationsCompose(t *testing.T) {
	cache := newRecordCache([]record{{ID: 1, Rate: 10, Notes: ""}})
	coord := NewCoordinator(logger.New("error"))

	firstInFlight := make(chan struct{})
	releaseFirst := make(chan struct{})

	first := Options[record]{
		Cache: cache,
		Match: func(r record) bool { return r.ID == 1 },
		Apply: func(r record) record {
			r.Rate = 20
			return r
		},
		Invoke: func(ctx context.Context) (*record, error) {
			close(firstInFlight)
			<-releaseFirst
			return nil, nil
		},
	}

	second := Options[record]{
		Cache: cache,
		Match: func(r record) bool { return r.ID == 1 },
		Apply: func(r record) record {
			r.Notes = "second edit"
			return r
		},
		Invoke: func(ctx context.Context) (*record, error) {
			return nil, nil
		},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := Run(context.Background(), coord, "record:1", first)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		<-firstInFlight
		releaseFirst <- struct{}{}
		_, err := Run(context.Background(), coord, "record:1", second)
		assert.NoError(t, err)
	}()
	wg.Wait()

	// The second mutation snapshotted after the first committed, so both
	// edits survive
	items, _ := cache.Peek()
	assert.Equal(t, 20.0, items[0].Rate)
	assert.Equal(t, "second edit", items[0].Notes)
}
