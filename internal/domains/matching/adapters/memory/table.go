package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

// entityOps adapts one entity type to the generic table.
type entityOps[T any, Q any] struct {
	clone    func(T) T
	id       func(T) string
	assignID func(T, string)
	accepts  func(Q, *projection.Projection[T]) bool
	limit    func(Q) int
	// conflicts reports a uniqueness violation between a stored record and a candidate write.
	conflicts func(stored, candidate T) bool
}

type entry[T any] struct {
	entity T
	meta   projection.Metadata
	seq    uint64
}

// Table is an in-memory versioned collection. Reads return clones; the
// mutator of CompareAndUpdate runs under the table lock and must not call
// back into the store.
type Table[T any, Q any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
	seq     uint64
	ops     entityOps[T, Q]
	env     *environment
}

func newTable[T any, Q any](env *environment, ops entityOps[T, Q]) *Table[T, Q] {
	return &Table[T, Q]{entries: map[string]*entry[T]{}, ops: ops, env: env}
}

func (t *Table[T, Q]) Get(ctx context.Context, id string) (*projection.Projection[T], error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return t.snapshot(e), nil
}

func (t *Table[T, Q]) Create(ctx context.Context, record T) (*projection.Projection[T], error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	clone := t.ops.clone(record)
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.ops.id(clone)
	if id == "" {
		id = t.env.newID()
		t.ops.assignID(clone, id)
	}
	if _, exists := t.entries[id]; exists {
		return nil, fmt.Errorf("%w: record %s already exists", ports.ErrConflict, id)
	}
	if err := t.checkUnique(id, clone); err != nil {
		return nil, err
	}
	now := t.env.now()
	t.seq++
	e := &entry[T]{
		entity: clone,
		meta:   projection.Metadata{CreatedAt: now, UpdatedAt: now, Version: 1},
		seq:    t.seq,
	}
	t.entries[id] = e
	return t.snapshot(e), nil
}

func (t *Table[T, Q]) CompareAndUpdate(ctx context.Context, id string, expectedVersion int64, mutate ports.Mutator[T]) (*projection.Projection[T], error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if e.meta.Version != expectedVersion {
		return nil, fmt.Errorf("%w: %s at version %d, expected %d", ports.ErrConflict, id, e.meta.Version, expectedVersion)
	}
	working := t.ops.clone(e.entity)
	if mutate != nil {
		if err := mutate(working); err != nil {
			return nil, err
		}
	}
	t.ops.assignID(working, id)
	if err := t.checkUnique(id, working); err != nil {
		return nil, err
	}
	e.entity = working
	e.meta.Version++
	e.meta.UpdatedAt = t.env.now()
	return t.snapshot(e), nil
}

func (t *Table[T, Q]) Query(ctx context.Context, q Q) ([]*projection.Projection[T], error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	t.mu.RLock()
	matched := make([]*entry[T], 0, len(t.entries))
	for _, e := range t.entries {
		p := &projection.Projection[T]{Entity: e.entity, Metadata: e.meta}
		if t.ops.accepts(q, p) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.meta.CreatedAt.Equal(b.meta.CreatedAt) {
			return a.meta.CreatedAt.Before(b.meta.CreatedAt)
		}
		return a.seq < b.seq
	})
	if limit := t.ops.limit(q); limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	list := make([]*projection.Projection[T], 0, len(matched))
	for _, e := range matched {
		list = append(list, t.snapshot(e))
	}
	t.mu.RUnlock()
	return list, nil
}

func (t *Table[T, Q]) checkUnique(id string, candidate T) error {
	if t.ops.conflicts == nil {
		return nil
	}
	for otherID, other := range t.entries {
		if otherID == id {
			continue
		}
		if t.ops.conflicts(other.entity, candidate) {
			return fmt.Errorf("%w: %s collides with %s", ports.ErrConflict, id, otherID)
		}
	}
	return nil
}

func (t *Table[T, Q]) snapshot(e *entry[T]) *projection.Projection[T] {
	return &projection.Projection[T]{Entity: t.ops.clone(e.entity), Metadata: e.meta}
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

type environment struct {
	now   func() time.Time
	newID func() string
}
