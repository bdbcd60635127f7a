package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

// rowCodec converts between one entity type and its sqlx row.
type rowCodec[T any, Q any, R any] struct {
	table    string
	columns  []string
	id       func(T) string
	assignID func(T, string)
	toRow    func(T, projection.Metadata) (*R, error)
	toDomain func(*R) (*projection.Projection[T], error)
	// where returns AND-joined predicates and their arguments.
	where func(Q) ([]string, []any)
	limit func(Q) int
}

type table[T any, Q any, R any] struct {
	db    *sqlx.DB
	codec rowCodec[T, Q, R]
	now   func() time.Time
	newID func() string
}

func (t *table[T, Q, R]) Get(ctx context.Context, id string) (*projection.Projection[T], error) {
	if err := t.ensureDB(); err != nil {
		return nil, err
	}
	row, err := t.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.decode(row)
}

func (t *table[T, Q, R]) Create(ctx context.Context, record T) (*projection.Projection[T], error) {
	if err := t.ensureDB(); err != nil {
		return nil, err
	}
	if t.codec.id(record) == "" {
		t.codec.assignID(record, t.newID())
	}
	now := t.now()
	row, err := t.codec.toRow(record, projection.Metadata{CreatedAt: now, UpdatedAt: now, Version: 1})
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		t.codec.table, strings.Join(t.codec.columns, ", "), strings.Join(t.codec.columns, ", :"))
	if _, err := t.db.NamedExecContext(ctx, query, row); err != nil {
		return nil, translate(err)
	}
	return t.decode(row)
}

func (t *table[T, Q, R]) CompareAndUpdate(ctx context.Context, id string, expectedVersion int64, mutate ports.Mutator[T]) (*projection.Projection[T], error) {
	if err := t.ensureDB(); err != nil {
		return nil, err
	}
	current, err := t.load(ctx, id)
	if err != nil {
		return nil, err
	}
	stored, err := t.decode(current)
	if err != nil {
		return nil, err
	}
	if stored.Metadata.Version != expectedVersion {
		return nil, fmt.Errorf("%w: %s at version %d, expected %d", ports.ErrConflict, id, stored.Metadata.Version, expectedVersion)
	}
	working := stored.Entity
	if mutate != nil {
		if err := mutate(working); err != nil {
			return nil, err
		}
	}
	t.codec.assignID(working, id)
	next, err := t.codec.toRow(working, projection.Metadata{
		CreatedAt: stored.Metadata.CreatedAt,
		UpdatedAt: t.now(),
		Version:   expectedVersion + 1,
	})
	if err != nil {
		return nil, err
	}

	assignments := make([]string, 0, len(t.codec.columns))
	for _, col := range t.codec.columns {
		if col == "id" || col == "created_at" {
			continue
		}
		assignments = append(assignments, col+" = :"+col)
	}
	named := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", t.codec.table, strings.Join(assignments, ", "))
	query, args, err := sqlx.Named(named, next)
	if err != nil {
		return nil, err
	}
	query += " AND version = ?"
	args = append(args, expectedVersion)
	res, err := t.db.ExecContext(ctx, t.db.Rebind(query), args...)
	if err != nil {
		return nil, translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, translate(err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: %s changed concurrently", ports.ErrConflict, id)
	}
	return t.decode(next)
}

func (t *table[T, Q, R]) Query(ctx context.Context, q Q) ([]*projection.Projection[T], error) {
	if err := t.ensureDB(); err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(t.codec.columns, ", "), t.codec.table)
	predicates, args := t.codec.where(q)
	if len(predicates) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(predicates, " AND "))
	}
	limit := t.codec.limit(q)
	if limit > 0 {
		b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?")
		args = append(args, limit)
	} else {
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	}

	var rows []R
	if err := t.db.SelectContext(ctx, &rows, t.db.Rebind(b.String()), args...); err != nil {
		return nil, translate(err)
	}
	if limit > 0 {
		slices.Reverse(rows)
	}
	list := make([]*projection.Projection[T], 0, len(rows))
	for i := range rows {
		p, err := t.decode(&rows[i])
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

func (t *table[T, Q, R]) load(ctx context.Context, id string) (*R, error) {
	var row R
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(t.codec.columns, ", "), t.codec.table)
	if err := t.db.GetContext(ctx, &row, t.db.Rebind(query), id); err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (t *table[T, Q, R]) decode(row *R) (*projection.Projection[T], error) {
	p, err := t.codec.toDomain(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, err)
	}
	return p, nil
}

func (t *table[T, Q, R]) ensureDB() error {
	if t == nil || t.db == nil {
		return fmt.Errorf("%w: sqlite database not configured", ports.ErrStoreUnavailable)
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ports.ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ports.ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, err)
	}
}

func inClause(column string, n int) string {
	return column + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}
