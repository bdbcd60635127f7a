package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

// codec converts between one entity type and its gorm record.
type codec[T any, Q any, R any] struct {
	id       func(T) string
	assignID func(T, string)
	toRecord func(T, projection.Metadata) *R
	toDomain func(*R) *projection.Projection[T]
	filter   func(*gorm.DB, Q) *gorm.DB
	limit    func(Q) int
}

// table implements ports.Table over a single relational table using a version column.
type table[T any, Q any, R any] struct {
	db    *gorm.DB
	codec codec[T, Q, R]
	now   func() time.Time
	newID func() string
}

func (t *table[T, Q, R]) Get(ctx context.Context, id string) (*projection.Projection[T], error) {
	if err := t.ensureDB(); err != nil {
		return nil, err
	}
	var rec R
	if err := t.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return t.codec.toDomain(&rec), nil
}

func (t *table[T, Q, R]) Create(ctx context.Context, record T) (*projection.Projection[T], error) {
	if err := t.ensureDB(); err != nil {
		return nil, err
	}
	if t.codec.id(record) == "" {
		t.codec.assignID(record, t.newID())
	}
	now := t.now()
	rec := t.codec.toRecord(record, projection.Metadata{CreatedAt: now, UpdatedAt: now, Version: 1})
	if err := t.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, translate(err)
	}
	return t.codec.toDomain(rec), nil
}

func (t *table[T, Q, R]) CompareAndUpdate(ctx context.Context, id string, expectedVersion int64, mutate ports.Mutator[T]) (*projection.Projection[T], error) {
	if err := t.ensureDB(); err != nil {
		return nil, err
	}
	db := t.db.WithContext(ctx)
	var current R
	if err := db.First(&current, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	stored := t.codec.toDomain(&current)
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
	meta := projection.Metadata{
		CreatedAt: stored.Metadata.CreatedAt,
		UpdatedAt: t.now(),
		Version:   expectedVersion + 1,
	}
	next := t.codec.toRecord(working, meta)
	res := db.Model(next).Select("*").Where("version = ?", expectedVersion).Updates(next)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s changed concurrently", ports.ErrConflict, id)
	}
	return t.codec.toDomain(next), nil
}

func (t *table[T, Q, R]) Query(ctx context.Context, q Q) ([]*projection.Projection[T], error) {
	if err := t.ensureDB(); err != nil {
		return nil, err
	}
	db := t.codec.filter(t.db.WithContext(ctx), q)
	limit := t.codec.limit(q)
	if limit > 0 {
		db = db.Order("created_at DESC").Order("id DESC").Limit(limit)
	} else {
		db = db.Order("created_at ASC").Order("id ASC")
	}
	var recs []R
	if err := db.Find(&recs).Error; err != nil {
		return nil, translate(err)
	}
	if limit > 0 {
		slices.Reverse(recs)
	}
	list := make([]*projection.Projection[T], 0, len(recs))
	for i := range recs {
		list = append(list, t.codec.toDomain(&recs[i]))
	}
	return list, nil
}

func (t *table[T, Q, R]) ensureDB() error {
	if t == nil || t.db == nil {
		return fmt.Errorf("%w: postgres connection not configured", ports.ErrStoreUnavailable)
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ports.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "23505"):
		return fmt.Errorf("%w: %v", ports.ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, err)
	}
}

func cityFilter(db *gorm.DB, city string) *gorm.DB {
	city = strings.TrimSpace(city)
	if city == "" {
		return db
	}
	return db.Where("LOWER(city) = LOWER(?)", city)
}
