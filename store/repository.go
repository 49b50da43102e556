package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ErrRecordNotFound is returned when no row matches the requested id.
// It wraps sql.ErrNoRows.
var ErrRecordNotFound = fmt.Errorf("record not found: %w", sql.ErrNoRows)

// Filter contributes conjunctive predicates to a select query.
// Implementations should be plain structs so that the query shape can be used as a cache key.
type Filter interface {
	Criteria() []repository.SelectCriteria
}

// Query is the full shape of a listing: predicates plus the page window.
type Query struct {
	Filter Filter
	Limit  int
	Offset int
}

// Repository is the storage collaborator for one entity type.
type Repository[T any] interface {
	GetByID(ctx context.Context, id int64) (T, error)
	List(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, f Filter) (int, error)
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, record T) (T, error)
	Delete(ctx context.Context, record T) error
}

// BunRepository implements Repository on a bun database. T must be a pointer to a bun model.
type BunRepository[T any] struct {
	db        *bun.DB
	newRecord func() T
}

// NewRepository builds a repository; newRecord returns an empty model used for reads.
func NewRepository[T any](db *bun.DB, newRecord func() T) *BunRepository[T] {
	return &BunRepository[T]{db: db, newRecord: newRecord}
}

// GetByID loads one row by primary key.
func (r *BunRepository[T]) GetByID(ctx context.Context, id int64) (T, error) {
	record := r.newRecord()
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, fmt.Errorf("id %d: %w", id, ErrRecordNotFound)
		}
		return zero, fmt.Errorf("select by id %d: %w", id, err)
	}
	return record, nil
}

// List returns the rows matching q in ascending id order.
func (r *BunRepository[T]) List(ctx context.Context, q Query) ([]T, error) {
	records := make([]T, 0)
	sel := r.db.NewSelect().Model(&records)
	sel = applyFilter(sel, q.Filter).OrderExpr("?TableAlias.id ASC")
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel = sel.Offset(q.Offset)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select list: %w", err)
	}
	return records, nil
}

// Count returns the number of rows matching f.
func (r *BunRepository[T]) Count(ctx context.Context, f Filter) (int, error) {
	sel := r.db.NewSelect().Model(r.newRecord())
	n, err := applyFilter(sel, f).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("select count: %w", err)
	}
	return n, nil
}

// Create inserts record in its own transaction and returns it with the assigned id.
func (r *BunRepository[T]) Create(ctx context.Context, record T) (T, error) {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("insert: %w", err)
	}
	return record, nil
}

// Update writes every column of record in its own transaction.
func (r *BunRepository[T]) Update(ctx context.Context, record T) (T, error) {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(record).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		return expectRow(res)
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("update: %w", err)
	}
	return record, nil
}

// Delete removes record in its own transaction.
func (r *BunRepository[T]) Delete(ctx context.Context, record T) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model(record).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		return expectRow(res)
	})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func applyFilter(sel *bun.SelectQuery, f Filter) *bun.SelectQuery {
	if f == nil {
		return sel
	}
	for _, criteria := range f.Criteria() {
		sel = criteria(sel)
	}
	return sel
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
