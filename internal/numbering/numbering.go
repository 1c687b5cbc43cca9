// Package numbering allocates per-floor, per-day order numbers. Two
// strategies share the Allocator interface: a native Postgres sequence per
// floor, and a (date, floor) counter row for stores without sequences.
//
// Both run inside the caller's transaction. Each attempt gets its own
// savepoint so a unique violation on uq_floor_date_no can be retried without
// aborting the order being created.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/enum"
	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Strategy names accepted by New.
const (
	StrategySequence = "sequence"
	StrategyCounter  = "counter"
)

const maxCounterRetries = 3

// uniqueOrderNumber is the partial unique index over (floor, order_date, order_no).
const uniqueOrderNumber = "uq_floor_date_no"

// Store defines the DB methods needed to allocate order numbers.
// Satisfied by *database.Queries.
type Store interface {
	NextFloorSequence(ctx context.Context, seqName string) (int64, error)
	BumpFloorCounter(ctx context.Context, arg database.BumpFloorCounterParams) (int32, error)
	AssignOrderNumber(ctx context.Context, arg database.AssignOrderNumberParams) error
}

// NewStore creates a Store bound to a DBTX (here always a savepoint).
type NewStore func(db database.DBTX) Store

// Number is an allocated order number and the local date it belongs to.
type Number struct {
	OrderNo   int32
	OrderDate time.Time
}

// Allocator assigns the next order number for floor to the order. The date
// is the local calendar date of at.
type Allocator interface {
	Allocate(ctx context.Context, tx pgx.Tx, orderID int64, floor string, at time.Time) (Number, error)
}

// New returns the allocator for strategy.
func New(strategy string, newStore NewStore, loc *time.Location) (Allocator, error) {
	switch strategy {
	case StrategySequence:
		return NewSequenceAllocator(newStore, loc), nil
	case StrategyCounter:
		return NewCounterAllocator(newStore, loc), nil
	}
	return nil, fmt.Errorf("unknown numbering strategy %q", strategy)
}

// SequenceName is the native sequence backing floor.
func SequenceName(floor string) string {
	return "orders_floor_" + strings.ToLower(floor) + "_seq"
}

// SequenceAllocator draws from orders_floor_<floor>_seq and redraws until
// the number can be written. Values drawn by failed attempts are skipped.
type SequenceAllocator struct {
	newStore NewStore
	loc      *time.Location
}

func NewSequenceAllocator(newStore NewStore, loc *time.Location) *SequenceAllocator {
	return &SequenceAllocator{newStore: newStore, loc: loc}
}

func (a *SequenceAllocator) Allocate(ctx context.Context, tx pgx.Tx, orderID int64, floor string, at time.Time) (Number, error) {
	if !enum.IsFloor(floor) {
		return Number{}, ordering.Validation("invalid floor %q", floor)
	}
	date := ordering.LocalDate(at, a.loc)
	seq := SequenceName(floor)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Number{}, fmt.Errorf("%w: %w", ordering.ErrAllocation, err)
		}
		n, err := a.attempt(ctx, tx, orderID, seq, date)
		if err == nil {
			return Number{OrderNo: n, OrderDate: date}, nil
		}
		if !isNumberConflict(err) {
			return Number{}, err
		}
		log.Printf("WARN: order %d: number conflict on floor %s (attempt %d), redrawing", orderID, floor, attempt)
	}
}

func (a *SequenceAllocator) attempt(ctx context.Context, tx pgx.Tx, orderID int64, seq string, date time.Time) (int32, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin savepoint: %w", err)
	}
	defer sp.Rollback(ctx) //nolint:errcheck

	store := a.newStore(sp)

	next, err := store.NextFloorSequence(ctx, seq)
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", seq, err)
	}
	if next < 1 || next > math.MaxInt32 {
		return 0, fmt.Errorf("%s returned out of range value %d", seq, next)
	}

	if err := store.AssignOrderNumber(ctx, database.AssignOrderNumberParams{
		ID:        orderID,
		OrderNo:   int32(next),
		OrderDate: pgtype.Date{Time: date, Valid: true},
	}); err != nil {
		return 0, fmt.Errorf("assign order number: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return 0, fmt.Errorf("release savepoint: %w", err)
	}
	return int32(next), nil
}

// CounterAllocator increments floor_order_counters for (date, floor). The
// upsert row lock serializes concurrent writers for the same key until the
// order transaction ends.
type CounterAllocator struct {
	newStore NewStore
	loc      *time.Location
}

func NewCounterAllocator(newStore NewStore, loc *time.Location) *CounterAllocator {
	return &CounterAllocator{newStore: newStore, loc: loc}
}

func (a *CounterAllocator) Allocate(ctx context.Context, tx pgx.Tx, orderID int64, floor string, at time.Time) (Number, error) {
	if !enum.IsFloor(floor) {
		return Number{}, ordering.Validation("invalid floor %q", floor)
	}
	date := ordering.LocalDate(at, a.loc)

	var lastErr error
	for attempt := 1; attempt <= maxCounterRetries; attempt++ {
		n, err := a.attempt(ctx, tx, orderID, floor, date)
		if err == nil {
			return Number{OrderNo: n, OrderDate: date}, nil
		}
		if !isNumberConflict(err) && !isTransient(err) {
			return Number{}, err
		}
		log.Printf("WARN: order %d: counter conflict on floor %s (attempt %d/%d): %v", orderID, floor, attempt, maxCounterRetries, err)
		lastErr = err
	}
	return Number{}, fmt.Errorf("%w: floor %s after %d attempts: %w", ordering.ErrAllocation, floor, maxCounterRetries, lastErr)
}

func (a *CounterAllocator) attempt(ctx context.Context, tx pgx.Tx, orderID int64, floor string, date time.Time) (int32, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin savepoint: %w", err)
	}
	defer sp.Rollback(ctx) //nolint:errcheck

	store := a.newStore(sp)
	pgDate := pgtype.Date{Time: date, Valid: true}

	next, err := store.BumpFloorCounter(ctx, database.BumpFloorCounterParams{Date: pgDate, Floor: floor})
	if err != nil {
		return 0, fmt.Errorf("bump floor counter: %w", err)
	}

	if err := store.AssignOrderNumber(ctx, database.AssignOrderNumberParams{
		ID:        orderID,
		OrderNo:   next,
		OrderDate: pgDate,
	}); err != nil {
		return 0, fmt.Errorf("assign order number: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return 0, fmt.Errorf("release savepoint: %w", err)
	}
	return next, nil
}

// isNumberConflict checks for a unique violation (23505) on the order number index.
func isNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == uniqueOrderNumber
	}
	return false
}

// isTransient checks for serialization failures and deadlocks.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
