package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const nextFloorSequence = `-- name: NextFloorSequence :one
SELECT nextval($1::regclass)::bigint`

// NextFloorSequence draws from a native sequence. The draw survives rollback.
func (q *Queries) NextFloorSequence(ctx context.Context, seqName string) (int64, error) {
	row := q.db.QueryRow(ctx, nextFloorSequence, seqName)
	var next int64
	err := row.Scan(&next)
	return next, err
}

const bumpFloorCounter = `-- name: BumpFloorCounter :one
INSERT INTO floor_order_counters AS c (date, floor, last_no)
VALUES ($1, $2, 1)
ON CONFLICT (date, floor) DO UPDATE
SET last_no = c.last_no + 1
RETURNING c.last_no`

type BumpFloorCounterParams struct {
	Date  pgtype.Date `json:"date"`
	Floor string      `json:"floor"`
}

// BumpFloorCounter increments the (date, floor) counter row, creating it on
// first use, and returns the incremented value. The row stays locked until the
// surrounding transaction ends.
func (q *Queries) BumpFloorCounter(ctx context.Context, arg BumpFloorCounterParams) (int32, error) {
	row := q.db.QueryRow(ctx, bumpFloorCounter, arg.Date, arg.Floor)
	var lastNo int32
	err := row.Scan(&lastNo)
	return lastNo, err
}

const getFloorCounter = `-- name: GetFloorCounter :one
SELECT date, floor, last_no
FROM floor_order_counters
WHERE date = $1 AND floor = $2`

type GetFloorCounterParams struct {
	Date  pgtype.Date `json:"date"`
	Floor string      `json:"floor"`
}

func (q *Queries) GetFloorCounter(ctx context.Context, arg GetFloorCounterParams) (FloorOrderCounter, error) {
	row := q.db.QueryRow(ctx, getFloorCounter, arg.Date, arg.Floor)
	var i FloorOrderCounter
	err := row.Scan(&i.Date, &i.Floor, &i.LastNo)
	return i, err
}

const resetFloorSequence = `-- name: ResetFloorSequence :one
SELECT setval(
    $1::regclass,
    COALESCE((SELECT MAX(order_no) FROM orders WHERE floor = $2 AND order_date = $3), 0) + 1,
    false
)::bigint`

type ResetFloorSequenceParams struct {
	SeqName   string      `json:"seq_name"`
	Floor     string      `json:"floor"`
	OrderDate pgtype.Date `json:"order_date"`
}

// ResetFloorSequence points the sequence at one past the highest number
// already allocated for the given floor and date, and returns that value.
func (q *Queries) ResetFloorSequence(ctx context.Context, arg ResetFloorSequenceParams) (int64, error) {
	row := q.db.QueryRow(ctx, resetFloorSequence, arg.SeqName, arg.Floor, arg.OrderDate)
	var next int64
	err := row.Scan(&next)
	return next, err
}
