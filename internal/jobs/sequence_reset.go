// Package jobs holds scheduled background tasks built on robfig/cron.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/numbering"
	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/robfig/cron/v3"
)

// resetTimeout bounds one run across all floors.
const resetTimeout = 30 * time.Second

// SequenceStore is the DB method the reset job needs.
// Satisfied by *database.Queries.
type SequenceStore interface {
	ResetFloorSequence(ctx context.Context, arg database.ResetFloorSequenceParams) (int64, error)
}

// SequenceResetJob restarts each floor's native order sequence so numbering
// starts over on a new local day. Numbers already handed out today are kept:
// the sequence is set to one past today's highest order_no.
type SequenceResetJob struct {
	store  SequenceStore
	floors []string
	loc    *time.Location
	now    func() time.Time
	cron   *cron.Cron
}

// NewSequenceResetJob creates the job. The schedule is evaluated in loc.
func NewSequenceResetJob(store SequenceStore, floors []string, loc *time.Location) *SequenceResetJob {
	return &SequenceResetJob{
		store:  store,
		floors: floors,
		loc:    loc,
		now:    time.Now,
		cron:   cron.New(cron.WithLocation(loc)),
	}
}

// Start registers the job under spec and starts the scheduler.
func (j *SequenceResetJob) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
		defer cancel()
		if err := j.Run(ctx); err != nil {
			log.Printf("ERROR: sequence reset: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	j.cron.Start()
	log.Printf("sequence reset job started (%s, %s)", spec, j.loc)
	return nil
}

// Stop stops the scheduler and waits for a running reset to finish.
func (j *SequenceResetJob) Stop() {
	<-j.cron.Stop().Done()
	log.Printf("sequence reset job stopped")
}

// Run resets every floor once. A failing floor does not stop the others;
// the first error is returned.
func (j *SequenceResetJob) Run(ctx context.Context) error {
	date := pgtype.Date{Time: ordering.LocalDate(j.now(), j.loc), Valid: true}

	var firstErr error
	for _, floor := range j.floors {
		next, err := j.store.ResetFloorSequence(ctx, database.ResetFloorSequenceParams{
			SeqName:   numbering.SequenceName(floor),
			Floor:     floor,
			OrderDate: date,
		})
		if err != nil {
			log.Printf("ERROR: reset sequence for floor %s: %v", floor, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("floor %s: %w", floor, err)
			}
			continue
		}
		log.Printf("floor %s: next order number on %s is %d", floor, date.Time.Format(time.DateOnly), next)
	}
	return firstErr
}
