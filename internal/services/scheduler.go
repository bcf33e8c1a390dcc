package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ClockTime is a fixed daily wall-clock target (HH:MM).
type ClockTime struct {
	Hour   int
	Minute int
}

func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Next returns the next occurrence of the target strictly after now.
func (c ClockTime) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Scheduler drives the two daily actions: backup creation and the release
// of staged developer changes. Instead of polling every minute it computes
// the exact delay to the nearer target, arms a one-shot timer, and re-arms
// after each fire, so there is no drift and no double fire across a lagging
// tick.
type Scheduler struct {
	coord     *Coordinator
	backupAt  ClockTime
	releaseAt ClockTime
	now       func() time.Time
}

func NewScheduler(coord *Coordinator, backupAt, releaseAt ClockTime) *Scheduler {
	return &Scheduler{
		coord:     coord,
		backupAt:  backupAt,
		releaseAt: releaseAt,
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled, firing the scheduled actions as their
// instants arrive. A failed action never stops the loop; the next attempt
// is the next day's instant.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.now()
		nextBackup := s.backupAt.Next(now)
		nextRelease := s.releaseAt.Next(now)

		next := nextBackup
		runBackup := true
		if nextRelease.Before(nextBackup) {
			next = nextRelease
			runBackup = false
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if runBackup {
			s.fireBackup()
		} else {
			log.Printf("scheduler: releasing staged changes (%s)", s.releaseAt)
			s.coord.ReleasePendingChanges()
		}
	}
}

// fireBackup skips the cycle when a backup already ran this calendar day,
// which protects against a duplicate snapshot after a restart near the
// target instant. Release needs no such guard: it only touches changes
// still marked unapplied.
func (s *Scheduler) fireBackup() {
	if last := s.coord.LastBackup(); last != nil && sameCalendarDay(*last, s.now()) {
		log.Printf("scheduler: backup already ran today (%s), skipping", last.Format(time.RFC3339))
		return
	}
	log.Printf("scheduler: running daily backup (%s)", s.backupAt)
	s.coord.RunBackup()
}
