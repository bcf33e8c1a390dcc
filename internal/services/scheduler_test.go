package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/sitesync/internal/models"
)

func TestParseClockTime(t *testing.T) {
	ct, err := ParseClockTime("03:00")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 3, Minute: 0}, ct)
	assert.Equal(t, "03:00", ct.String())

	_, err = ParseClockTime("25:99")
	assert.Error(t, err)
	_, err = ParseClockTime("3am")
	assert.Error(t, err)
}

// TestClockTimeNext tests that the next instant is always strictly after now
func TestClockTimeNext(t *testing.T) {
	cutover := ClockTime{Hour: 3, Minute: 0}

	// Before today's target: fires today
	now := date(2026, 3, 10, 0, 30)
	assert.Equal(t, date(2026, 3, 10, 3, 0), cutover.Next(now))

	// After today's target: fires tomorrow
	now = date(2026, 3, 10, 14, 0)
	assert.Equal(t, date(2026, 3, 11, 3, 0), cutover.Next(now))

	// Exactly at the target: strictly after means tomorrow
	now = date(2026, 3, 10, 3, 0)
	assert.Equal(t, date(2026, 3, 11, 3, 0), cutover.Next(now))

	// Month rollover
	backup := ClockTime{Hour: 23, Minute: 59}
	now = date(2026, 3, 31, 23, 59)
	assert.Equal(t, date(2026, 4, 1, 23, 59), backup.Next(now))
}

func TestSameCalendarDay(t *testing.T) {
	assert.True(t, sameCalendarDay(date(2026, 3, 10, 0, 1), date(2026, 3, 10, 23, 59)))
	assert.False(t, sameCalendarDay(date(2026, 3, 10, 23, 59), date(2026, 3, 11, 0, 1)))
}

// TestSchedulerSkipsSameDayBackup tests the restart protection: a backup
// that already ran this calendar day is not repeated
func TestSchedulerSkipsSameDayBackup(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	setClock(coord, date(2026, 3, 10, 23, 59))
	require.True(t, coord.RunBackup())
	first := coord.LastBackup()
	require.NotNil(t, first)

	sched := NewScheduler(coord, ClockTime{Hour: 23, Minute: 59}, ClockTime{Hour: 3, Minute: 0})
	sched.now = func() time.Time { return date(2026, 3, 10, 23, 59) }

	// ACT: the instant fires again after a restart on the same day
	sched.fireBackup()

	// ASSERT: unchanged
	assert.Equal(t, first, coord.LastBackup())

	// The next day it runs again
	nextDay := date(2026, 3, 11, 23, 59)
	sched.now = func() time.Time { return nextDay }
	setClock(coord, nextDay)
	sched.fireBackup()
	require.NotNil(t, coord.LastBackup())
	assert.True(t, coord.LastBackup().After(*first))
}

// TestSchedulerReleaseIsSweepBased tests that release at the cutover applies
// everything staged regardless of individual scheduledFor values
func TestSchedulerReleaseIsSweepBased(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	dev, _ := connectClient(coord, models.RoleDevAdmin)

	// Staged just after the cutover, so scheduledFor points at tomorrow
	setClock(coord, date(2026, 3, 11, 3, 1))
	sendUpdate(coord, dev.ID, models.PriorityScheduled, `{"kind":"late_edit"}`)
	require.Equal(t, date(2026, 3, 12, 3, 0), coord.PendingChanges()[0].ScheduledFor)

	// An out-of-schedule sweep still releases it: the gate is the sweep
	// itself, not the per-change instant
	setClock(coord, date(2026, 3, 11, 3, 5))
	assert.Equal(t, 1, coord.ReleasePendingChanges())
	assert.Empty(t, coord.PendingChanges())
}
