package searchlog

import (
	"context"
	"testing"
	"time"

	"mealplan-backend/lib/telemetry"
	"mealplan-backend/lib/testutil"
	"mealplan-backend/lib/timezone"
	"mealplan-backend/services/searchlog/db"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func setup(t *testing.T) (Store, *fakeClock) {
	setup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/searchlog",
		DbSchema: db.Schema,
	})
	clock := &fakeClock{now: time.Date(2024, time.April, 2, 9, 30, 0, 0, timezone.Location)}
	return NewStore(setup.DB, WithClock(clock.Now)), clock
}

func TestLogAndGet(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	logged, err := store.Log(ctx, Entry{
		Email:   "a***@psu.edu",
		From:    "01/01/2024",
		To:      "03/31/2024",
		Success: true,
		Count:   42,
	})
	require.NoError(t, err)
	require.NotEmpty(t, logged.ID)
	require.True(t, logged.Time.Equal(time.Date(2024, time.April, 2, 9, 30, 0, 0, timezone.Location)))

	found, err := store.Get(ctx, logged.ID)
	require.NoError(t, err)
	require.Equal(t, logged, found)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, entries)

	var ids []string
	for i := 0; i < 3; i++ {
		entry, err := store.Log(ctx, Entry{
			Email:  "a***@psu.edu",
			From:   "01/01/2024",
			To:     "01/31/2024",
			Class:  "reenter_code",
			Reason: "invalid or expired one-time code (MfaMethodSelected)",
		})
		require.NoError(t, err)
		ids = append(ids, entry.ID)
		clock.Advance(time.Minute)
	}
	// same timestamp as the previous entry, insertion order breaks the tie
	clock.Advance(-time.Minute)
	last, err := store.Log(ctx, Entry{Email: "b***@psu.edu", From: "02/01/2024", To: "02/02/2024", Success: true})
	require.NoError(t, err)

	entries, err = store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	var listed []string
	for _, e := range entries {
		listed = append(listed, e.ID)
	}
	require.Equal(t, []string{last.ID, ids[2], ids[1], ids[0]}, listed)
	require.Equal(t, "reenter_code", entries[1].Class)
	require.False(t, entries[1].Success)

	entries, err = store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestPrune(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()

	old, err := store.Log(ctx, Entry{Email: "a***@psu.edu", From: "01/01/2024", To: "01/02/2024"})
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)
	recent, err := store.Log(ctx, Entry{Email: "a***@psu.edu", From: "01/01/2024", To: "01/02/2024"})
	require.NoError(t, err)

	deleted, err := store.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = store.Get(ctx, old.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, recent.ID)
	require.NoError(t, err)
}

type fakeCron struct {
	spec string
	job  func()
}

func (c *fakeCron) Cron(spec string, callback func()) error {
	c.spec = spec
	c.job = callback
	return nil
}

func TestScheduleRetention(t *testing.T) {
	setup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/searchlog",
		DbSchema: db.Schema,
	})
	clock := &fakeClock{now: time.Date(2024, time.April, 2, 9, 30, 0, 0, timezone.Location)}
	rec := &telemetry.Recorder{}
	store := NewStore(setup.DB, WithClock(clock.Now), WithCustomTelemetryAPI(rec))
	ctx := context.Background()

	cron := &fakeCron{}
	require.NoError(t, store.ScheduleRetention(ctx, cron, "", 24*time.Hour))
	require.Equal(t, DefaultRetentionSchedule, cron.spec)

	old, err := store.Log(ctx, Entry{Email: "a***@psu.edu", From: "01/01/2024", To: "01/02/2024"})
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)

	cron.job()
	_, err = store.Get(ctx, old.ID)
	require.ErrorIs(t, err, ErrNotFound)
	reports := rec.Reports()
	require.Len(t, reports, 1)
	require.Equal(t, "searchlog:"+report_prune_deleted, reports[0].ID)
	require.Equal(t, int64(1), reports[0].Count)

	unscheduled := &fakeCron{}
	require.NoError(t, store.ScheduleRetention(ctx, unscheduled, "@daily", 0))
	require.Nil(t, unscheduled.job)
}
