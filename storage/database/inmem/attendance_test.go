package inmemdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/core/notification"
	inmemdb "github.com/shankerdev/campus/storage/database/inmem"
	"github.com/shankerdev/campus/testutil"
)

func TestAttendanceRepository_MarkAttendance(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	accounts := inmemdb.NewAccountRepository(db)
	repo := inmemdb.NewAttendanceRepository(db)
	profiles := inmemdb.NewProfileRepository(db)

	asha := testutil.CreateAccount(t, accounts, "Asha", "asha@campus.np", "", account.RoleStudent, true, "")
	bikash := testutil.CreateAccount(t, accounts, "Bikash", "bikash@campus.np", "", account.RoleStudent, true, "")
	day := testutil.Date(2026, time.October, 12)

	t.Run("a batch with an unknown student writes nothing", func(t *testing.T) {
		_, err := repo.MarkAttendance(ctx, []attendance.Mark{
			{StudentID: asha.ID, Date: day, Present: true},
			{StudentID: "unknown", Date: day, Present: true},
		})
		require.True(t, core.IsNotFound(err), err)

		recs, err := repo.QueryRecords(ctx, attendance.RecordFilter{})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("same day twice in a batch counts once", func(t *testing.T) {
		res, err := repo.MarkAttendance(ctx, []attendance.Mark{
			{StudentID: asha.ID, TeacherID: "t-1", Date: day, Present: false},
			{StudentID: bikash.ID, TeacherID: "t-1", Date: day, Present: true},
			{StudentID: asha.ID, TeacherID: "t-1", Date: day, Present: true},
		})
		require.NoError(t, err)
		require.Len(t, res, 3)
		assert.Equal(t, attendance.TransitionCreated, res[0].Transition)
		assert.Equal(t, attendance.TransitionChanged, res[2].Transition)
		assert.Equal(t, res[0].Record.ID, res[2].Record.ID)
		assert.Equal(t, 1, res[2].Profile.TotalDays)
		assert.Equal(t, 1, res[2].Profile.AttendedDays)
		// every result carries the final profile
		assert.Equal(t, res[2].Profile, res[0].Profile)
	})

	t.Run("remarking leaves a single record", func(t *testing.T) {
		res, err := repo.MarkAttendance(ctx, []attendance.Mark{{StudentID: asha.ID, Date: day, Present: true}})
		require.NoError(t, err)
		assert.Equal(t, attendance.TransitionUnchanged, res[0].Transition)

		res, err = repo.MarkAttendance(ctx, []attendance.Mark{{StudentID: asha.ID, Date: day.AddDays(1), Present: false}})
		require.NoError(t, err)
		assert.Equal(t, attendance.TransitionCreated, res[0].Transition)

		recs, err := repo.QueryRecords(ctx, attendance.RecordFilter{StudentID: asha.ID})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.True(t, recs[0].Date.After(recs[1].Date), "newest first")

		recs, err = repo.QueryRecords(ctx, attendance.RecordFilter{StudentID: asha.ID, From: day, To: day.AddDays(1)})
		require.NoError(t, err)
		assert.Len(t, recs, 1)

		p, err := profiles.GetOrCreateProfile(ctx, asha.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, p.TotalDays)
		assert.Equal(t, 1, p.AttendedDays)
	})
}

func TestAttendanceRepository_ConcurrentMarks(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	repo := inmemdb.NewAttendanceRepository(db)
	asha := testutil.CreateAccount(t, inmemdb.NewAccountRepository(db), "Asha", "asha@campus.np", "", account.RoleStudent, true, "")
	day := testutil.Date(2026, time.October, 12)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(present bool) {
			defer wg.Done()
			_, err := repo.MarkAttendance(ctx, []attendance.Mark{{StudentID: asha.ID, Date: day, Present: present}})
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	recs, err := repo.QueryRecords(ctx, attendance.RecordFilter{StudentID: asha.ID})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	p, err := inmemdb.NewProfileRepository(db).GetOrCreateProfile(ctx, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalDays)
	if recs[0].Present {
		assert.Equal(t, 1, p.AttendedDays)
	} else {
		assert.Equal(t, 0, p.AttendedDays)
	}
}

func TestTrackerRepository(t *testing.T) {
	ctx := context.Background()
	tracker := inmemdb.NewTrackerRepository(inmemdb.Open())
	day := testutil.Date(2026, time.October, 15)

	ok, err := tracker.ShouldSend(ctx, "asha", notification.KindAttendance, day)
	require.NoError(t, err)
	assert.True(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tracker.RecordSent(ctx, "asha", notification.KindAttendance, day))
		}()
	}
	wg.Wait()

	ok, err = tracker.ShouldSend(ctx, "asha", notification.KindAttendance, day)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tracker.ShouldSend(ctx, "asha", notification.KindFeeReminder, day)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tracker.ShouldSend(ctx, "asha", notification.KindAttendance, day.AddDays(1))
	require.NoError(t, err)
	assert.True(t, ok)
}
