package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/core/notification"
	sqlxrepos "github.com/shankerdev/campus/storage/database/sqlx"
	"github.com/shankerdev/campus/testutil"
)

func TestAccountRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewAccountRepository(db)

	asha := testutil.CreateAccount(t, repo, "Asha", "asha@campus.np", "9800000001", account.RoleStudent, false, "")
	testutil.CreateAccount(t, repo, "Bikash", "bikash@campus.np", "", account.RoleStudent, true, "")

	tests := []struct {
		name     string
		email    string
		phone    string
		excluded string
		want     error
	}{
		{name: "email taken", email: "asha@campus.np", want: account.ErrEmailExists},
		{name: "phone taken", email: "new@campus.np", phone: "9800000001", want: account.ErrPhoneExists},
		{name: "own email", email: "asha@campus.np", phone: "9800000001", excluded: asha.ID},
		{name: "free", email: "new@campus.np", phone: "9800000002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repo.CheckUniqueness(ctx, tt.email, tt.phone, tt.excluded))
		})
	}

	_, err := repo.CreateAccount(ctx, account.Account{
		ID: uuid.New().String(), Email: "asha@campus.np", Role: account.RoleStudent,
		PasswordHash: []byte{}, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	assert.Equal(t, account.ErrEmailExists, err)

	byPhone, err := repo.GetAccountByLogin(ctx, "9800000001")
	require.NoError(t, err)
	assert.Equal(t, asha.ID, byPhone.ID)

	_, err = repo.GetAccount(ctx, uuid.New().String())
	assert.True(t, core.IsNotFound(err), err)

	pending := false
	accs, err := repo.QueryAccounts(ctx, &account.QueryFilter{IsApproved: &pending}, nil)
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, asha.ID, accs[0].ID)

	accs, err = repo.QueryAccounts(ctx, &account.QueryFilter{Search: "BIK"}, nil)
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, "Bikash", accs[0].Name)
}

func TestAttendanceRepository_MarkAttendance(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	accounts := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewAttendanceRepository(db)
	profiles := sqlxrepos.NewProfileRepository(db)

	asha := testutil.CreateAccount(t, accounts, "Asha", "asha@campus.np", "", account.RoleStudent, true, "")
	teacher := testutil.CreateAccount(t, accounts, "Teacher", "teacher@campus.np", "", account.RoleTeacher, true, "")
	day := testutil.Date(2026, time.October, 12)
	now := time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)

	_, err := repo.MarkAttendance(ctx, []attendance.Mark{
		{StudentID: asha.ID, TeacherID: teacher.ID, Date: day, Present: true, MarkedAt: now},
		{StudentID: uuid.New().String(), TeacherID: teacher.ID, Date: day, Present: true, MarkedAt: now},
	})
	require.True(t, core.IsNotFound(err), err)
	recs, err := repo.QueryRecords(ctx, attendance.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs, "a failed batch leaves no trace")

	res, err := repo.MarkAttendance(ctx, []attendance.Mark{
		{StudentID: asha.ID, TeacherID: teacher.ID, Date: day, Present: false, MarkedAt: now},
		{StudentID: asha.ID, TeacherID: teacher.ID, Date: day, Present: true, MarkedAt: now},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, attendance.TransitionCreated, res[0].Transition)
	assert.Equal(t, attendance.TransitionChanged, res[1].Transition)
	assert.Equal(t, res[0].Record.ID, res[1].Record.ID)
	assert.Equal(t, teacher.ID, res[1].Record.TeacherID.String)

	p, err := profiles.GetOrCreateProfile(ctx, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalDays)
	assert.Equal(t, 1, p.AttendedDays)

	rec, err := repo.MarkTeacherAttendance(ctx, attendance.TeacherRecord{TeacherID: teacher.ID, Date: day, Present: true, MarkedAt: now})
	require.NoError(t, err)
	again, err := repo.MarkTeacherAttendance(ctx, attendance.TeacherRecord{TeacherID: teacher.ID, Date: day, Present: true, MarkedAt: now})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
}

func TestAttendanceRepository_ConcurrentMarks(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewAttendanceRepository(db)
	asha := testutil.CreateAccount(t, sqlxrepos.NewAccountRepository(db), "Asha", "asha@campus.np", "", account.RoleStudent, true, "")
	day := testutil.Date(2026, time.October, 12)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(present bool) {
			defer wg.Done()
			_, err := repo.MarkAttendance(ctx, []attendance.Mark{{StudentID: asha.ID, Date: day, Present: present, MarkedAt: time.Now()}})
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	recs, err := repo.QueryRecords(ctx, attendance.RecordFilter{StudentID: asha.ID})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	p, err := sqlxrepos.NewProfileRepository(db).GetOrCreateProfile(ctx, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalDays)
	if recs[0].Present {
		assert.Equal(t, 1, p.AttendedDays)
	} else {
		assert.Equal(t, 0, p.AttendedDays)
	}
}

func TestTrackerRepository_ConcurrentRecord(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	tracker := sqlxrepos.NewTrackerRepository(db)
	asha := testutil.CreateAccount(t, sqlxrepos.NewAccountRepository(db), "Asha", "asha@campus.np", "", account.RoleStudent, true, "")
	day := testutil.Date(2026, time.October, 15)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tracker.RecordSent(ctx, asha.ID, notification.KindAttendance, day))
		}()
	}
	wg.Wait()

	var rows int
	require.NoError(t, db.Get(&rows, "SELECT COUNT(*) FROM notification_trackers WHERE user_id = $1", asha.ID))
	assert.Equal(t, 1, rows)

	ok, err := tracker.ShouldSend(ctx, asha.ID, notification.KindAttendance, day)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tracker.ShouldSend(ctx, asha.ID, notification.KindAttendance, day.AddDays(1))
	require.NoError(t, err)
	assert.True(t, ok)
}

type slowMailer struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (m *slowMailer) SendMessage(context.Context, *core.EmailMessage) error {
	time.Sleep(20 * time.Millisecond)
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return nil
}

func TestTrackerRepository_Claim(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	tracker := sqlxrepos.NewTrackerRepository(db)
	asha := testutil.CreateAccount(t, sqlxrepos.NewAccountRepository(db), "Asha", "asha@campus.np", "", account.RoleStudent, true, "")
	yesterday, today := testutil.Date(2026, time.October, 14), testutil.Date(2026, time.October, 15)

	claimed, prev, err := tracker.Claim(ctx, asha.ID, notification.KindFeeReminder, yesterday)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.True(t, prev.IsZero())

	claimed, prev, err = tracker.Claim(ctx, asha.ID, notification.KindFeeReminder, today)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, yesterday.String(), prev.String())

	claimed, _, err = tracker.Claim(ctx, asha.ID, notification.KindFeeReminder, today)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, tracker.Release(ctx, asha.ID, notification.KindFeeReminder, today, yesterday))
	ok, err := tracker.ShouldSend(ctx, asha.ID, notification.KindFeeReminder, today)
	require.NoError(t, err)
	assert.True(t, ok)

	// a first-ever claim released removes the row
	_, _, err = tracker.Claim(ctx, asha.ID, notification.KindAssignment, today)
	require.NoError(t, err)
	require.NoError(t, tracker.Release(ctx, asha.ID, notification.KindAssignment, today, core.Date{}))
	var rows int
	require.NoError(t, db.Get(&rows, "SELECT COUNT(*) FROM notification_trackers WHERE user_id = $1 AND kind = 'assignment'", asha.ID))
	assert.Zero(t, rows)
}

func TestDispatcher_ConcurrentSendOnce(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	asha := testutil.CreateAccount(t, sqlxrepos.NewAccountRepository(db), "Asha", "asha@campus.np", "", account.RoleStudent, true, "")
	today := testutil.Date(2026, time.October, 15)
	mailer := &slowMailer{}
	d := notification.NewDispatcher(sqlxrepos.NewTrackerRepository(db), mailer, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.SendOnce(ctx, asha.ID, notification.KindAttendance, today, &core.EmailMessage{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mailer.sent)
	var rows int
	require.NoError(t, db.Get(&rows, "SELECT COUNT(*) FROM notification_trackers WHERE user_id = $1", asha.ID))
	assert.Equal(t, 1, rows)
}
