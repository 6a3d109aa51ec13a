package echoapi

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/core/notification"
	emailsvc "github.com/shankerdev/campus/services/email"
	"github.com/shankerdev/campus/services/report"
)

type markEntry struct {
	StudentID string `json:"student_id"`
	Present   bool   `json:"present"`
}

type markBody struct {
	Date    string      `json:"date,omitempty"`
	Entries []markEntry `json:"entries"`
}

func Test_attendanceApi_mark(t *testing.T) {
	app := setup(t)
	teacher := app.createAccount(t, "Teacher", "teacher@campus.np", account.RoleTeacher)
	asha := app.createAccount(t, "Asha", "asha@campus.np", account.RoleStudent)
	bikash := app.createAccount(t, "Bikash", "bikash@campus.np", account.RoleStudent)
	teacherToken := app.token(t, teacher)

	today := core.DateFrom(core.Today(time.UTC))
	yesterday := today.AddDays(-1)

	mark := func(t *testing.T, body markBody) []attendance.MarkResult {
		t.Helper()
		rec := app.do(http.MethodPost, "/v1/attendance", teacherToken, marchallObj(t, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var results []attendance.MarkResult
		unmarshal(t, rec, &results)
		return results
	}

	t.Run("first mark of the day", func(t *testing.T) {
		results := mark(t, markBody{Date: yesterday.String(), Entries: []markEntry{
			{StudentID: asha.ID, Present: true},
			{StudentID: bikash.ID, Present: false},
		}})
		require.Len(t, results, 2)
		for _, res := range results {
			assert.Equal(t, attendance.TransitionCreated, res.Transition)
			assert.Equal(t, 1, res.Profile.TotalDays)
		}

		// bikash is at 0%
		assert.Empty(t, emailsvc.SentTo("asha@campus.np"))
		msgs := emailsvc.SentTo("bikash@campus.np")
		if assert.Len(t, msgs, 1) {
			assert.Equal(t, "Low Attendance Alert - ShankerDev Campus", msgs[0].Subject)
		}
	})

	t.Run("same day again", func(t *testing.T) {
		results := mark(t, markBody{Date: yesterday.String(), Entries: []markEntry{
			{StudentID: asha.ID, Present: true},
			{StudentID: bikash.ID, Present: true},
		}})
		require.Len(t, results, 2)
		byStudent := map[string]attendance.MarkResult{}
		for _, res := range results {
			byStudent[res.Record.StudentID] = res
		}

		assert.Equal(t, attendance.TransitionUnchanged, byStudent[asha.ID].Transition)
		assert.Equal(t, 1, byStudent[asha.ID].Profile.AttendedDays)
		assert.Equal(t, 1, byStudent[asha.ID].Profile.TotalDays)

		assert.Equal(t, attendance.TransitionChanged, byStudent[bikash.ID].Transition)
		assert.Equal(t, 1, byStudent[bikash.ID].Profile.AttendedDays)
		assert.Equal(t, 1, byStudent[bikash.ID].Profile.TotalDays)
	})

	t.Run("alert once a day", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		for _, d := range []core.Date{today.AddDays(-3), today.AddDays(-2)} {
			mark(t, markBody{Date: d.String(), Entries: []markEntry{{StudentID: asha.ID, Present: false}}})
		}
		// 1/2 then 1/3, both below the threshold
		assert.Len(t, emailsvc.SentTo("asha@campus.np"), 1)
	})

	t.Run("date defaults to today", func(t *testing.T) {
		results := mark(t, markBody{Entries: []markEntry{{StudentID: bikash.ID, Present: true}}})
		require.Len(t, results, 1)
		assert.Equal(t, today, results[0].Record.Date)
		assert.Equal(t, attendance.TransitionCreated, results[0].Transition)
	})

	t.Run("invalid batches write nothing", func(t *testing.T) {
		before, err := app.repos.Attendance.QueryRecords(ctxBg, attendance.RecordFilter{})
		require.NoError(t, err)

		runHTTPTests(t, app, []httpTest{
			{
				name: "future date", method: http.MethodPost, path: "/v1/attendance", token: teacherToken,
				body:     marchallObj(t, markBody{Date: today.AddDays(1).String(), Entries: []markEntry{{StudentID: asha.ID}}}),
				wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"date": "date cannot be in the future"}),
			},
			{
				name: "teacher in batch", method: http.MethodPost, path: "/v1/attendance", token: teacherToken,
				body: marchallObj(t, markBody{Date: today.String(), Entries: []markEntry{
					{StudentID: asha.ID, Present: true},
					{StudentID: teacher.ID, Present: true},
				}}),
				wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"entries[1].student_id": "account is not a student"}),
			},
			{
				name: "duplicate student", method: http.MethodPost, path: "/v1/attendance", token: teacherToken,
				body: marchallObj(t, markBody{Entries: []markEntry{
					{StudentID: asha.ID, Present: true},
					{StudentID: asha.ID, Present: false},
				}}),
				wantCode: http.StatusBadRequest,
			},
			{
				name: "empty batch", method: http.MethodPost, path: "/v1/attendance", token: teacherToken,
				body: marchallObj(t, markBody{Entries: []markEntry{}}), wantCode: http.StatusBadRequest,
			},
			{
				name: "students cannot mark", method: http.MethodPost, path: "/v1/attendance", token: app.token(t, asha),
				body:     marchallObj(t, markBody{Entries: []markEntry{{StudentID: asha.ID, Present: true}}}),
				wantCode: http.StatusForbidden,
			},
		})

		after, err := app.repos.Attendance.QueryRecords(ctxBg, attendance.RecordFilter{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func Test_attendanceApi_studentAndAdmin(t *testing.T) {
	app := setup(t)
	admin := app.createAccount(t, "Admin", "admin@campus.np", account.RoleAdmin)
	teacher := app.createAccount(t, "Teacher", "teacher@campus.np", account.RoleTeacher)
	asha := app.createAccount(t, "Asha", "asha@campus.np", account.RoleStudent)
	app.createAccount(t, "Chandra", "chandra@campus.np", account.RoleStudent)
	adminToken := app.token(t, admin)

	today := core.DateFrom(core.Today(time.UTC))
	rec := app.do(http.MethodPost, "/v1/attendance", app.token(t, teacher), marchallObj(t, markBody{
		Date: today.String(), Entries: []markEntry{{StudentID: asha.ID, Present: true}},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = app.do(http.MethodPost, "/v1/attendance/self", app.token(t, teacher), marchallObj(t, map[string]interface{}{"present": true}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("own records", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/attendance/me", app.token(t, asha))
		require.Equal(t, http.StatusOK, rec.Code)
		var recs []attendance.Record
		unmarshal(t, rec, &recs)
		require.Len(t, recs, 1)
		assert.True(t, recs[0].Present)
		assert.Equal(t, today, recs[0].Date)
	})

	t.Run("list", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/attendance?role=teacher", adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var listed []attendance.ListedRecord
		unmarshal(t, rec, &listed)
		require.Len(t, listed, 1)
		assert.Equal(t, teacher.ID, listed[0].AccountID)

		runHTTPTests(t, app, []httpTest{
			{name: "bad month", path: "/v1/attendance?month=soon", token: adminToken, wantCode: http.StatusBadRequest},
			{name: "bad role", path: "/v1/attendance?role=admin", token: adminToken, wantCode: http.StatusBadRequest},
			{name: "admin only", path: "/v1/attendance", token: app.token(t, teacher), wantCode: http.StatusForbidden},
			{name: "empty month", path: "/v1/attendance?month=2001-01", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		})
	})

	t.Run("report", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/attendance/report", adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, report.XLSXContentType, rec.Header().Get("Content-Type"))
		month := core.NewDate(today.Year(), today.Month(), 1)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), report.AttendanceFilename(month))

		rows, err := report.ReadAttendanceWorkbook(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"Asha", "asha@campus.np", "", "1", "1", "100.00%"}, rows[1])
		assert.Equal(t, "Chandra", rows[2][0])
	})
}

func Test_attendanceApi_alertEmailFails(t *testing.T) {
	app := setup(t)
	teacher := app.createAccount(t, "Teacher", "teacher@campus.np", account.RoleTeacher)
	chandra := app.createAccount(t, "Chandra", "chandra@campus.np", account.RoleStudent)
	teacherToken := app.token(t, teacher)
	today := core.DateFrom(core.Today(time.UTC))
	emailsvc.ClearSentMessages()

	markAbsent := func(t *testing.T, day core.Date) {
		t.Helper()
		body := marchallObj(t, markBody{Date: day.String(), Entries: []markEntry{{StudentID: chandra.ID, Present: false}}})
		rec := app.do(http.MethodPost, "/v1/attendance", teacherToken, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	t.Run("the mark survives a failed alert", func(t *testing.T) {
		app.failFor["chandra@campus.np"] = true
		markAbsent(t, today.AddDays(-2))

		recs, err := app.repos.Attendance.QueryRecords(ctxBg, attendance.RecordFilter{StudentID: chandra.ID})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.False(t, recs[0].Present)

		p, err := app.svcs.Profile.ForStudent(ctxBg, chandra.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, p.AttendedDays)
		assert.Equal(t, 1, p.TotalDays)

		assert.Empty(t, emailsvc.SentTo("chandra@campus.np"))
		ok, err := app.repos.Tracker.ShouldSend(ctxBg, chandra.ID, notification.KindAttendance, today)
		require.NoError(t, err)
		assert.True(t, ok, "no tracker row for a failed send")
	})

	t.Run("a later mark the same day sends the alert", func(t *testing.T) {
		delete(app.failFor, "chandra@campus.np")
		markAbsent(t, today.AddDays(-1))

		assert.Len(t, emailsvc.SentTo("chandra@campus.np"), 1)
		ok, err := app.repos.Tracker.ShouldSend(ctxBg, chandra.ID, notification.KindAttendance, today)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
