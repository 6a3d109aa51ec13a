package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/notification"
	emailsvc "github.com/shankerdev/campus/services/email"
)

func Test_notificationApi_announce(t *testing.T) {
	app := setup(t)
	admin := app.createAccount(t, "Admin", "admin@campus.np", account.RoleAdmin)
	teacher := app.createAccount(t, "Teacher", "teacher@campus.np", account.RoleTeacher)
	asha := app.createAccount(t, "Asha", "asha@campus.np", account.RoleStudent)
	bikash := app.createAccount(t, "Bikash", "bikash@campus.np", account.RoleStudent)
	adminToken := app.token(t, admin)

	// asha is in semester 3, bikash has not picked one
	rec := app.do(http.MethodPut, "/v1/profile/semester", app.token(t, asha), marchallObj(t, map[string]int{"semester": 3}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	announce := func(t *testing.T, a notification.Announcement) notification.AnnouncementResult {
		t.Helper()
		rec := app.do(http.MethodPost, "/v1/notifications/announcements", adminToken, marchallObj(t, a))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var res notification.AnnouncementResult
		unmarshal(t, rec, &res)
		return res
	}
	sem := func(i int) *int { return &i }

	runHTTPTests(t, app, []httpTest{
		{
			name: "admin only", method: http.MethodPost, path: "/v1/notifications/announcements", token: app.token(t, teacher),
			body:     marchallObj(t, notification.Announcement{Subject: "s", Message: "m", Target: notification.TargetAllStudents}),
			wantCode: http.StatusForbidden,
		},
		{
			name: "missing subject", method: http.MethodPost, path: "/v1/notifications/announcements", token: adminToken,
			body:     marchallObj(t, notification.Announcement{Message: "m", Target: notification.TargetAllStudents}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown target", method: http.MethodPost, path: "/v1/notifications/announcements", token: adminToken,
			body:     marchallObj(t, notification.Announcement{Subject: "s", Message: "m", Target: "everyone"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "semester required", method: http.MethodPost, path: "/v1/notifications/announcements", token: adminToken,
			body:     marchallObj(t, notification.Announcement{Subject: "s", Message: "m", Target: notification.TargetSemester}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"semester": "please specify a semester"}),
		},
		{
			name: "recipients required", method: http.MethodPost, path: "/v1/notifications/announcements", token: adminToken,
			body:     marchallObj(t, notification.Announcement{Subject: "s", Message: "m", Target: notification.TargetSpecific}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"recipient_ids": "please select at least one recipient"}),
		},
	})

	t.Run("all students", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		app.failFor["bikash@campus.np"] = true
		defer delete(app.failFor, "bikash@campus.np")

		res := announce(t, notification.Announcement{Subject: "Holiday", Message: "No classes on Friday.", Target: notification.TargetAllStudents})
		assert.Len(t, res.Notifications, 2)
		assert.Equal(t, 1, res.Emailed)
		assert.Equal(t, 1, res.EmailFailed)

		msgs := emailsvc.SentTo("asha@campus.np")
		if assert.Len(t, msgs, 1) {
			assert.Equal(t, "Holiday", msgs[0].Subject)
		}
		assert.Empty(t, emailsvc.SentTo("teacher@campus.np"))
	})

	t.Run("semester is not emailed", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		res := announce(t, notification.Announcement{Subject: "Lab", Message: "Lab moved.", Target: notification.TargetSemester, Semester: sem(3)})
		require.Len(t, res.Notifications, 1)
		assert.True(t, strings.HasPrefix(res.Notifications[0].Message, "Announcement (Sem 3): Lab"))
		assert.Zero(t, res.Emailed)
		assert.Empty(t, emailsvc.SentMessages)
	})

	t.Run("students and teachers", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		res := announce(t, notification.Announcement{Subject: "Fest", Message: "Saturday.", Target: notification.TargetAllStudentsTeachers})
		require.Len(t, res.Notifications, 1)
		assert.False(t, res.Notifications[0].RecipientID.Valid)
		assert.Equal(t, 3, res.Emailed)
	})

	t.Run("feeds", func(t *testing.T) {
		messages := func(token string) []string {
			rec := app.do(http.MethodGet, "/v1/notifications", token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var ns []notification.Notification
			unmarshal(t, rec, &ns)
			out := make([]string, 0, len(ns))
			for _, n := range ns {
				out = append(out, strings.SplitN(n.Message, "\n", 2)[0])
			}
			return out
		}

		assert.ElementsMatch(t, []string{
			"Admin Message: Holiday", "Announcement (Sem 3): Lab", "Admin Announcement: Fest",
		}, messages(app.token(t, asha)))
		assert.ElementsMatch(t, []string{
			"Admin Message: Holiday", "Admin Announcement: Fest",
		}, messages(app.token(t, bikash)))
		assert.ElementsMatch(t, []string{"Admin Announcement: Fest"}, messages(app.token(t, teacher)))
	})
}

func Test_notificationApi_sentAndDelete(t *testing.T) {
	app := setup(t)
	admin := app.createAccount(t, "Admin", "admin@campus.np", account.RoleAdmin)
	other := app.createAccount(t, "Other", "other@campus.np", account.RoleAdmin)
	student := app.createAccount(t, "Student", "student@campus.np", account.RoleStudent)
	adminToken := app.token(t, admin)

	rec := app.do(http.MethodPost, "/v1/notifications/announcements", adminToken, marchallObj(t, notification.Announcement{
		Subject: "Notice", Message: "Read me.", Target: notification.TargetSpecific, RecipientIDs: []string{student.ID, student.ID},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res notification.AnnouncementResult
	unmarshal(t, rec, &res)
	require.Len(t, res.Notifications, 1, "duplicate recipients are merged")
	id := strconv.FormatInt(res.Notifications[0].ID, 10)

	runHTTPTests(t, app, []httpTest{
		{name: "sent", path: "/v1/notifications/sent", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, res.Notifications[0])},
		{name: "nothing sent", path: "/v1/notifications/sent", token: app.token(t, other), wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "bad id", method: http.MethodDelete, path: "/v1/notifications/abc", token: adminToken, wantCode: http.StatusNotFound},
		{name: "unknown id", method: http.MethodDelete, path: "/v1/notifications/999", token: adminToken, wantCode: http.StatusNotFound},
		{
			name: "not the author", method: http.MethodDelete, path: "/v1/notifications/" + id, token: app.token(t, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "author", method: http.MethodDelete, path: "/v1/notifications/" + id, token: adminToken, wantCode: http.StatusNoContent},
		{name: "already gone", method: http.MethodDelete, path: "/v1/notifications/" + id, token: adminToken, wantCode: http.StatusNotFound},
		{name: "student feed empty", path: "/v1/notifications", token: app.token(t, student), wantCode: http.StatusOK, wantData: marchallList(t)},
	})
}
