package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/core/calendar"
	"github.com/shankerdev/campus/core/course"
	"github.com/shankerdev/campus/core/coursework"
	"github.com/shankerdev/campus/core/fee"
	"github.com/shankerdev/campus/core/notification"
	"github.com/shankerdev/campus/core/profile"
)

type dashboardDeps struct {
	accounts      *account.Service
	profiles      *profile.Service
	attendance    *attendance.Service
	notifications *notification.Service
	coursework    *coursework.Service
	fees          *fee.Service
	calendar      *calendar.Service
}

type dashboardApi struct {
	dashboardDeps
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps dashboardDeps) {
	api := dashboardApi{deps}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/student", api.student, roleMiddleware(account.RoleStudent))
	dg.GET("/teacher", api.teacher, roleMiddleware(account.RoleTeacher))
	dg.GET("/admin", api.admin, roleMiddleware(account.RoleAdmin))
}

type (
	StudentDashboard struct {
		Profile         profile.StudentProfile      `json:"profile"`
		Attendance      attendance.Summary          `json:"attendance"`
		Notifications   []notification.Notification `json:"notifications"`
		TeachersPresent []account.Account           `json:"teachers_present"`
		Assignments     []coursework.Assignment     `json:"assignments"`
		UpcomingDues    []fee.Due                   `json:"upcoming_dues"`
		Events          []calendar.Event            `json:"events"`
	}

	TeacherDashboard struct {
		Subjects      []course.Subject            `json:"subjects"`
		Notifications []notification.Notification `json:"notifications"`
		Assignments   []coursework.Assignment     `json:"assignments"`
	}
)

// student is read-only: a low attendance only shows up as a flag.
func (api *dashboardApi) student(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	capa := contextCapability(ctx)

	var (
		dash StudentDashboard
		err  error
	)
	if dash.Profile, err = api.profiles.Get(rctx, capa); err != nil {
		return errors.Wrap(err, "getting profile")
	}
	if dash.Attendance, err = api.attendance.MySummary(rctx, capa); err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	if dash.Notifications, err = api.notifications.StudentFeed(rctx, capa); err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if dash.TeachersPresent, err = api.attendance.TeachersPresent(rctx, capa, core.Date{}); err != nil {
		return errors.Wrap(err, "listing teachers present")
	}
	if dash.Assignments, err = api.coursework.List(rctx, capa); err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	if dash.UpcomingDues, err = api.fees.Upcoming(rctx, capa); err != nil {
		return errors.Wrap(err, "listing upcoming dues")
	}
	if dash.Events, err = api.calendar.UpcomingEvents(rctx); err != nil {
		return errors.Wrap(err, "listing events")
	}

	dash.Notifications = nonNilNotifications(dash.Notifications)
	if dash.TeachersPresent == nil {
		dash.TeachersPresent = []account.Account{}
	}
	if dash.Assignments == nil {
		dash.Assignments = []coursework.Assignment{}
	}
	dash.UpcomingDues = nonNilDues(dash.UpcomingDues)
	if dash.Events == nil {
		dash.Events = []calendar.Event{}
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *dashboardApi) teacher(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	capa := contextCapability(ctx)

	var (
		dash TeacherDashboard
		err  error
	)
	if dash.Subjects, err = api.profiles.TeacherSubjects(rctx, capa); err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	if dash.Notifications, err = api.notifications.TeacherFeed(rctx, capa); err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if dash.Assignments, err = api.coursework.List(rctx, capa); err != nil {
		return errors.Wrap(err, "listing assignments")
	}

	dash.Subjects = nonNilSubjects(dash.Subjects)
	dash.Notifications = nonNilNotifications(dash.Notifications)
	if dash.Assignments == nil {
		dash.Assignments = []coursework.Assignment{}
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *dashboardApi) admin(ctx echo.Context) error {
	stats, err := api.accounts.Stats(ctx.Request().Context(), contextCapability(ctx))
	if err != nil {
		return errors.Wrap(err, "getting stats")
	}
	if stats.Pending == nil {
		stats.Pending = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, stats)
}
