package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/calendar"
)

type calendarApi struct {
	svc   *calendar.Service
	hooks hookRunner
}

func registerCalendarAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *calendar.Service, hooks hookRunner) {
	api := calendarApi{svc: svc, hooks: hooks}
	admin := roleMiddleware(account.RoleAdmin)

	eg := g.Group("/exams", jwt)
	eg.GET("", api.listExams, roleMiddleware(account.RoleAdmin, account.RoleStudent))
	eg.POST("", api.createExamRoutine, admin)

	vg := g.Group("/events", jwt)
	vg.GET("", api.upcomingEvents)
	vg.POST("", api.createEvent, admin)
}

// ExamsResponse is what a student sees of the exam calendar.
type ExamsResponse struct {
	Exams    []calendar.ExamRoutine `json:"exams"`
	Routines []calendar.ExamRoutine `json:"routines"`
}

func nonNilRoutines(rs []calendar.ExamRoutine) []calendar.ExamRoutine {
	if rs == nil {
		return []calendar.ExamRoutine{}
	}
	return rs
}

// listExams gives admins every routine, and students their semester's exams and routines.
func (api *calendarApi) listExams(ctx echo.Context) error {
	capa := contextCapability(ctx)
	if capa.Is(account.RoleAdmin) {
		rs, err := api.svc.ListExamRoutines(ctx.Request().Context(), capa)
		if err != nil {
			return errors.Wrap(err, "listing exam routines")
		}
		return ctx.JSON(http.StatusOK, nonNilRoutines(rs))
	}

	exams, routines, err := api.svc.StudentExams(ctx.Request().Context(), capa)
	if err != nil {
		return errors.Wrap(err, "listing student exams")
	}
	return ctx.JSON(http.StatusOK, ExamsResponse{Exams: nonNilRoutines(exams), Routines: nonNilRoutines(routines)})
}

func (api *calendarApi) createExamRoutine(ctx echo.Context) error {
	var data calendar.NewExamRoutine
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExamRoutine")
	}

	r, hooks, err := api.svc.CreateExamRoutine(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating exam routine")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusCreated, r)
}

func (api *calendarApi) upcomingEvents(ctx echo.Context) error {
	es, err := api.svc.UpcomingEvents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	if es == nil {
		es = []calendar.Event{}
	}
	return ctx.JSON(http.StatusOK, es)
}

func (api *calendarApi) createEvent(ctx echo.Context) error {
	var data calendar.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}

	e, hooks, err := api.svc.CreateEvent(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusCreated, e)
}
