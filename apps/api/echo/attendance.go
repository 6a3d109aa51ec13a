package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/services/report"
)

type attendanceApi struct {
	svc   *attendance.Service
	hooks hookRunner
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, hooks hookRunner) {
	api := attendanceApi{svc: svc, hooks: hooks}

	ag := g.Group("/attendance", jwt)

	teacher := roleMiddleware(account.RoleTeacher)
	ag.POST("", api.mark, teacher)
	ag.POST("/self", api.markSelf, teacher)

	ag.GET("/me", api.myRecords, roleMiddleware(account.RoleStudent))

	admin := roleMiddleware(account.RoleAdmin)
	ag.GET("", api.list, admin)
	ag.GET("/report", api.report, admin)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.MarkBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkBatch")
	}

	results, hooks, err := api.svc.Mark(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusOK, results)
}

func (api *attendanceApi) markSelf(ctx echo.Context) error {
	var data attendance.SelfMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SelfMark")
	}

	rec, err := api.svc.MarkSelf(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking own attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) myRecords(ctx echo.Context) error {
	recs, err := api.svc.MyRecords(ctx.Request().Context(), contextCapability(ctx))
	if err != nil {
		return errors.Wrap(err, "listing own records")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) list(ctx echo.Context) error {
	month, err := monthQuery(ctx)
	if err != nil {
		return err
	}
	filter := attendance.ListFilter{Role: account.Role(ctx.QueryParam("role")), Month: month}

	recs, err := api.svc.List(ctx.Request().Context(), contextCapability(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "listing records")
	}
	if recs == nil {
		recs = []attendance.ListedRecord{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

// report downloads the monthly student report as a spreadsheet.
func (api *attendanceApi) report(ctx echo.Context) error {
	month, err := monthQuery(ctx)
	if err != nil {
		return err
	}
	capa := contextCapability(ctx)

	rows, err := api.svc.Report(ctx.Request().Context(), capa, month)
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	month = api.svc.ReportMonth(month)
	buf, err := report.AttendanceWorkbook(month, rows)
	if err != nil {
		return errors.Wrap(err, "writing report workbook")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+report.AttendanceFilename(month)+`"`)
	return ctx.Blob(http.StatusOK, report.XLSXContentType, buf.Bytes())
}
