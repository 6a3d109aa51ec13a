package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/course"
	"github.com/shankerdev/campus/core/profile"
)

type profileApi struct {
	svc *profile.Service
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *profile.Service) {
	api := profileApi{svc: svc}

	pg := g.Group("/profile", jwt, roleMiddleware(account.RoleStudent))
	pg.GET("", api.retrieve)
	pg.PUT("/semester", api.selectSemester)

	tg := g.Group("/teachers", jwt)
	tg.GET("/me/subjects", api.mySubjects, roleMiddleware(account.RoleTeacher))
	tg.PUT("/:id/subjects", api.assignSubjects, roleMiddleware(account.RoleAdmin))
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), contextCapability(ctx))
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) selectSemester(ctx echo.Context) error {
	var data profile.SelectSemester
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SelectSemester")
	}

	p, err := api.svc.SelectSemester(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "selecting semester")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) assignSubjects(ctx echo.Context) error {
	var data profile.AssignSubjects
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignSubjects")
	}

	subjects, err := api.svc.AssignSubjects(ctx.Request().Context(), contextCapability(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning subjects")
	}
	return ctx.JSON(http.StatusOK, nonNilSubjects(subjects))
}

func (api *profileApi) mySubjects(ctx echo.Context) error {
	subjects, err := api.svc.TeacherSubjects(ctx.Request().Context(), contextCapability(ctx))
	if err != nil {
		return errors.Wrap(err, "listing teacher subjects")
	}
	return ctx.JSON(http.StatusOK, nonNilSubjects(subjects))
}

func nonNilSubjects(subjects []course.Subject) []course.Subject {
	if subjects == nil {
		return []course.Subject{}
	}
	return subjects
}
