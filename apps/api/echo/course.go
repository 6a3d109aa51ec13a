package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/course"
)

type courseApi struct {
	svc   *course.Service
	hooks hookRunner
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, hooks hookRunner) {
	api := courseApi{svc: svc, hooks: hooks}
	admin := roleMiddleware(account.RoleAdmin)

	// un-authed endpoints
	g.GET("/courses", api.listCourses)

	g.POST("/courses", api.createCourse, jwt, admin)
	g.PUT("/courses/:id/seats", api.updateSeats, jwt, admin)

	g.GET("/faculties", api.listFaculties, jwt)
	g.POST("/faculties", api.createFaculty, jwt, admin)

	g.GET("/subjects", api.listSubjects, jwt)
	g.POST("/subjects", api.createSubject, jwt, admin)
}

func (api *courseApi) listCourses(ctx echo.Context) error {
	cs, err := api.svc.ListCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if cs == nil {
		cs = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *courseApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	c, hooks, err := api.svc.CreateCourse(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) updateSeats(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	var data course.UpdateSeats
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSeats")
	}

	c, err := api.svc.UpdateSeats(ctx.Request().Context(), contextCapability(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating seats")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) listFaculties(ctx echo.Context) error {
	fs, err := api.svc.ListFaculties(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing faculties")
	}
	if fs == nil {
		fs = []course.Faculty{}
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (api *courseApi) createFaculty(ctx echo.Context) error {
	var data course.NewFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFaculty")
	}

	f, err := api.svc.CreateFaculty(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating faculty")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *courseApi) listSubjects(ctx echo.Context) error {
	var filter course.SubjectFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Subject{})
	}

	ss, err := api.svc.ListSubjects(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, nonNilSubjects(ss))
}

func (api *courseApi) createSubject(ctx echo.Context) error {
	var data course.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}

	s, err := api.svc.CreateSubject(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}
