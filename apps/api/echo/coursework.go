package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/coursework"
)

type courseworkApi struct {
	svc   *coursework.Service
	hooks hookRunner
}

func registerCourseworkAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *coursework.Service, hooks hookRunner) {
	api := courseworkApi{svc: svc, hooks: hooks}

	teacher := roleMiddleware(account.RoleTeacher)
	student := roleMiddleware(account.RoleStudent)
	either := roleMiddleware(account.RoleTeacher, account.RoleStudent)

	ag := g.Group("/assignments", jwt)
	ag.GET("", api.list, either)
	ag.POST("", api.create, teacher)

	// detail endpoints
	ag.GET("/:id", api.retrieve, either)
	ag.PUT("/:id", api.update, teacher)
	ag.DELETE("/:id", api.destroy, teacher)

	ag.GET("/:id/submissions", api.submissions, teacher)
	ag.POST("/:id/submissions", api.submit, student)
}

func (api *courseworkApi) list(ctx echo.Context) error {
	as, err := api.svc.List(ctx.Request().Context(), contextCapability(ctx))
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	if as == nil {
		as = []coursework.Assignment{}
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *courseworkApi) create(ctx echo.Context) error {
	var data coursework.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}

	a, hooks, err := api.svc.Create(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusCreated, a)
}

func (api *courseworkApi) retrieve(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	a, err := api.svc.Get(ctx.Request().Context(), contextCapability(ctx), id)
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *courseworkApi) update(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	var data coursework.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	a, hooks, err := api.svc.Update(ctx.Request().Context(), contextCapability(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusOK, a)
}

func (api *courseworkApi) destroy(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	hooks, err := api.svc.Delete(ctx.Request().Context(), contextCapability(ctx), id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	api.hooks.run(ctx, hooks)

	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseworkApi) submissions(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	subs, err := api.svc.Submissions(ctx.Request().Context(), contextCapability(ctx), id)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	if subs == nil {
		subs = []coursework.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *courseworkApi) submit(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	var data coursework.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}

	sub, hooks, err := api.svc.Submit(ctx.Request().Context(), contextCapability(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusCreated, sub)
}
