package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/fee"
)

type feeApi struct {
	svc   *fee.Service
	hooks hookRunner
}

func registerFeeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *fee.Service, hooks hookRunner) {
	api := feeApi{svc: svc, hooks: hooks}

	fg := g.Group("/fees", jwt)
	fg.POST("", api.create, roleMiddleware(account.RoleAdmin))
	fg.GET("/me", api.mine, roleMiddleware(account.RoleStudent))
}

func nonNilDues(ds []fee.Due) []fee.Due {
	if ds == nil {
		return []fee.Due{}
	}
	return ds
}

func (api *feeApi) create(ctx echo.Context) error {
	var data fee.NewDue
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDue")
	}

	d, hooks, err := api.svc.Create(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating fee due")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusCreated, d)
}

func (api *feeApi) mine(ctx echo.Context) error {
	ds, err := api.svc.Mine(ctx.Request().Context(), contextCapability(ctx))
	if err != nil {
		return errors.Wrap(err, "listing dues")
	}
	return ctx.JSON(http.StatusOK, nonNilDues(ds))
}
