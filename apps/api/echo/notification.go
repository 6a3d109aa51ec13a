package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/notification"
)

type notificationApi struct {
	svc   *notification.Service
	hooks hookRunner
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *notification.Service, hooks hookRunner) {
	api := notificationApi{svc: svc, hooks: hooks}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.list)

	admin := ng.Group("", roleMiddleware(account.RoleAdmin))
	admin.POST("/announcements", api.announce)
	admin.GET("/sent", api.sent)
	admin.DELETE("/:id", api.destroy)
}

func nonNilNotifications(ns []notification.Notification) []notification.Notification {
	if ns == nil {
		return []notification.Notification{}
	}
	return ns
}

func (api *notificationApi) list(ctx echo.Context) error {
	ns, err := api.svc.ForViewer(ctx.Request().Context(), contextCapability(ctx))
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, nonNilNotifications(ns))
}

// announce answers once every email went out, so that the counts are final.
func (api *notificationApi) announce(ctx echo.Context) error {
	var data notification.Announcement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Announcement")
	}

	result, hooks, err := api.svc.Announce(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "announcing")
	}
	api.hooks.run(ctx, hooks)

	result.Notifications = nonNilNotifications(result.Notifications)
	return ctx.JSON(http.StatusCreated, result)
}

func (api *notificationApi) sent(ctx echo.Context) error {
	ns, err := api.svc.Sent(ctx.Request().Context(), contextCapability(ctx))
	if err != nil {
		return errors.Wrap(err, "listing sent notifications")
	}
	return ctx.JSON(http.StatusOK, nonNilNotifications(ns))
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), contextCapability(ctx), id); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}
