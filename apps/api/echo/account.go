package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
)

type accountApi struct {
	svc   *account.Service
	auth  *authenticator
	hooks hookRunner
}

func registerAccountAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc *account.Service,
	limiter Limiter,
	logger core.Logger,
	hooks hookRunner,
) {
	api := accountApi{
		svc:   svc,
		auth:  auth,
		hooks: hooks,
	}

	ag := g.Group("/accounts")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/login", api.login, rateLimitMiddleware(limiter, "login", logger))

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.GET("/me", api.me, jwt)

	admin := ag.Group("", jwt, roleMiddleware(account.RoleAdmin))
	admin.GET("", api.query)
	admin.POST("", api.create)
	admin.POST("/:id/approve", api.approve)
}

type (
	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	acc, hooks, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusCreated, acc)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data account.LoginCredentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginCredentials")
	}

	acc, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.GenerateToken(acc)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) me(ctx echo.Context) error {
	capa := contextCapability(ctx)
	acc, err := api.svc.Get(ctx.Request().Context(), capa, capa.AccountID)
	if err != nil {
		return errors.Wrap(err, "getting account")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountApi) query(ctx echo.Context) error {
	filter := &account.QueryFilter{
		Search: ctx.QueryParam("search"),
		Role:   account.Role(ctx.QueryParam("role")),
	}
	isApproved, err := boolQuery(ctx, "is_approved")
	if err != nil {
		return err
	}
	filter.IsApproved = isApproved
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accs, err := api.svc.Query(ctx.Request().Context(), contextCapability(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	if accs == nil {
		accs = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, accs)
}

func (api *accountApi) create(ctx echo.Context) error {
	var data account.AdminNewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminNewAccount")
	}

	acc, hooks, err := api.svc.Create(ctx.Request().Context(), contextCapability(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusCreated, acc)
}

func (api *accountApi) approve(ctx echo.Context) error {
	acc, hooks, err := api.svc.Approve(ctx.Request().Context(), contextCapability(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving account")
	}
	api.hooks.run(ctx, hooks)

	return ctx.JSON(http.StatusOK, acc)
}
