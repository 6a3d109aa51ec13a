package echoapi

import (
	"fmt"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
)

// roleMiddleware lets through authenticated requests whose role is one of roles.
// Services check the capability again; this only fails fast.
func roleMiddleware(roles ...account.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := contextCapability(ctx).Require(roles...); err != nil {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// rateLimitMiddleware throttles by client IP. A nil limiter disables it.
// The limiter failing lets the request through.
func rateLimitMiddleware(limiter Limiter, scope string, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(ctx echo.Context) error {
			allowed, err := limiter.Allow(ctx.Request().Context(), scope+":"+ctx.RealIP())
			if err != nil {
				if logger != nil {
					logger.Warn(fmt.Sprintf("rate limiter unavailable: %v", err), err)
				}
				return next(ctx)
			}
			if !allowed {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

// metricsMiddleware observes the latency of every routed request.
func metricsMiddleware(metrics Metrics, translator ut.Translator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				status, _, _ = classifyError(err, translator)
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveRequest(route, ctx.Request().Method, strconv.Itoa(status), time.Since(start).Seconds())
			return err
		}
	}
}
