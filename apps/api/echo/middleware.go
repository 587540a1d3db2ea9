package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/services/metrics"
)

func adminMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// metricsMiddleware records the duration of every request by route and response status.
// Errors are handled here so that the status written by the HTTPErrorHandler is the one recorded.
func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}
			status := strconv.Itoa(ctx.Response().Status)
			metrics.RecordHTTPRequest(ctx.Request().Method, ctx.Path(), status, time.Since(start))
			return nil
		}
	}
}
