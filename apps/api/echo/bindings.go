package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shankerdev/campus/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// int64Param reads a numeric path parameter. Anything else is a 404.
func int64Param(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// boolQuery reads an optional boolean query parameter.
func boolQuery(ctx echo.Context, name string) (*bool, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, core.NewFieldError(name, "must be true or false")
	}
	return &b, nil
}

// monthQuery reads ?month=YYYY-MM (or any day of the month). Absent means the zero Date.
func monthQuery(ctx echo.Context) (core.Date, error) {
	raw := strings.TrimSpace(ctx.QueryParam("month"))
	if raw == "" {
		return core.Date{}, nil
	}
	if t, err := time.Parse("2006-01", raw); err == nil {
		return core.DateFrom(t), nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, errInvalidMonth
	}
	return d, nil
}
