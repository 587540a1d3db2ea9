package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
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
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryTime binds RFC 3339 query parameters.
type queryTime struct {
	time.Time
}

var _ echo.BindUnmarshaler = (*queryTime)(nil)

func (qt *queryTime) UnmarshalParam(param string) error {
	t, err := time.Parse(time.RFC3339, param)
	if err != nil {
		return errors.Wrapf(err, "parsing time %q", param)
	}
	qt.Time = t.UTC()
	return nil
}

func (qt *queryTime) ptr() *time.Time {
	if qt == nil {
		return nil
	}
	t := qt.Time
	return &t
}

// createdRange binds the `created_from` and `created_to` filters.
type createdRange struct {
	From *queryTime `query:"created_from"`
	To   *queryTime `query:"created_to"`
}
