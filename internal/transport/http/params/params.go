// Package params reads path and query parameters into typed values.
package params

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/florex/pkg/errorbank"
)

// ID parses the ":id" path parameter as a positive integer.
func ID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.Validation("invalid id", errorbank.WithDetail("id", raw))
	}
	return id, nil
}

// Query binds query parameters into dst using its `query` tags. Fields whose
// parameter is absent keep their current value.
func Query(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, dst); err != nil {
		return errorbank.Validation("invalid query parameters", errorbank.WithCause(err))
	}
	return nil
}

// Body binds the JSON request body into dst.
func Body(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return errorbank.Validation("invalid payload", errorbank.WithCause(err))
	}
	return nil
}
