// Package handler implements the HTTP endpoints. Handlers never write error
// responses themselves; they return tagged httperr values that the central
// error handler turns into the client-facing shape.
package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trailhead-labs/tour-booking/internal/httperr"
)

// pathID parses a numeric path parameter. A malformed value is a cast
// failure, reported as a 400 naming the bad field and value.
func pathID(c echo.Context, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, httperr.CastError(name, raw)
	}
	return id, nil
}

func itoa(n uint64) string { return strconv.FormatUint(n, 10) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
