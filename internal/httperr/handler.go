package httperr

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Handler returns the single error boundary for the whole app, installed as
// echo's HTTPErrorHandler. Every failure surfaced by a handler or middleware
// funnels through here; nothing else writes error responses.
//
// Development mode returns full detail for API requests and renders an error
// page otherwise. Production mode surfaces operational messages verbatim and
// masks everything else behind a generic 500 after logging it.
func Handler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		e := normalize(err)
		if production {
			sendProd(e, c)
			return
		}
		sendDev(e, c)
	}
}

// normalize maps any error onto the closed taxonomy. Tagged *Error values
// pass through; echo's own errors (404 route miss, 405, bind failures) become
// operational; anything else is a masked internal failure.
func normalize(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		ne := New(he.Code, msg)
		ne.Err = he.Internal
		return ne
	}
	return Wrap(err)
}

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api")
}

func sendDev(e *Error, c echo.Context) {
	if isAPI(c) {
		body := echo.Map{
			"status":  e.Status,
			"message": e.Message,
		}
		if e.Err != nil {
			body["error"] = e.Err.Error()
		}
		_ = c.JSON(e.Code, body)
		return
	}
	log.Printf("ERROR %v", e)
	renderErrorPage(c, e.Code, e.Message)
}

func sendProd(e *Error, c echo.Context) {
	if isAPI(c) {
		if e.Operational {
			_ = c.JSON(e.Code, echo.Map{"status": e.Status, "message": e.Message})
			return
		}
		log.Printf("ERROR %v", e)
		_ = c.JSON(http.StatusInternalServerError, echo.Map{
			"status":  "error",
			"message": "Something went very wrong!",
		})
		return
	}
	if e.Operational {
		renderErrorPage(c, e.Code, e.Message)
		return
	}
	log.Printf("ERROR %v", e)
	renderErrorPage(c, e.Code, "Please try again later.")
}

func renderErrorPage(c echo.Context, code int, msg string) {
	data := echo.Map{
		"title": "Uh oh! Something went wrong",
		"msg":   msg,
	}
	if err := c.Render(code, "error", data); err != nil {
		// No renderer wired (tests, API-only deployments); fall back to text.
		_ = c.String(code, msg)
	}
}
