package handler

import (
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/trailhead-labs/tour-booking/internal/middleware"
)

// Renderer adapts html/template to echo's Renderer interface for the
// server-rendered pages.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses every template matching glob (e.g. web/templates/*.html).
func NewRenderer(glob string) (*Renderer, error) {
	t, err := template.ParseGlob(glob)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: t}, nil
}

// Render executes the named template. The session user, when present, is
// injected so every page can render its header for guests and members alike.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	if m, ok := data.(echo.Map); ok {
		if _, exists := m["user"]; !exists {
			if u, logged := middleware.CurrentUser(c); logged {
				m["user"] = sanitizeUser(u)
			}
		}
	}
	return r.templates.ExecuteTemplate(w, name, data)
}
