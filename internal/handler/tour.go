package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/repository"
)

// TourHandler exposes the tour catalogue: public browsing plus the
// management CRUD for admins and lead guides.
type TourHandler struct {
	Tours *repository.TourRepo
}

func NewTourHandler(tours *repository.TourRepo) *TourHandler {
	return &TourHandler{Tours: tours}
}

type tourReq struct {
	Name         string  `json:"name"`
	Duration     int     `json:"duration"`
	MaxGroupSize int     `json:"maxGroupSize"`
	Difficulty   string  `json:"difficulty"`
	Price        float64 `json:"price"`
	Summary      string  `json:"summary"`
	Description  string  `json:"description"`
	ImageCover   string  `json:"imageCover"`
}

type tourPart struct {
	ID              uint64  `json:"id"`
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	Duration        int     `json:"duration"`
	MaxGroupSize    int     `json:"maxGroupSize"`
	Difficulty      string  `json:"difficulty"`
	RatingsAverage  float64 `json:"ratingsAverage"`
	RatingsQuantity int     `json:"ratingsQuantity"`
	Price           float64 `json:"price"`
	Summary         string  `json:"summary"`
	Description     string  `json:"description,omitempty"`
	ImageCover      string  `json:"imageCover,omitempty"`
}

func tourToPart(t model.Tour) tourPart {
	return tourPart{
		ID: t.ID, Name: t.Name, Slug: t.Slug, Duration: t.Duration,
		MaxGroupSize: t.MaxGroupSize, Difficulty: t.Difficulty,
		RatingsAverage: t.RatingsAverage, RatingsQuantity: t.RatingsQuantity,
		Price: t.Price, Summary: t.Summary, Description: t.Description,
		ImageCover: t.ImageCover,
	}
}

// slugify lowercases a tour name and collapses everything non-alphanumeric
// into single dashes.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func validDifficulty(d string) bool {
	return d == "easy" || d == "medium" || d == "difficult"
}

// List returns tours filtered, sorted and paginated from query parameters.
func (h *TourHandler) List(c echo.Context) error {
	f := repository.TourFilter{
		Difficulty: c.QueryParam("difficulty"),
		Sort:       c.QueryParam("sort"),
	}
	if v := c.QueryParam("price[lte]"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return httperr.CastError("price[lte]", v)
		}
		f.MaxPrice = p
	}
	if v := c.QueryParam("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("page"); v != "" {
		f.Page, _ = strconv.Atoi(v)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tours, err := h.Tours.List(ctx, f)
	if err != nil {
		return httperr.Wrap(err)
	}
	parts := make([]tourPart, 0, len(tours))
	for _, t := range tours {
		parts = append(parts, tourToPart(t))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(parts),
		"data":    echo.Map{"tours": parts},
	})
}

// AliasTopTours pre-fills the query for the top-5-cheap listing.
func (h *TourHandler) AliasTopTours(c echo.Context) error {
	q := c.Request().URL.Query()
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage")
	c.Request().URL.RawQuery = q.Encode()
	return h.List(c)
}

func (h *TourHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tours.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No tour found with that ID")
		}
		return httperr.Wrap(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"tour": tourToPart(t)},
	})
}

func (h *TourHandler) Create(c echo.Context) error {
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}
	if msgs := validateTour(req); len(msgs) > 0 {
		return httperr.ValidationFailed(msgs...)
	}

	t := model.Tour{
		Name: req.Name, Slug: slugify(req.Name), Duration: req.Duration,
		MaxGroupSize: req.MaxGroupSize, Difficulty: req.Difficulty,
		Price: req.Price, Summary: req.Summary, Description: req.Description,
		ImageCover: req.ImageCover,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Tours.Create(ctx, t)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return httperr.DuplicateField(req.Name)
		}
		return httperr.Wrap(err)
	}
	t.ID = id
	t.RatingsAverage = 4.5
	return c.JSON(http.StatusCreated, echo.Map{
		"status": "success",
		"data":   echo.Map{"tour": tourToPart(t)},
	})
}

func (h *TourHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tours.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No tour found with that ID")
		}
		return httperr.Wrap(err)
	}
	applyTourReq(&t, req)

	if err := h.Tours.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return httperr.DuplicateField(t.Name)
		}
		return httperr.Wrap(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"tour": tourToPart(t)},
	})
}

func (h *TourHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tours.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No tour found with that ID")
		}
		return httperr.Wrap(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats reports rating/price aggregates per difficulty.
func (h *TourHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Tours.Stats(ctx)
	if err != nil {
		return httperr.Wrap(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"stats": stats},
	})
}

// MonthlyPlan lists tour starts per month of a year.
func (h *TourHandler) MonthlyPlan(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1000 || year > 9999 {
		return httperr.CastError("year", c.Param("year"))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	plan, err := h.Tours.MonthlyPlan(ctx, year)
	if err != nil {
		return httperr.Wrap(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"plan": plan},
	})
}

func validateTour(req tourReq) []string {
	var msgs []string
	if strings.TrimSpace(req.Name) == "" {
		msgs = append(msgs, "A tour must have a name")
	}
	if req.Duration <= 0 {
		msgs = append(msgs, "A tour must have a duration")
	}
	if req.MaxGroupSize <= 0 {
		msgs = append(msgs, "A tour must have a group size")
	}
	if !validDifficulty(req.Difficulty) {
		msgs = append(msgs, "Difficulty is either: easy, medium, difficult")
	}
	if req.Price <= 0 {
		msgs = append(msgs, "A tour must have a price")
	}
	if strings.TrimSpace(req.Summary) == "" {
		msgs = append(msgs, "A tour must have a summary")
	}
	return msgs
}

// applyTourReq merges non-zero request fields into the stored tour; the slug
// follows the name.
func applyTourReq(t *model.Tour, req tourReq) {
	if req.Name != "" {
		t.Name = req.Name
		t.Slug = slugify(req.Name)
	}
	if req.Duration > 0 {
		t.Duration = req.Duration
	}
	if req.MaxGroupSize > 0 {
		t.MaxGroupSize = req.MaxGroupSize
	}
	if req.Difficulty != "" && validDifficulty(req.Difficulty) {
		t.Difficulty = req.Difficulty
	}
	if req.Price > 0 {
		t.Price = req.Price
	}
	if req.Summary != "" {
		t.Summary = req.Summary
	}
	if req.Description != "" {
		t.Description = req.Description
	}
	if req.ImageCover != "" {
		t.ImageCover = req.ImageCover
	}
}
