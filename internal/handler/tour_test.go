package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/model"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"The Forest Hiker":     "the-forest-hiker",
		"The Sea Explorer!":    "the-sea-explorer",
		"  spaced   out  ":     "spaced-out",
		"Caffè & Trails 2024":  "caff-trails-2024",
		"ALLCAPS":              "allcaps",
		"":                     "",
		"---":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), "slugify(%q)", in)
	}
}

func TestValidateTour(t *testing.T) {
	valid := tourReq{
		Name: "The Forest Hiker", Duration: 5, MaxGroupSize: 25,
		Difficulty: "easy", Price: 397, Summary: "Breathtaking hike",
	}
	assert.Empty(t, validateTour(valid))

	missing := validateTour(tourReq{Difficulty: "extreme"})
	assert.Contains(t, missing, "A tour must have a name")
	assert.Contains(t, missing, "A tour must have a duration")
	assert.Contains(t, missing, "A tour must have a group size")
	assert.Contains(t, missing, "Difficulty is either: easy, medium, difficult")
	assert.Contains(t, missing, "A tour must have a price")
	assert.Contains(t, missing, "A tour must have a summary")
}

func TestApplyTourReq(t *testing.T) {
	tour := model.Tour{
		ID: 1, Name: "The Forest Hiker", Slug: "the-forest-hiker",
		Duration: 5, MaxGroupSize: 25, Difficulty: "easy", Price: 397,
		Summary: "old summary",
	}

	applyTourReq(&tour, tourReq{Name: "The Sea Explorer", Price: 497})

	assert.Equal(t, "The Sea Explorer", tour.Name)
	assert.Equal(t, "the-sea-explorer", tour.Slug)
	assert.Equal(t, 497.0, tour.Price)
	// Untouched fields keep their stored values.
	assert.Equal(t, 5, tour.Duration)
	assert.Equal(t, "easy", tour.Difficulty)
	assert.Equal(t, "old summary", tour.Summary)

	applyTourReq(&tour, tourReq{Difficulty: "extreme"})
	assert.Equal(t, "easy", tour.Difficulty)
}

func TestPathID(t *testing.T) {
	newParamCtx := func(val string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := echo.New().NewContext(req, httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(val)
		return c
	}

	id, err := pathID(newParamCtx("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	for _, bad := range []string{"abc", "-1", "0", "1.5", ""} {
		_, err := pathID(newParamCtx(bad), "id")
		var he *httperr.Error
		require.ErrorAs(t, err, &he, "value %q", bad)
		assert.Equal(t, http.StatusBadRequest, he.Code)
		assert.Equal(t, httperr.KindCast, he.Kind)
	}
}
