package model

import "time"

// Tour mirrors the `tours` table.
type Tour struct {
	ID              uint64
	Name            string
	Slug            string
	Duration        int // days
	MaxGroupSize    int
	Difficulty      string // easy | medium | difficult
	RatingsAverage  float64
	RatingsQuantity int
	Price           float64
	Summary         string
	Description     string
	ImageCover      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TourStats is one aggregate row of the tours-stats report, grouped by
// difficulty.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlanEntry counts the tours starting in one month of a year.
type MonthlyPlanEntry struct {
	Month    int      `json:"month"`
	NumTours int      `json:"numTourStarts"`
	Tours    []string `json:"tours"`
}
