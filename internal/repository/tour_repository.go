package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/trailhead-labs/tour-booking/internal/model"
)

type TourRepo struct{ DB *sql.DB }

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{DB: db} }

const tourCols = `id, name, slug, duration, max_group_size, difficulty,
	ratings_average, ratings_quantity, price, summary, description,
	image_cover, created_at, updated_at`

// TourFilter carries the supported list query parameters.
type TourFilter struct {
	Difficulty string  // exact match, empty = any
	MaxPrice   float64 // price <= MaxPrice when > 0
	Sort       string  // whitelisted column, optional "-" prefix for DESC
	Limit      int
	Page       int
}

// sortColumns whitelists client-facing sort keys against SQL injection.
var sortColumns = map[string]string{
	"price":           "price",
	"ratingsAverage":  "ratings_average",
	"ratingsQuantity": "ratings_quantity",
	"duration":        "duration",
	"name":            "name",
	"createdAt":       "created_at",
}

func scanTour(scan func(dest ...any) error) (model.Tour, error) {
	var t model.Tour
	err := scan(&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize, &t.Difficulty,
		&t.RatingsAverage, &t.RatingsQuantity, &t.Price, &t.Summary, &t.Description,
		&t.ImageCover, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// List returns tours matching the filter with sorting and pagination applied
// server-side.
func (r *TourRepo) List(ctx context.Context, f TourFilter) ([]model.Tour, error) {
	q := "SELECT " + tourCols + " FROM tours"
	var (
		where []string
		args  []any
	)
	if f.Difficulty != "" {
		where = append(where, "difficulty=?")
		args = append(args, f.Difficulty)
	}
	if f.MaxPrice > 0 {
		where = append(where, "price<=?")
		args = append(args, f.MaxPrice)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	order := "created_at DESC"
	if f.Sort != "" {
		key, desc := f.Sort, false
		if strings.HasPrefix(key, "-") {
			key, desc = key[1:], true
		}
		if col, ok := sortColumns[key]; ok {
			order = col
			if desc {
				order += " DESC"
			}
		}
	}
	q += " ORDER BY " + order

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	q += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, (page-1)*limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Tour
	for rows.Next() {
		t, err := scanTour(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TourRepo) GetByID(ctx context.Context, id uint64) (model.Tour, error) {
	return scanTour(r.DB.QueryRowContext(ctx,
		"SELECT "+tourCols+" FROM tours WHERE id=? LIMIT 1", id).Scan)
}

func (r *TourRepo) GetBySlug(ctx context.Context, slug string) (model.Tour, error) {
	return scanTour(r.DB.QueryRowContext(ctx,
		"SELECT "+tourCols+" FROM tours WHERE slug=? LIMIT 1", slug).Scan)
}

// Create inserts a tour; the slug is derived from the name by the caller.
func (r *TourRepo) Create(ctx context.Context, t model.Tour) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO tours (name, slug, duration, max_group_size, difficulty,
			price, summary, description, image_cover)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		t.Name, t.Slug, t.Duration, t.MaxGroupSize, t.Difficulty,
		t.Price, t.Summary, t.Description, t.ImageCover)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *TourRepo) Update(ctx context.Context, t model.Tour) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tours SET name=?, slug=?, duration=?, max_group_size=?,
			difficulty=?, price=?, summary=?, description=?, image_cover=?
		 WHERE id=?`,
		t.Name, t.Slug, t.Duration, t.MaxGroupSize, t.Difficulty,
		t.Price, t.Summary, t.Description, t.ImageCover, t.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return requireAffected(res)
}

func (r *TourRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tours WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Stats aggregates rating and price figures per difficulty.
func (r *TourRepo) Stats(ctx context.Context) ([]model.TourStats, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT difficulty, COUNT(*), COALESCE(SUM(ratings_quantity),0),
			COALESCE(AVG(ratings_average),0), COALESCE(AVG(price),0),
			COALESCE(MIN(price),0), COALESCE(MAX(price),0)
		 FROM tours GROUP BY difficulty ORDER BY AVG(price)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TourStats
	for rows.Next() {
		var s model.TourStats
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings,
			&s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MonthlyPlan counts tour starts per month of the given year using the
// tour_start_dates table.
func (r *TourRepo) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlanEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT MONTH(d.starts_at), t.name
		 FROM tour_start_dates d JOIN tours t ON t.id = d.tour_id
		 WHERE YEAR(d.starts_at) = ?
		 ORDER BY MONTH(d.starts_at)`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMonth := map[int][]string{}
	for rows.Next() {
		var (
			month int
			name  string
		)
		if err := rows.Scan(&month, &name); err != nil {
			return nil, err
		}
		byMonth[month] = append(byMonth[month], name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []model.MonthlyPlanEntry
	for m := 1; m <= 12; m++ {
		if names, ok := byMonth[m]; ok {
			out = append(out, model.MonthlyPlanEntry{Month: m, NumTours: len(names), Tours: names})
		}
	}
	return out, nil
}
