package repository

import (
	"context"
	"database/sql"

	"github.com/trailhead-labs/tour-booking/internal/model"
)

type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

const reviewCols = "id, tour_id, user_id, rating, review, created_at, updated_at"

func scanReview(scan func(dest ...any) error) (model.Review, error) {
	var rv model.Review
	err := scan(&rv.ID, &rv.TourID, &rv.UserID, &rv.Rating, &rv.Review,
		&rv.CreatedAt, &rv.UpdatedAt)
	return rv, err
}

// List returns reviews, optionally scoped to one tour (tourID > 0).
func (r *ReviewRepo) List(ctx context.Context, tourID uint64) ([]model.Review, error) {
	q := "SELECT " + reviewCols + " FROM reviews"
	var args []any
	if tourID > 0 {
		q += " WHERE tour_id=?"
		args = append(args, tourID)
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		rv, err := scanReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	return scanReview(r.DB.QueryRowContext(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE id=? LIMIT 1", id).Scan)
}

// Create inserts a review and refreshes the tour's rating aggregates.
func (r *ReviewRepo) Create(ctx context.Context, rv model.Review) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (tour_id, user_id, rating, review) VALUES (?,?,?,?)",
		rv.TourID, rv.UserID, rv.Rating, rv.Review)
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
	if err := r.recalcRatings(ctx, rv.TourID); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *ReviewRepo) Update(ctx context.Context, id uint64, rating int, text string) error {
	rv, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE reviews SET rating=?, review=? WHERE id=?", rating, text, id); err != nil {
		return err
	}
	return r.recalcRatings(ctx, rv.TourID)
}

func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	rv, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return r.recalcRatings(ctx, rv.TourID)
}

// recalcRatings rewrites the denormalized rating columns on the tour from the
// surviving reviews. 4.5/0 are the defaults for a tour with no reviews.
func (r *ReviewRepo) recalcRatings(ctx context.Context, tourID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE tours t SET
			ratings_quantity = (SELECT COUNT(*) FROM reviews WHERE tour_id = t.id),
			ratings_average  = COALESCE(
				(SELECT AVG(rating) FROM reviews WHERE tour_id = t.id), 4.5)
		 WHERE t.id = ?`, tourID)
	return err
}
