package repository

import (
	"context"
	"database/sql"

	"github.com/trailhead-labs/tour-booking/internal/model"
)

type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingCols = "id, tour_id, user_id, price, paid, created_at"

func scanBooking(scan func(dest ...any) error) (model.Booking, error) {
	var b model.Booking
	err := scan(&b.ID, &b.TourID, &b.UserID, &b.Price, &b.Paid, &b.CreatedAt)
	return b, err
}

func (r *BookingRepo) Create(ctx context.Context, b model.Booking) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO bookings (tour_id, user_id, price, paid) VALUES (?,?,?,?)",
		b.TourID, b.UserID, b.Price, b.Paid)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return scanBooking(r.DB.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE id=? LIMIT 1", id).Scan)
}

func (r *BookingRepo) List(ctx context.Context) ([]model.Booking, error) {
	return r.list(ctx, "SELECT "+bookingCols+" FROM bookings ORDER BY created_at DESC")
}

// ListByUser powers the my-tours page.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE user_id=? ORDER BY created_at DESC", userID)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepo) Update(ctx context.Context, id uint64, paid bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE bookings SET paid=? WHERE id=?", paid, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
