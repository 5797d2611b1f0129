package model

import "time"

// Booking mirrors the `bookings` table. Price is captured at purchase time so
// later tour price changes do not rewrite history.
type Booking struct {
	ID        uint64
	TourID    uint64
	UserID    uint64
	Price     float64
	Paid      bool
	CreatedAt time.Time
}
