package model

import "time"

// Review mirrors the `reviews` table. A user may leave at most one review per
// tour (unique key on tour_id+user_id).
type Review struct {
	ID        uint64
	TourID    uint64
	UserID    uint64
	Rating    int // 1..5
	Review    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
