package model

import "time"

// UserProduct is one watch-list entry. The (UserID, ASIN) pair is
// unique per user.
type UserProduct struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ASIN      string    `json:"asin"`
	CreatedAt time.Time `json:"created_at"`
}
