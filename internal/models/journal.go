package models

import (
	"time"

	"github.com/google/uuid"
)

// Relationship is one recorded encounter. Optional fields stay nil when the
// user left them blank; the prompt builder renders those as "N/A".
type Relationship struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Rating    *int      `json:"rating,omitempty"`
	Duration  *string   `json:"duration,omitempty"`
	Location  *string   `json:"location,omitempty"`
	Feelings  *string   `json:"feelings,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type WishlistItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Priority  string    `json:"priority"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// MirrorData is the user's self-reflection sheet: three free-form lists plus
// an optional 1-10 confidence level. One row per user, upserted as a whole.
type MirrorData struct {
	UserID          uuid.UUID `json:"user_id"`
	Self            []string  `json:"self"`
	Others          []string  `json:"others"`
	Growth          []string  `json:"growth"`
	ConfidenceLevel *int      `json:"confidence_level,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}
