package models

import (
	"time"

	"github.com/google/uuid"
)

// Age limits accepted on profile settings. Age only tailors the generated
// insight prompt; it is never mutated by the system itself.
const (
	MinAge = 18
	MaxAge = 99
)

type Profile struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name"`
	PasswordHash  string     `json:"-"`
	Credits       int        `json:"credits"`
	Age           *int       `json:"age,omitempty"`
	LastBonusDate *time.Time `json:"last_bonus_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
