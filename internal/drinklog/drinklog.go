package drinklog

import (
	"time"

	"github.com/google/uuid"
)

// DrinkLog is one row per user per calendar date. The (user_id, date) pair is
// unique in the database; a second log for the same date updates the row.
type DrinkLog struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Date       time.Time `json:"date" db:"date"`
	DrinkCount int       `json:"drink_count" db:"drink_count"`
	Notes      *string   `json:"notes,omitempty" db:"notes"`
	LoggedAt   time.Time `json:"logged_at" db:"logged_at"`
}

// IsSober reports whether the day was explicitly logged drink-free.
func (l DrinkLog) IsSober() bool {
	return l.DrinkCount == 0
}

type MoodLog struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Date     time.Time `json:"date" db:"date"`
	Score    int       `json:"score" db:"score"`
	Notes    *string   `json:"notes,omitempty" db:"notes"`
	LoggedAt time.Time `json:"logged_at" db:"logged_at"`
}

type TriggerLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Date      time.Time `json:"date" db:"date"`
	Trigger   string    `json:"trigger" db:"trigger"`
	Intensity int       `json:"intensity" db:"intensity"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	LoggedAt  time.Time `json:"logged_at" db:"logged_at"`
}
