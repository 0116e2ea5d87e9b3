package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the per-user aggregate state. Invariants maintained by the
// services layer: LongestStreak >= CurrentStreak, TotalPoints >= 0, and
// LevelID always references the highest level whose threshold is covered
// by TotalPoints.
type Profile struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	TotalPoints   int       `json:"total_points" db:"total_points"`
	CurrentStreak int       `json:"current_streak" db:"current_streak"`
	LongestStreak int       `json:"longest_streak" db:"longest_streak"`
	DaysSober     int       `json:"days_sober" db:"days_sober"`
	DrinksAvoided int       `json:"drinks_avoided" db:"drinks_avoided"`
	LevelID       uuid.UUID `json:"level_id" db:"level_id"`
	AvatarType    string    `json:"avatar_type" db:"avatar_type"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type Settings struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	UserID               uuid.UUID `json:"user_id" db:"user_id"`
	BaselineDrinksPerDay int       `json:"baseline_drinks_per_day" db:"baseline_drinks_per_day"`
	RemindersEnabled     bool      `json:"reminders_enabled" db:"reminders_enabled"`
	ReminderHour         int       `json:"reminder_hour" db:"reminder_hour"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

type UpdateProfileRequest struct {
	AvatarType string `json:"avatarType,omitempty"`
}

type UpdateSettingsRequest struct {
	BaselineDrinksPerDay *int  `json:"baseline_drinks_per_day,omitempty"`
	RemindersEnabled     *bool `json:"reminders_enabled,omitempty"`
	ReminderHour         *int  `json:"reminder_hour,omitempty"`
}
