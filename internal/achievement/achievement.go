package achievement

import (
	"time"

	"github.com/google/uuid"
)

type RequirementType string

const (
	RequirementDaysSober      RequirementType = "days_sober"
	RequirementStreak         RequirementType = "streak"
	RequirementTasksCompleted RequirementType = "tasks_completed"
	RequirementDrinksAvoided  RequirementType = "drinks_avoided"
)

type Achievement struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Description      string          `json:"description" db:"description"`
	Icon             string          `json:"icon" db:"icon"`
	RequirementType  RequirementType `json:"requirement_type" db:"requirement_type"`
	RequirementValue int             `json:"requirement_value" db:"requirement_value"`
	PointsReward     int             `json:"points_reward" db:"points_reward"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// UserAchievement is unique per (user, achievement), an achievement is
// earned at most once.
type UserAchievement struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id" db:"achievement_id"`
	EarnedAt      time.Time `json:"earned_at" db:"earned_at"`
}

type AchievementWithStatus struct {
	Achievement
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}
