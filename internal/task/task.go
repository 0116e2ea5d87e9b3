package task

import (
	"time"

	"github.com/google/uuid"
)

type DailyTask struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Icon         string    `json:"icon" db:"icon"`
	PointsReward int       `json:"points_reward" db:"points_reward"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Completion is unique per (user, task, date), a task pays out once per day.
type Completion struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	TaskID      uuid.UUID `json:"task_id" db:"task_id"`
	Date        time.Time `json:"date" db:"date"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

type TaskWithStatus struct {
	DailyTask
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CompleteTaskRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, defaults to today
}
