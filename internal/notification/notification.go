package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationAchievement     NotificationType = "achievement"
	NotificationLevelUp         NotificationType = "level_up"
	NotificationStreakMilestone NotificationType = "streak_milestone"
	NotificationStreakRisk      NotificationType = "streak_risk"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	Data      map[string]any   `json:"data" db:"data"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Token    string    `json:"token" db:"token"`
	Platform string    `json:"platform" db:"platform"`
}
