package leaderboard

import "github.com/google/uuid"

type LeaderboardEntry struct {
	UserID        uuid.UUID `json:"user_id"`
	Username      string    `json:"username"`
	ImageURL      *string   `json:"image_url"`
	TotalPoints   int       `json:"total_points"`
	CurrentStreak int       `json:"current_streak"`
	DaysSober     int       `json:"days_sober"`
	Rank          int       `json:"rank"`
}

type Leaderboard struct {
	Entries      []*LeaderboardEntry `json:"entries"`
	UserPosition *LeaderboardEntry   `json:"user_position"`
	TotalUsers   int                 `json:"total_users"`
}
