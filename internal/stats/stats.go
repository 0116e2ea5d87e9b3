package stats

type DaysStat struct {
	Period    string `json:"period"` // "week", "month", "year", "all_time"
	DaysSober int    `json:"days_sober" db:"days_sober"`
	TotalDays int    `json:"total_days"`
}

type UserStats struct {
	TodayLogged       bool `json:"today_logged"`
	TodaySober        bool `json:"today_sober"`
	CurrentStreak     int  `json:"current_streak"`
	LongestStreak     int  `json:"longest_streak"`
	DaysSober         int  `json:"days_sober"`
	DrinksAvoided     int  `json:"drinks_avoided"`
	TasksCompleted    int  `json:"tasks_completed"`
	TotalPoints       int  `json:"total_points"`
	AchievementsCount int  `json:"achievements_count"`
}
