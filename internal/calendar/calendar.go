package calendar

import "time"

type CalendarDay struct {
	Date       time.Time `json:"date"`
	Logged     bool      `json:"logged"`
	Sober      bool      `json:"sober"`
	DrinkCount int       `json:"drink_count"`
	IsToday    bool      `json:"is_today"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}
