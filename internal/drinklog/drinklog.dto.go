package drinklog

type AddDrinkLogRequest struct {
	Date       string  `json:"date"` // YYYY-MM-DD, defaults to today
	DrinkCount int     `json:"drink_count"`
	Notes      *string `json:"notes,omitempty"`
}

type AddMoodLogRequest struct {
	Date  string  `json:"date"`
	Score int     `json:"score" validate:"required,min=1,max=10"`
	Notes *string `json:"notes,omitempty"`
}

type AddTriggerLogRequest struct {
	Date      string  `json:"date"`
	Trigger   string  `json:"trigger" validate:"required"`
	Intensity int     `json:"intensity" validate:"required,min=1,max=10"`
	Notes     *string `json:"notes,omitempty"`
}
