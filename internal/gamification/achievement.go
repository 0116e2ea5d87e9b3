package gamification

import (
	"github.com/google/uuid"

	"soberPathAPI/internal/achievement"
)

// Stats is the aggregate snapshot the achievement evaluator dispatches on.
type Stats struct {
	DaysSober      int
	CurrentStreak  int
	TasksCompleted int
	DrinksAvoided  int
}

// EvaluateEligibility reports whether the stats satisfy one achievement rule.
// An unrecognized requirement type is never eligible, malformed catalog data
// must not grant rewards.
func EvaluateEligibility(s Stats, a achievement.Achievement) bool {
	switch a.RequirementType {
	case achievement.RequirementDaysSober:
		return s.DaysSober >= a.RequirementValue
	case achievement.RequirementStreak:
		return s.CurrentStreak >= a.RequirementValue
	case achievement.RequirementTasksCompleted:
		return s.TasksCompleted >= a.RequirementValue
	case achievement.RequirementDrinksAvoided:
		return s.DrinksAvoided >= a.RequirementValue
	default:
		return false
	}
}

// EvaluateNewlyEarned walks the catalog once and returns the achievements
// that qualify now and were not earned before, together with the summed
// points reward for the whole batch.
func EvaluateNewlyEarned(s Stats, catalog []achievement.Achievement, earned map[uuid.UUID]struct{}) ([]achievement.Achievement, int) {
	var newly []achievement.Achievement
	total := 0
	for _, a := range catalog {
		if _, already := earned[a.ID]; already {
			continue
		}
		if !EvaluateEligibility(s, a) {
			continue
		}
		newly = append(newly, a)
		total += a.PointsReward
	}
	return newly, total
}
