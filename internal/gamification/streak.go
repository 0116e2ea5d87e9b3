package gamification

import (
	"fmt"
	"time"

	"soberPathAPI/internal/drinklog"
)

const dayFormat = "2006-01-02"

// ComputeSoberDays counts the days ever logged with zero drinks. Order of the
// input does not matter.
func ComputeSoberDays(logs []drinklog.DrinkLog) int {
	count := 0
	for _, l := range logs {
		if l.IsSober() {
			count++
		}
	}
	return count
}

// ComputeStreak walks backward from today one calendar day at a time and
// counts consecutive days with an explicit zero-drink log. A day with no log
// breaks the streak, a gap is not proof of sobriety, and so does any log
// with drinks. Duplicate logs for one date violate the user+date uniqueness
// invariant and are reported as an error instead of being silently resolved.
func ComputeStreak(logs []drinklog.DrinkLog, today time.Time) (int, error) {
	byDay, err := indexByDay(logs)
	if err != nil {
		return 0, err
	}

	streak := 0
	day := today.UTC()
	for {
		l, ok := byDay[day.Format(dayFormat)]
		if !ok || !l.IsSober() {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak, nil
}

// ComputeLongestStreak returns the longest run of consecutive zero-drink days
// anywhere in the history, not just the run ending today.
func ComputeLongestStreak(logs []drinklog.DrinkLog) (int, error) {
	byDay, err := indexByDay(logs)
	if err != nil {
		return 0, err
	}

	longest := 0
	for key, l := range byDay {
		if !l.IsSober() {
			continue
		}
		day, err := time.ParseInLocation(dayFormat, key, time.UTC)
		if err != nil {
			return 0, fmt.Errorf("malformed log date %q: %w", key, err)
		}

		// Only start counting at the beginning of a run.
		prev := day.AddDate(0, 0, -1).Format(dayFormat)
		if l, ok := byDay[prev]; ok && l.IsSober() {
			continue
		}

		run := 0
		for {
			l, ok := byDay[day.Format(dayFormat)]
			if !ok || !l.IsSober() {
				break
			}
			run++
			day = day.AddDate(0, 0, 1)
		}
		if run > longest {
			longest = run
		}
	}
	return longest, nil
}

func indexByDay(logs []drinklog.DrinkLog) (map[string]drinklog.DrinkLog, error) {
	byDay := make(map[string]drinklog.DrinkLog, len(logs))
	for _, l := range logs {
		key := l.Date.UTC().Format(dayFormat)
		if _, exists := byDay[key]; exists {
			return nil, fmt.Errorf("duplicate drink log for user %s on %s", l.UserID, key)
		}
		byDay[key] = l
	}
	return byDay, nil
}
