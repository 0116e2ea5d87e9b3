package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soberPathAPI/internal/calendar"
	"soberPathAPI/internal/drinklog"
	"soberPathAPI/internal/gamification"
	"soberPathAPI/internal/stats"
)

// soberDayPoints is the reward for each explicitly logged drink-free day.
const soberDayPoints = 10

type LogService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
	achievements  *AchievementService
}

func NewLogService(db *pgxpool.Pool, achievements *AchievementService, notifications *NotificationService) *LogService {
	return &LogService{db: db, achievements: achievements, notifications: notifications}
}

// AddDrinkLogResult carries everything the client needs to refresh its view
// after a log lands.
type AddDrinkLogResult struct {
	Log             *drinklog.DrinkLog `json:"log"`
	CurrentStreak   int                `json:"current_streak"`
	LongestStreak   int                `json:"longest_streak"`
	DaysSober       int                `json:"days_sober"`
	DrinksAvoided   int                `json:"drinks_avoided"`
	TotalPoints     int                `json:"total_points"`
	PointsAwarded   int                `json:"points_awarded"`
	NewAchievements int                `json:"new_achievements"`
	StreakMilestone bool               `json:"streak_milestone"`
}

// AddDrinkLog records (or overwrites) the log for one calendar day and runs
// the whole ledger pass in a single transaction: points delta from the day's
// previous state, streak and counter recompute, achievement awards, level
// resolution. Either everything commits or nothing does. Notifications go out
// after the commit, best-effort.
func (s *LogService) AddDrinkLog(ctx context.Context, clerkID string, req *drinklog.AddDrinkLogRequest) (*AddDrinkLogResult, error) {
	if req.DrinkCount < 0 {
		return nil, fmt.Errorf("drink_count must be >= 0")
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	today := todayUTC()
	if date.After(today) {
		return nil, fmt.Errorf("cannot log a future date")
	}

	var userID uuid.UUID
	err = s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the profile row first so concurrent logs for the same user
	// serialize on it instead of deadlocking across drink_logs rows.
	var prevStreak int
	err = tx.QueryRow(ctx, `SELECT current_streak FROM profiles WHERE user_id = $1 FOR UPDATE`, userID).Scan(&prevStreak)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to lock profile: %w", err)
	}

	// The day's previous state decides the points delta. Re-logging the same
	// sober day is a no-op on the ledger; flipping the day flips the delta.
	var prevCount *int
	err = tx.QueryRow(ctx, `SELECT drink_count FROM drink_logs WHERE user_id = $1 AND date = $2`, userID, date).Scan(&prevCount)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read existing log: %w", err)
	}

	entry := &drinklog.DrinkLog{UserID: userID, Date: date, DrinkCount: req.DrinkCount, Notes: req.Notes}
	upsert := `
	INSERT INTO drink_logs (id, user_id, date, drink_count, notes, logged_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (user_id, date)
	DO UPDATE SET drink_count = $4, notes = $5, logged_at = NOW()
	RETURNING id, logged_at
	`
	err = tx.QueryRow(ctx, upsert, uuid.New(), userID, date, req.DrinkCount, req.Notes).Scan(&entry.ID, &entry.LoggedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save drink log: %w", err)
	}

	baseline, err := loadBaselineTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	wasSober := prevCount != nil && *prevCount == 0
	isSober := req.DrinkCount == 0
	pointsDelta := 0
	avoidedDelta := 0
	switch {
	case isSober && !wasSober:
		pointsDelta = soberDayPoints
		avoidedDelta = baseline
	case !isSober && wasSober:
		pointsDelta = -soberDayPoints
		avoidedDelta = -baseline
	}

	logs, err := loadDrinkLogsTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	daysSober := gamification.ComputeSoberDays(logs)
	currentStreak, err := gamification.ComputeStreak(logs, today)
	if err != nil {
		return nil, fmt.Errorf("failed to compute streak: %w", err)
	}
	longestStreak, err := gamification.ComputeLongestStreak(logs)
	if err != nil {
		return nil, fmt.Errorf("failed to compute longest streak: %w", err)
	}

	counterQuery := `
	UPDATE profiles
	SET days_sober = $2,
	    current_streak = $3,
	    longest_streak = GREATEST(longest_streak, $4),
	    drinks_avoided = GREATEST(0, drinks_avoided + $5),
	    updated_at = NOW()
	WHERE user_id = $1
	RETURNING drinks_avoided, longest_streak
	`
	var drinksAvoided, storedLongest int
	err = tx.QueryRow(ctx, counterQuery, userID, daysSober, currentStreak, longestStreak, avoidedDelta).Scan(&drinksAvoided, &storedLongest)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile counters: %w", err)
	}

	totalPoints, err := applyPointsDelta(ctx, tx, userID, pointsDelta)
	if err != nil {
		return nil, err
	}

	evalStats, err := loadStatsTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newAchievements, totalPoints, err := s.achievements.EvaluateAndAwardTx(ctx, tx, userID, evalStats, totalPoints)
	if err != nil {
		return nil, err
	}

	newLevel, leveledUp, err := syncLevel(ctx, tx, userID, totalPoints)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit drink log: %w", err)
	}

	milestone := currentStreak != prevStreak && isStreakMilestone(currentStreak)
	if s.notifications != nil {
		s.notifications.NotifyAchievements(ctx, userID, newAchievements)
		if currentStreak != prevStreak {
			s.notifications.NotifyStreakMilestone(ctx, userID, currentStreak)
		}
		if leveledUp {
			s.notifications.NotifyLevelUp(ctx, userID, newLevel)
		}
	}

	awarded := pointsDelta
	for _, a := range newAchievements {
		awarded += a.PointsReward
	}
	log.Printf("AddDrinkLog: user %s date %s sober=%t streak=%d points=%d", userID, date.Format(dateLayout), isSober, currentStreak, totalPoints)

	return &AddDrinkLogResult{
		Log:             entry,
		CurrentStreak:   currentStreak,
		LongestStreak:   storedLongest,
		DaysSober:       daysSober,
		DrinksAvoided:   drinksAvoided,
		TotalPoints:     totalPoints,
		PointsAwarded:   awarded,
		NewAchievements: len(newAchievements),
		StreakMilestone: milestone,
	}, nil
}

func (s *LogService) GetDrinkLogs(ctx context.Context, clerkID string, limit int) ([]*drinklog.DrinkLog, error) {
	if limit <= 0 || limit > 365 {
		limit = 90
	}

	query := `
	SELECT dl.id, dl.user_id, dl.date, dl.drink_count, dl.notes, dl.logged_at
	FROM drink_logs dl
	JOIN users u ON u.id = dl.user_id
	WHERE u.clerk_id = $1
	ORDER BY dl.date DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, clerkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drink logs: %w", err)
	}
	defer rows.Close()

	logs := []*drinklog.DrinkLog{}
	for rows.Next() {
		l := &drinklog.DrinkLog{}
		if err := rows.Scan(&l.ID, &l.UserID, &l.Date, &l.DrinkCount, &l.Notes, &l.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan drink log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *LogService) AddMoodLog(ctx context.Context, clerkID string, req *drinklog.AddMoodLogRequest) (*drinklog.MoodLog, error) {
	if req.Score < 1 || req.Score > 10 {
		return nil, fmt.Errorf("score must be between 1 and 10")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	userID, err := s.resolveUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	m := &drinklog.MoodLog{UserID: userID, Date: date, Score: req.Score, Notes: req.Notes}
	query := `
	INSERT INTO mood_logs (id, user_id, date, score, notes, logged_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (user_id, date)
	DO UPDATE SET score = $4, notes = $5, logged_at = NOW()
	RETURNING id, logged_at
	`
	err = s.db.QueryRow(ctx, query, uuid.New(), userID, date, req.Score, req.Notes).Scan(&m.ID, &m.LoggedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save mood log: %w", err)
	}
	return m, nil
}

func (s *LogService) GetMoodLogs(ctx context.Context, clerkID string, limit int) ([]*drinklog.MoodLog, error) {
	if limit <= 0 || limit > 365 {
		limit = 30
	}

	query := `
	SELECT ml.id, ml.user_id, ml.date, ml.score, ml.notes, ml.logged_at
	FROM mood_logs ml
	JOIN users u ON u.id = ml.user_id
	WHERE u.clerk_id = $1
	ORDER BY ml.date DESC, ml.logged_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, clerkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mood logs: %w", err)
	}
	defer rows.Close()

	logs := []*drinklog.MoodLog{}
	for rows.Next() {
		m := &drinklog.MoodLog{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Date, &m.Score, &m.Notes, &m.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mood log: %w", err)
		}
		logs = append(logs, m)
	}
	return logs, rows.Err()
}

func (s *LogService) AddTriggerLog(ctx context.Context, clerkID string, req *drinklog.AddTriggerLogRequest) (*drinklog.TriggerLog, error) {
	if req.Trigger == "" {
		return nil, fmt.Errorf("trigger is required")
	}
	if req.Intensity < 1 || req.Intensity > 10 {
		return nil, fmt.Errorf("intensity must be between 1 and 10")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	userID, err := s.resolveUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	t := &drinklog.TriggerLog{UserID: userID, Date: date, Trigger: req.Trigger, Intensity: req.Intensity, Notes: req.Notes}
	query := `
	INSERT INTO trigger_logs (id, user_id, date, trigger, intensity, notes, logged_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	RETURNING id, logged_at
	`
	err = s.db.QueryRow(ctx, query, uuid.New(), userID, date, req.Trigger, req.Intensity, req.Notes).Scan(&t.ID, &t.LoggedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save trigger log: %w", err)
	}
	return t, nil
}

func (s *LogService) GetTriggerLogs(ctx context.Context, clerkID string, limit int) ([]*drinklog.TriggerLog, error) {
	if limit <= 0 || limit > 365 {
		limit = 30
	}

	query := `
	SELECT tl.id, tl.user_id, tl.date, tl.trigger, tl.intensity, tl.notes, tl.logged_at
	FROM trigger_logs tl
	JOIN users u ON u.id = tl.user_id
	WHERE u.clerk_id = $1
	ORDER BY tl.date DESC, tl.logged_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, clerkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trigger logs: %w", err)
	}
	defer rows.Close()

	logs := []*drinklog.TriggerLog{}
	for rows.Next() {
		t := &drinklog.TriggerLog{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Date, &t.Trigger, &t.Intensity, &t.Notes, &t.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trigger log: %w", err)
		}
		logs = append(logs, t)
	}
	return logs, rows.Err()
}

// GetCalendar returns one entry per day of the given month, logged or not.
func (s *LogService) GetCalendar(ctx context.Context, clerkID string, year, month int) (*calendar.CalendarResponse, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return nil, fmt.Errorf("invalid year")
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	query := `
	SELECT dl.date, dl.drink_count
	FROM drink_logs dl
	JOIN users u ON u.id = dl.user_id
	WHERE u.clerk_id = $1 AND dl.date >= $2 AND dl.date < $3
	`

	rows, err := s.db.Query(ctx, query, clerkID, first, next)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar logs: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]int)
	for rows.Next() {
		var d time.Time
		var count int
		if err := rows.Scan(&d, &count); err != nil {
			return nil, fmt.Errorf("failed to scan calendar log: %w", err)
		}
		byDay[d.Format(dateLayout)] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar logs: %w", err)
	}

	today := todayUTC()
	resp := &calendar.CalendarResponse{Year: year, Month: month, Days: []*calendar.CalendarDay{}}
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		day := &calendar.CalendarDay{Date: d, IsToday: d.Equal(today)}
		if count, ok := byDay[d.Format(dateLayout)]; ok {
			day.Logged = true
			day.DrinkCount = count
			day.Sober = count == 0
		}
		resp.Days = append(resp.Days, day)
	}
	return resp, nil
}

// GetDaysStats counts sober days in a trailing window. Supported periods:
// week (7 days), month (30), year (365), all_time (since the first log).
func (s *LogService) GetDaysStats(ctx context.Context, clerkID, period string) (*stats.DaysStat, error) {
	var windowDays int
	switch period {
	case "week":
		windowDays = 7
	case "month":
		windowDays = 30
	case "year":
		windowDays = 365
	case "all_time":
		windowDays = 0
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}

	today := todayUTC()
	result := &stats.DaysStat{Period: period}

	if windowDays > 0 {
		since := today.AddDate(0, 0, -(windowDays - 1))
		query := `
		SELECT COUNT(*)
		FROM drink_logs dl
		JOIN users u ON u.id = dl.user_id
		WHERE u.clerk_id = $1 AND dl.drink_count = 0 AND dl.date >= $2 AND dl.date <= $3
		`
		if err := s.db.QueryRow(ctx, query, clerkID, since, today).Scan(&result.DaysSober); err != nil {
			return nil, fmt.Errorf("failed to count sober days: %w", err)
		}
		result.TotalDays = windowDays
		return result, nil
	}

	query := `
	SELECT
		COUNT(*) FILTER (WHERE dl.drink_count = 0),
		COALESCE(MIN(dl.date), $2)
	FROM drink_logs dl
	JOIN users u ON u.id = dl.user_id
	WHERE u.clerk_id = $1
	`
	var firstDate time.Time
	if err := s.db.QueryRow(ctx, query, clerkID, today).Scan(&result.DaysSober, &firstDate); err != nil {
		return nil, fmt.Errorf("failed to count sober days: %w", err)
	}
	result.TotalDays = int(today.Sub(firstDate.UTC().Truncate(24*time.Hour)).Hours()/24) + 1
	return result, nil
}

func (s *LogService) resolveUser(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user not found")
		}
		return uuid.Nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return userID, nil
}

func loadDrinkLogsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]drinklog.DrinkLog, error) {
	rows, err := tx.Query(ctx, `SELECT id, user_id, date, drink_count, notes, logged_at FROM drink_logs WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drink logs: %w", err)
	}
	defer rows.Close()

	var logs []drinklog.DrinkLog
	for rows.Next() {
		var l drinklog.DrinkLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Date, &l.DrinkCount, &l.Notes, &l.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan drink log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func loadBaselineTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	var baseline int
	err := tx.QueryRow(ctx, `SELECT baseline_drinks_per_day FROM user_settings WHERE user_id = $1`, userID).Scan(&baseline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 1, nil
		}
		return 0, fmt.Errorf("failed to fetch settings: %w", err)
	}
	if baseline < 1 {
		baseline = 1
	}
	return baseline, nil
}

func todayUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func isStreakMilestone(streak int) bool {
	for _, m := range streakMilestones {
		if streak == m {
			return true
		}
	}
	return false
}
