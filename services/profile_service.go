package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soberPathAPI/internal/leaderboard"
	"soberPathAPI/internal/level"
	"soberPathAPI/internal/profile"
	"soberPathAPI/internal/stats"
)

type ProfileService struct {
	db *pgxpool.Pool
}

func NewProfileService(db *pgxpool.Pool) *ProfileService {
	return &ProfileService{db: db}
}

// ProfileResponse is the profile joined with its resolved level.
type ProfileResponse struct {
	profile.Profile
	Level level.Level `json:"level"`
}

func (s *ProfileService) GetProfile(ctx context.Context, clerkID string) (*ProfileResponse, error) {
	query := `
	SELECT
		p.id, p.user_id, p.total_points, p.current_streak, p.longest_streak,
		p.days_sober, p.drinks_avoided, p.level_id, p.avatar_type, p.created_at, p.updated_at,
		l.id, l.name, l.points_required, l.avatar_unlock, l.created_at
	FROM profiles p
	JOIN users u ON u.id = p.user_id
	JOIN levels l ON l.id = p.level_id
	WHERE u.clerk_id = $1
	`

	resp := &ProfileResponse{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&resp.ID, &resp.UserID, &resp.TotalPoints, &resp.CurrentStreak, &resp.LongestStreak,
		&resp.DaysSober, &resp.DrinksAvoided, &resp.LevelID, &resp.AvatarType, &resp.CreatedAt, &resp.UpdatedAt,
		&resp.Level.ID, &resp.Level.Name, &resp.Level.PointsRequired, &resp.Level.AvatarUnlock, &resp.Level.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return resp, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, clerkID string, req *profile.UpdateProfileRequest) (*ProfileResponse, error) {
	if req.AvatarType == "" {
		return nil, fmt.Errorf("avatarType is required")
	}

	query := `
	UPDATE profiles p
	SET avatar_type = $2, updated_at = NOW()
	FROM users u
	WHERE p.user_id = u.id AND u.clerk_id = $1
	`
	result, err := s.db.Exec(ctx, query, clerkID, req.AvatarType)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("profile not found")
	}

	return s.GetProfile(ctx, clerkID)
}

func (s *ProfileService) GetSettings(ctx context.Context, clerkID string) (*profile.Settings, error) {
	query := `
	SELECT s.id, s.user_id, s.baseline_drinks_per_day, s.reminders_enabled, s.reminder_hour, s.created_at, s.updated_at
	FROM user_settings s
	JOIN users u ON u.id = s.user_id
	WHERE u.clerk_id = $1
	`

	settings := &profile.Settings{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&settings.ID,
		&settings.UserID,
		&settings.BaselineDrinksPerDay,
		&settings.RemindersEnabled,
		&settings.ReminderHour,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("settings not found")
		}
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	return settings, nil
}

func (s *ProfileService) UpdateSettings(ctx context.Context, clerkID string, req *profile.UpdateSettingsRequest) (*profile.Settings, error) {
	if req.BaselineDrinksPerDay != nil && *req.BaselineDrinksPerDay < 1 {
		return nil, fmt.Errorf("baseline_drinks_per_day must be >= 1")
	}
	if req.ReminderHour != nil && (*req.ReminderHour < 0 || *req.ReminderHour > 23) {
		return nil, fmt.Errorf("reminder_hour must be between 0 and 23")
	}

	query := `
	UPDATE user_settings s
	SET baseline_drinks_per_day = COALESCE($2, s.baseline_drinks_per_day),
	    reminders_enabled = COALESCE($3, s.reminders_enabled),
	    reminder_hour = COALESCE($4, s.reminder_hour),
	    updated_at = NOW()
	FROM users u
	WHERE s.user_id = u.id AND u.clerk_id = $1
	`
	result, err := s.db.Exec(ctx, query, clerkID, req.BaselineDrinksPerDay, req.RemindersEnabled, req.ReminderHour)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("settings not found")
	}

	return s.GetSettings(ctx, clerkID)
}

// GetUserStats is the dashboard snapshot: profile counters plus today's log
// state, completion count and earned achievement count.
func (s *ProfileService) GetUserStats(ctx context.Context, clerkID string) (*stats.UserStats, error) {
	query := `
	SELECT
		p.current_streak,
		p.longest_streak,
		p.days_sober,
		p.drinks_avoided,
		p.total_points,
		(SELECT COUNT(*) FROM user_daily_task_completions c WHERE c.user_id = p.user_id),
		(SELECT COUNT(*) FROM user_achievements ua WHERE ua.user_id = p.user_id),
		EXISTS(SELECT 1 FROM drink_logs dl WHERE dl.user_id = p.user_id AND dl.date = $2),
		EXISTS(SELECT 1 FROM drink_logs dl WHERE dl.user_id = p.user_id AND dl.date = $2 AND dl.drink_count = 0)
	FROM profiles p
	JOIN users u ON u.id = p.user_id
	WHERE u.clerk_id = $1
	`

	st := &stats.UserStats{}
	err := s.db.QueryRow(ctx, query, clerkID, todayUTC()).Scan(
		&st.CurrentStreak,
		&st.LongestStreak,
		&st.DaysSober,
		&st.DrinksAvoided,
		&st.TotalPoints,
		&st.TasksCompleted,
		&st.AchievementsCount,
		&st.TodayLogged,
		&st.TodaySober,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to fetch user stats: %w", err)
	}

	return st, nil
}

// GetLeaderboard returns the top profiles by points plus the caller's own
// position, even when they're outside the page.
func (s *ProfileService) GetLeaderboard(ctx context.Context, clerkID string, limit int) (*leaderboard.Leaderboard, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := `
	SELECT p.user_id, u.username, u.image_url, p.total_points, p.current_streak, p.days_sober,
	       RANK() OVER (ORDER BY p.total_points DESC, p.current_streak DESC) as rank
	FROM profiles p
	JOIN users u ON u.id = p.user_id
	ORDER BY rank ASC
	LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	board := &leaderboard.Leaderboard{Entries: []*leaderboard.LeaderboardEntry{}}
	for rows.Next() {
		e := &leaderboard.LeaderboardEntry{}
		if err := rows.Scan(&e.UserID, &e.Username, &e.ImageURL, &e.TotalPoints, &e.CurrentStreak, &e.DaysSober, &e.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		board.Entries = append(board.Entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	positionQuery := `
	SELECT ranked.user_id, ranked.username, ranked.image_url, ranked.total_points, ranked.current_streak, ranked.days_sober, ranked.rank
	FROM (
		SELECT p.user_id, u.username, u.image_url, u.clerk_id, p.total_points, p.current_streak, p.days_sober,
		       RANK() OVER (ORDER BY p.total_points DESC, p.current_streak DESC) as rank
		FROM profiles p
		JOIN users u ON u.id = p.user_id
	) ranked
	WHERE ranked.clerk_id = $1
	`

	pos := &leaderboard.LeaderboardEntry{}
	err = s.db.QueryRow(ctx, positionQuery, clerkID).Scan(
		&pos.UserID, &pos.Username, &pos.ImageURL, &pos.TotalPoints, &pos.CurrentStreak, &pos.DaysSober, &pos.Rank,
	)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to fetch leaderboard position: %w", err)
	}
	if err == nil {
		board.UserPosition = pos
	}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&board.TotalUsers); err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}

	return board, nil
}
