package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soberPathAPI/internal/achievement"
	"soberPathAPI/internal/gamification"
)

type AchievementService struct {
	db *pgxpool.Pool
}

func NewAchievementService(db *pgxpool.Pool) *AchievementService {
	return &AchievementService{db: db}
}

func (s *AchievementService) GetAchievements(ctx context.Context, clerkID string) ([]*achievement.AchievementWithStatus, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	query := `
	SELECT
		a.id,
		a.name,
		a.description,
		a.icon,
		a.requirement_type,
		a.requirement_value,
		a.points_reward,
		a.created_at,
		CASE WHEN ua.id IS NOT NULL THEN true ELSE false END as earned,
		ua.earned_at
	FROM achievements a
	LEFT JOIN user_achievements ua ON a.id = ua.achievement_id AND ua.user_id = $1
	ORDER BY earned DESC, a.requirement_value ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*achievement.AchievementWithStatus
	for rows.Next() {
		ach := &achievement.AchievementWithStatus{}
		err := rows.Scan(
			&ach.ID,
			&ach.Name,
			&ach.Description,
			&ach.Icon,
			&ach.RequirementType,
			&ach.RequirementValue,
			&ach.PointsReward,
			&ach.CreatedAt,
			&ach.Earned,
			&ach.EarnedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, ach)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	return achievements, nil
}

// EvaluateAndAwardTx runs one evaluation pass inside the caller's
// transaction: every newly qualifying achievement is recorded and the summed
// reward is applied as a single delta. Either all rows land together with the
// points, or the caller's rollback discards the lot. Returns the newly earned
// achievements and the post-award points total.
func (s *AchievementService) EvaluateAndAwardTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, stats gamification.Stats, totalPoints int) ([]achievement.Achievement, int, error) {
	catalog, err := loadAchievementCatalog(ctx, tx)
	if err != nil {
		return nil, 0, err
	}

	earned, err := loadEarnedAchievementIDs(ctx, tx, userID)
	if err != nil {
		return nil, 0, err
	}

	newly, reward := gamification.EvaluateNewlyEarned(stats, catalog, earned)
	if len(newly) == 0 {
		return nil, totalPoints, nil
	}

	insertQuery := `
	INSERT INTO user_achievements (id, user_id, achievement_id, earned_at)
	VALUES ($1, $2, $3, $4)
	`
	now := time.Now()
	for _, a := range newly {
		if _, err := tx.Exec(ctx, insertQuery, uuid.New(), userID, a.ID, now); err != nil {
			return nil, 0, fmt.Errorf("failed to record achievement %s: %w", a.Name, err)
		}
	}

	newTotal, err := applyPointsDelta(ctx, tx, userID, reward)
	if err != nil {
		return nil, 0, err
	}

	return newly, newTotal, nil
}

func loadAchievementCatalog(ctx context.Context, q querier) ([]achievement.Achievement, error) {
	query := `
	SELECT id, name, description, icon, requirement_type, requirement_value, points_reward, created_at
	FROM achievements
	ORDER BY requirement_value ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievement catalog: %w", err)
	}
	defer rows.Close()

	var catalog []achievement.Achievement
	for rows.Next() {
		var a achievement.Achievement
		err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.RequirementType, &a.RequirementValue, &a.PointsReward, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		if !knownRequirementType(a.RequirementType) {
			// Fails closed in the evaluator; flag the catalog problem here.
			log.Printf("achievement catalog: unknown requirement_type %q on %q", a.RequirementType, a.Name)
		}
		catalog = append(catalog, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievement catalog: %w", err)
	}

	return catalog, nil
}

func loadEarnedAchievementIDs(ctx context.Context, q querier, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := q.Query(ctx, `SELECT achievement_id FROM user_achievements WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch earned achievements: %w", err)
	}
	defer rows.Close()

	earned := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan earned achievement id: %w", err)
		}
		earned[id] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating earned achievements: %w", err)
	}

	return earned, nil
}

func knownRequirementType(t achievement.RequirementType) bool {
	switch t {
	case achievement.RequirementDaysSober,
		achievement.RequirementStreak,
		achievement.RequirementTasksCompleted,
		achievement.RequirementDrinksAvoided:
		return true
	}
	return false
}

// loadStatsTx builds the evaluator snapshot from the profile row and the
// completion count, inside the caller's transaction so it sees the writes
// made earlier in the same unit of work.
func loadStatsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (gamification.Stats, error) {
	var stats gamification.Stats
	query := `
	SELECT
		p.days_sober,
		p.current_streak,
		p.drinks_avoided,
		(SELECT COUNT(*) FROM user_daily_task_completions c WHERE c.user_id = p.user_id) as tasks_completed
	FROM profiles p
	WHERE p.user_id = $1
	`
	err := tx.QueryRow(ctx, query, userID).Scan(
		&stats.DaysSober,
		&stats.CurrentStreak,
		&stats.DrinksAvoided,
		&stats.TasksCompleted,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return stats, fmt.Errorf("profile not found")
		}
		return stats, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}
