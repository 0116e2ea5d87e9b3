package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"soberPathAPI/internal/task"
)

var ErrTaskAlreadyCompleted = errors.New("task already completed for this date")

type TaskService struct {
	db            *pgxpool.Pool
	achievements  *AchievementService
	notifications *NotificationService
}

func NewTaskService(db *pgxpool.Pool, achievements *AchievementService, notifications *NotificationService) *TaskService {
	return &TaskService{db: db, achievements: achievements, notifications: notifications}
}

// GetDailyTasks lists the active tasks with today's completion state.
func (s *TaskService) GetDailyTasks(ctx context.Context, clerkID string) ([]*task.TaskWithStatus, error) {
	userID, err := s.resolveUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT
		t.id,
		t.title,
		t.description,
		t.icon,
		t.points_reward,
		t.is_active,
		t.created_at,
		CASE WHEN c.id IS NOT NULL THEN true ELSE false END as completed,
		c.completed_at
	FROM daily_tasks t
	LEFT JOIN user_daily_task_completions c
		ON c.task_id = t.id AND c.user_id = $1 AND c.date = $2
	WHERE t.is_active = true
	ORDER BY t.points_reward ASC, t.title ASC
	`

	rows, err := s.db.Query(ctx, query, userID, todayUTC())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.TaskWithStatus{}
	for rows.Next() {
		t := &task.TaskWithStatus{}
		err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&t.Icon,
			&t.PointsReward,
			&t.IsActive,
			&t.CreatedAt,
			&t.Completed,
			&t.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTaskResult mirrors AddDrinkLogResult for the task surface.
type CompleteTaskResult struct {
	TaskID          uuid.UUID `json:"task_id"`
	TotalPoints     int       `json:"total_points"`
	PointsAwarded   int       `json:"points_awarded"`
	NewAchievements int       `json:"new_achievements"`
}

// CompleteTask records the completion and pays the reward in one transaction.
// The unique (user, task, date) index rejects a repeat completion; that comes
// back as ErrTaskAlreadyCompleted with nothing changed.
func (s *TaskService) CompleteTask(ctx context.Context, clerkID string, taskID uuid.UUID, req *task.CompleteTaskRequest) (*CompleteTaskResult, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if date.After(todayUTC()) {
		return nil, fmt.Errorf("cannot complete a task for a future date")
	}

	userID, err := s.resolveUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var reward int
	err = tx.QueryRow(ctx, `SELECT points_reward FROM daily_tasks WHERE id = $1 AND is_active = true`, taskID).Scan(&reward)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task not found")
		}
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}

	insert := `
	INSERT INTO user_daily_task_completions (id, user_id, task_id, date, completed_at)
	VALUES ($1, $2, $3, $4, NOW())
	`
	if _, err := tx.Exec(ctx, insert, uuid.New(), userID, taskID, date); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrTaskAlreadyCompleted
		}
		return nil, fmt.Errorf("failed to record task completion: %w", err)
	}

	totalPoints, err := applyPointsDelta(ctx, tx, userID, reward)
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
		return nil, fmt.Errorf("failed to commit task completion: %w", err)
	}

	if s.notifications != nil {
		s.notifications.NotifyAchievements(ctx, userID, newAchievements)
		if leveledUp {
			s.notifications.NotifyLevelUp(ctx, userID, newLevel)
		}
	}

	awarded := reward
	for _, a := range newAchievements {
		awarded += a.PointsReward
	}
	log.Printf("CompleteTask: user %s task %s date %s points=%d", userID, taskID, date.Format(dateLayout), totalPoints)

	return &CompleteTaskResult{
		TaskID:          taskID,
		TotalPoints:     totalPoints,
		PointsAwarded:   awarded,
		NewAchievements: len(newAchievements),
	}, nil
}

// UncompleteTask undoes a completion and deducts its reward. The deduction
// clamps at zero; earned achievements stay earned.
func (s *TaskService) UncompleteTask(ctx context.Context, clerkID string, taskID uuid.UUID, rawDate string) (int, error) {
	date, err := parseDate(rawDate)
	if err != nil {
		return 0, err
	}

	userID, err := s.resolveUser(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var reward int
	err = tx.QueryRow(ctx, `SELECT points_reward FROM daily_tasks WHERE id = $1`, taskID).Scan(&reward)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("task not found")
		}
		return 0, fmt.Errorf("failed to fetch task: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM user_daily_task_completions WHERE user_id = $1 AND task_id = $2 AND date = $3`, userID, taskID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete task completion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, fmt.Errorf("completion not found")
	}

	totalPoints, err := applyPointsDelta(ctx, tx, userID, -reward)
	if err != nil {
		return 0, err
	}

	if _, _, err := syncLevel(ctx, tx, userID, totalPoints); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit task uncompletion: %w", err)
	}

	return totalPoints, nil
}

func (s *TaskService) resolveUser(ctx context.Context, clerkID string) (uuid.UUID, error) {
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
