package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soberPathAPI/internal/task"
)

func insertTestTask(t *testing.T, svc *TaskService, reward int) uuid.UUID {
	t.Helper()
	taskID := uuid.New()
	_, err := svc.db.Exec(context.Background(), `
		INSERT INTO daily_tasks (id, title, description, icon, points_reward, is_active, created_at)
		VALUES ($1, 'Test check-in', 'Log how you feel today', 'sun', $2, true, NOW())
	`, taskID, reward)
	require.NoError(t, err)
	t.Cleanup(func() {
		svc.db.Exec(context.Background(), `DELETE FROM daily_tasks WHERE id = $1`, taskID)
	})
	return taskID
}

func TestCompleteTask_OncePerDay(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, _ := createTestUser(t, pool)
	ctx := context.Background()

	achievementService := NewAchievementService(pool)
	taskService := NewTaskService(pool, achievementService, nil)
	taskID := insertTestTask(t, taskService, 15)

	result, err := taskService.CompleteTask(ctx, clerkID, taskID, &task.CompleteTaskRequest{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.PointsAwarded, 15)
	assert.GreaterOrEqual(t, result.TotalPoints, 15)

	// A second completion on the same date must fail without touching the
	// ledger.
	_, err = taskService.CompleteTask(ctx, clerkID, taskID, &task.CompleteTaskRequest{})
	require.ErrorIs(t, err, ErrTaskAlreadyCompleted)

	tasks, err := taskService.GetDailyTasks(ctx, clerkID)
	require.NoError(t, err)
	found := false
	for _, item := range tasks {
		if item.ID == taskID {
			found = true
			assert.True(t, item.Completed)
			assert.NotNil(t, item.CompletedAt)
		}
	}
	assert.True(t, found, "seeded task should appear in the daily list")
}

func TestUncompleteTask_DeductsReward(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, _ := createTestUser(t, pool)
	ctx := context.Background()

	achievementService := NewAchievementService(pool)
	taskService := NewTaskService(pool, achievementService, nil)
	taskID := insertTestTask(t, taskService, 15)

	completed, err := taskService.CompleteTask(ctx, clerkID, taskID, &task.CompleteTaskRequest{})
	require.NoError(t, err)

	totalAfter, err := taskService.UncompleteTask(ctx, clerkID, taskID, "")
	require.NoError(t, err)
	assert.Equal(t, completed.TotalPoints-15, totalAfter)

	// Undoing twice fails: the completion row is gone.
	_, err = taskService.UncompleteTask(ctx, clerkID, taskID, "")
	assert.Error(t, err)
}

func TestCompleteTask_UnknownTask(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, _ := createTestUser(t, pool)
	ctx := context.Background()

	achievementService := NewAchievementService(pool)
	taskService := NewTaskService(pool, achievementService, nil)

	_, err := taskService.CompleteTask(ctx, clerkID, uuid.New(), &task.CompleteTaskRequest{})
	assert.Error(t, err)
}
