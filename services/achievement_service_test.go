package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soberPathAPI/internal/drinklog"
	"soberPathAPI/internal/gamification"
)

func insertTestAchievement(t *testing.T, svc *AchievementService, reqType string, value, reward int) uuid.UUID {
	t.Helper()
	achievementID := uuid.New()
	_, err := svc.db.Exec(context.Background(), `
		INSERT INTO achievements (id, name, description, icon, requirement_type, requirement_value, points_reward, created_at)
		VALUES ($1, 'Test badge', 'For testing', 'star', $2, $3, $4, NOW())
	`, achievementID, reqType, value, reward)
	require.NoError(t, err)
	t.Cleanup(func() {
		svc.db.Exec(context.Background(), `DELETE FROM achievements WHERE id = $1`, achievementID)
	})
	return achievementID
}

func TestDrinkLogAwardsAchievement(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, _ := createTestUser(t, pool)
	ctx := context.Background()

	achievementService := NewAchievementService(pool)
	logService := NewLogService(pool, achievementService, nil)

	achievementID := insertTestAchievement(t, achievementService, "days_sober", 1, 50)

	result, err := logService.AddDrinkLog(ctx, clerkID, &drinklog.AddDrinkLogRequest{DrinkCount: 0})
	require.NoError(t, err)

	// The sober-day points and the badge reward land together.
	assert.GreaterOrEqual(t, result.NewAchievements, 1)
	assert.GreaterOrEqual(t, result.TotalPoints, soberDayPoints+50)

	list, err := achievementService.GetAchievements(ctx, clerkID)
	require.NoError(t, err)

	earned := false
	for _, a := range list {
		if a.ID == achievementID {
			earned = a.Earned
			assert.NotNil(t, a.EarnedAt)
		}
	}
	assert.True(t, earned, "badge should be recorded as earned")

	// Second pass over the same stats must not re-award.
	again, err := logService.AddDrinkLog(ctx, clerkID, &drinklog.AddDrinkLogRequest{DrinkCount: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, again.NewAchievements)
	assert.Equal(t, result.TotalPoints, again.TotalPoints)
}

func TestEvaluateAndAwardTx_BatchIsOneLedgerEntry(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	_, created := createTestUser(t, pool)
	userID, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	ctx := context.Background()

	achievementService := NewAchievementService(pool)
	firstID := insertTestAchievement(t, achievementService, "days_sober", 1, 50)
	secondID := insertTestAchievement(t, achievementService, "streak", 1, 100)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	stats := gamification.Stats{DaysSober: 1, CurrentStreak: 1}
	newly, newTotal, err := achievementService.EvaluateAndAwardTx(ctx, tx, userID, stats, 0)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	// Both badges land in the same pass and the ledger moves by exactly the
	// summed reward. Any other catalog rows that qualify are part of the same
	// batch, so the sum over the returned slice is the full expected delta.
	awarded := make(map[uuid.UUID]bool, len(newly))
	reward := 0
	for _, a := range newly {
		awarded[a.ID] = true
		reward += a.PointsReward
	}
	assert.True(t, awarded[firstID])
	assert.True(t, awarded[secondID])
	assert.GreaterOrEqual(t, reward, 150)
	assert.Equal(t, reward, newTotal)

	var storedPoints, earnedRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT total_points FROM profiles WHERE user_id = $1`, userID).Scan(&storedPoints))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_achievements WHERE user_id = $1`, userID).Scan(&earnedRows))
	assert.Equal(t, newTotal, storedPoints)
	assert.Equal(t, len(newly), earnedRows)
	assert.GreaterOrEqual(t, earnedRows, 2)
}

func TestEvaluateAndAwardTx_RollbackLeavesLedgerUntouched(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	_, created := createTestUser(t, pool)
	userID, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	ctx := context.Background()

	achievementService := NewAchievementService(pool)
	insertTestAchievement(t, achievementService, "days_sober", 1, 50)
	insertTestAchievement(t, achievementService, "streak", 1, 100)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)

	newly, newTotal, err := achievementService.EvaluateAndAwardTx(ctx, tx, userID, gamification.Stats{DaysSober: 1, CurrentStreak: 1}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, newly)
	assert.Greater(t, newTotal, 0)

	require.NoError(t, tx.Rollback(ctx))

	// The award ran inside the caller's transaction, so rolling back undoes
	// the badge rows and the points together.
	var storedPoints, earnedRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT total_points FROM profiles WHERE user_id = $1`, userID).Scan(&storedPoints))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_achievements WHERE user_id = $1`, userID).Scan(&earnedRows))
	assert.Equal(t, 0, storedPoints)
	assert.Equal(t, 0, earnedRows)
}

func TestAchievementStaysEarnedAfterRelapse(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, _ := createTestUser(t, pool)
	ctx := context.Background()

	achievementService := NewAchievementService(pool)
	logService := NewLogService(pool, achievementService, nil)

	achievementID := insertTestAchievement(t, achievementService, "streak", 1, 40)

	_, err := logService.AddDrinkLog(ctx, clerkID, &drinklog.AddDrinkLogRequest{DrinkCount: 0})
	require.NoError(t, err)

	// Flip today to a drinking day. The streak resets but the badge and its
	// reward are permanent.
	after, err := logService.AddDrinkLog(ctx, clerkID, &drinklog.AddDrinkLogRequest{DrinkCount: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, after.CurrentStreak)

	list, err := achievementService.GetAchievements(ctx, clerkID)
	require.NoError(t, err)
	for _, a := range list {
		if a.ID == achievementID {
			assert.True(t, a.Earned)
		}
	}
}
