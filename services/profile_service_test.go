package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soberPathAPI/internal/drinklog"
	"soberPathAPI/internal/profile"
)

func TestCreateUser_ProvisionsProfileAndSettings(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, created := createTestUser(t, pool)
	ctx := context.Background()

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, clerkID, created.ClerkID)

	profileService := NewProfileService(pool)

	p, err := profileService.GetProfile(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalPoints)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 0, p.Level.PointsRequired, "new profile starts at the zero-point tier")

	settings, err := profileService.GetSettings(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 1, settings.BaselineDrinksPerDay)
	assert.True(t, settings.RemindersEnabled)
}

func TestUpdateSettings(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, _ := createTestUser(t, pool)
	ctx := context.Background()

	profileService := NewProfileService(pool)

	baseline := 3
	hour := 21
	updated, err := profileService.UpdateSettings(ctx, clerkID, &profile.UpdateSettingsRequest{
		BaselineDrinksPerDay: &baseline,
		ReminderHour:         &hour,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.BaselineDrinksPerDay)
	assert.Equal(t, 21, updated.ReminderHour)
	assert.True(t, updated.RemindersEnabled, "untouched fields keep their value")

	bad := 0
	_, err = profileService.UpdateSettings(ctx, clerkID, &profile.UpdateSettingsRequest{BaselineDrinksPerDay: &bad})
	assert.Error(t, err)

	badHour := 24
	_, err = profileService.UpdateSettings(ctx, clerkID, &profile.UpdateSettingsRequest{ReminderHour: &badHour})
	assert.Error(t, err)
}

func TestGetUserStats(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, _ := createTestUser(t, pool)
	ctx := context.Background()

	profileService := NewProfileService(pool)
	achievementService := NewAchievementService(pool)
	logService := NewLogService(pool, achievementService, nil)

	before, err := profileService.GetUserStats(ctx, clerkID)
	require.NoError(t, err)
	assert.False(t, before.TodayLogged)
	assert.Equal(t, 0, before.CurrentStreak)

	_, err = logService.AddDrinkLog(ctx, clerkID, &drinklog.AddDrinkLogRequest{DrinkCount: 0})
	require.NoError(t, err)

	after, err := profileService.GetUserStats(ctx, clerkID)
	require.NoError(t, err)
	assert.True(t, after.TodayLogged)
	assert.True(t, after.TodaySober)
	assert.Equal(t, 1, after.CurrentStreak)
	assert.GreaterOrEqual(t, after.TotalPoints, soberDayPoints)
}

func TestGetLeaderboard(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, _ := createTestUser(t, pool)
	ctx := context.Background()

	profileService := NewProfileService(pool)
	achievementService := NewAchievementService(pool)
	logService := NewLogService(pool, achievementService, nil)

	_, err := logService.AddDrinkLog(ctx, clerkID, &drinklog.AddDrinkLogRequest{DrinkCount: 0})
	require.NoError(t, err)

	board, err := profileService.GetLeaderboard(ctx, clerkID, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, board.Entries)
	assert.GreaterOrEqual(t, board.TotalUsers, 1)
	require.NotNil(t, board.UserPosition)
	assert.GreaterOrEqual(t, board.UserPosition.TotalPoints, soberDayPoints)
	assert.GreaterOrEqual(t, board.UserPosition.Rank, 1)

	// Ranks come back ordered.
	for i := 1; i < len(board.Entries); i++ {
		assert.LessOrEqual(t, board.Entries[i-1].Rank, board.Entries[i].Rank)
	}
}

func TestUpdateProfileAvatar(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	clerkID, _ := createTestUser(t, pool)
	ctx := context.Background()

	profileService := NewProfileService(pool)

	updated, err := profileService.UpdateProfile(ctx, clerkID, &profile.UpdateProfileRequest{AvatarType: "phoenix"})
	require.NoError(t, err)
	assert.Equal(t, "phoenix", updated.AvatarType)

	_, err = profileService.UpdateProfile(ctx, clerkID, &profile.UpdateProfileRequest{})
	assert.Error(t, err)
}
