package gamification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soberPathAPI/internal/level"
)

func testLevels() []level.Level {
	return []level.Level{
		{ID: uuid.New(), Name: "Beginner", PointsRequired: 0, AvatarUnlock: "seedling"},
		{ID: uuid.New(), Name: "Committed", PointsRequired: 100, AvatarUnlock: "sprout"},
		{ID: uuid.New(), Name: "Steady", PointsRequired: 500, AvatarUnlock: "sapling"},
		{ID: uuid.New(), Name: "Resilient", PointsRequired: 2000, AvatarUnlock: "oak"},
	}
}

func TestResolveLevel_ZeroPointsIsLowestTier(t *testing.T) {
	levels := testLevels()
	got, err := ResolveLevel(0, levels)
	require.NoError(t, err)
	assert.Equal(t, "Beginner", got.Name)
}

func TestResolveLevel_HighestQualifyingTier(t *testing.T) {
	levels := testLevels()

	got, err := ResolveLevel(999999, levels)
	require.NoError(t, err)
	assert.Equal(t, "Resilient", got.Name)

	got, err = ResolveLevel(499, levels)
	require.NoError(t, err)
	assert.Equal(t, "Committed", got.Name)

	// Exact threshold qualifies.
	got, err = ResolveLevel(500, levels)
	require.NoError(t, err)
	assert.Equal(t, "Steady", got.Name)
}

func TestResolveLevel_Idempotent(t *testing.T) {
	levels := testLevels()
	first, err := ResolveLevel(150, levels)
	require.NoError(t, err)
	second, err := ResolveLevel(150, levels)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveLevel_UnsortedCatalog(t *testing.T) {
	levels := testLevels()
	shuffled := []level.Level{levels[2], levels[0], levels[3], levels[1]}
	got, err := ResolveLevel(600, shuffled)
	require.NoError(t, err)
	assert.Equal(t, "Steady", got.Name)
}

func TestResolveLevel_EmptyCatalog(t *testing.T) {
	_, err := ResolveLevel(100, nil)
	assert.ErrorIs(t, err, ErrNoQualifyingLevel)
}

func TestResolveLevel_NoTierLowEnough(t *testing.T) {
	levels := []level.Level{{ID: uuid.New(), Name: "Elite", PointsRequired: 5000}}
	_, err := ResolveLevel(100, levels)
	assert.ErrorIs(t, err, ErrNoQualifyingLevel)
}
