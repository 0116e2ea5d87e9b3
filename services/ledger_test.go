package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPointsDelta_ConcurrentIncrements(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	_, created := createTestUser(t, pool)
	userID, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	ctx := context.Background()

	// Two transactions racing on the same profile must both land. The delta
	// is applied in SQL, so neither can overwrite the other's increment the
	// way a read-modify-write would.
	deltas := []int{10, 15}
	errs := make(chan error, len(deltas))
	var wg sync.WaitGroup
	for _, d := range deltas {
		wg.Add(1)
		go func(delta int) {
			defer wg.Done()
			tx, err := pool.Begin(ctx)
			if err != nil {
				errs <- err
				return
			}
			defer tx.Rollback(ctx)
			if _, err := applyPointsDelta(ctx, tx, userID, delta); err != nil {
				errs <- err
				return
			}
			errs <- tx.Commit(ctx)
		}(d)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var totalPoints int
	require.NoError(t, pool.QueryRow(ctx, `SELECT total_points FROM profiles WHERE user_id = $1`, userID).Scan(&totalPoints))
	assert.Equal(t, 25, totalPoints)
}

func TestApplyPointsDelta_ClampsAtZero(t *testing.T) {
	pool := setupTestDB(t)
	defer cleanupTestDB(t, pool)

	_, created := createTestUser(t, pool)
	userID, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	total, err := applyPointsDelta(ctx, tx, userID, -40)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	total, err = applyPointsDelta(ctx, tx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	require.NoError(t, tx.Commit(ctx))
}
