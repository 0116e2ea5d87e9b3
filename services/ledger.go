package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"soberPathAPI/internal/gamification"
	"soberPathAPI/internal/level"
)

// Every point change goes through applyPointsDelta inside the caller's
// transaction. The delta is applied at the storage layer so two concurrent
// requests for the same profile never clobber each other's increment, and
// deductions clamp at zero.
func applyPointsDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int) (int, error) {
	var totalPoints int
	query := `
	UPDATE profiles
	SET total_points = GREATEST(0, total_points + $2), updated_at = NOW()
	WHERE user_id = $1
	RETURNING total_points
	`
	err := tx.QueryRow(ctx, query, userID, delta).Scan(&totalPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("profile not found")
		}
		return 0, fmt.Errorf("failed to apply points delta: %w", err)
	}
	return totalPoints, nil
}

// syncLevel re-resolves level_id from the post-update points total, inside
// the same transaction that changed the total. Returns the resolved level and
// whether it differs from the one stored before the call.
func syncLevel(ctx context.Context, tx pgx.Tx, userID uuid.UUID, totalPoints int) (*level.Level, bool, error) {
	levels, err := loadLevelCatalog(ctx, tx)
	if err != nil {
		return nil, false, err
	}

	resolved, err := gamification.ResolveLevel(totalPoints, levels)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve level for %d points: %w", totalPoints, err)
	}

	var previousID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT level_id FROM profiles WHERE user_id = $1`, userID).Scan(&previousID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read current level: %w", err)
	}

	if previousID != resolved.ID {
		_, err = tx.Exec(ctx, `UPDATE profiles SET level_id = $2, updated_at = NOW() WHERE user_id = $1`, userID, resolved.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update level: %w", err)
		}
	}
	return resolved, previousID != resolved.ID, nil
}

func loadLevelCatalog(ctx context.Context, q querier) ([]level.Level, error) {
	query := `
	SELECT id, name, points_required, avatar_unlock, created_at
	FROM levels
	ORDER BY points_required ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch level catalog: %w", err)
	}
	defer rows.Close()

	var levels []level.Level
	for rows.Next() {
		var l level.Level
		if err := rows.Scan(&l.ID, &l.Name, &l.PointsRequired, &l.AvatarUnlock, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		levels = append(levels, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating levels: %w", err)
	}

	if len(levels) == 0 {
		return nil, fmt.Errorf("level catalog is empty")
	}
	return levels, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const dateLayout = "2006-01-02"

// parseDate accepts a YYYY-MM-DD string and defaults to today (UTC) when
// empty. Dates are stored and compared as UTC calendar days.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return d, nil
}
