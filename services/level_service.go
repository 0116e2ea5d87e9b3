package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soberPathAPI/internal/level"
)

type LevelService struct {
	db *pgxpool.Pool
}

func NewLevelService(db *pgxpool.Pool) *LevelService {
	return &LevelService{db: db}
}

// GetLevels returns the full catalog with each tier's unlock state for the
// caller. A tier is unlocked once the profile's points cover its threshold.
func (s *LevelService) GetLevels(ctx context.Context, clerkID string) ([]*level.LevelWithStatus, error) {
	var totalPoints int
	query := `
	SELECT p.total_points
	FROM profiles p
	JOIN users u ON u.id = p.user_id
	WHERE u.clerk_id = $1
	`
	err := s.db.QueryRow(ctx, query, clerkID).Scan(&totalPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	levels, err := loadLevelCatalog(ctx, s.db)
	if err != nil {
		return nil, err
	}

	result := make([]*level.LevelWithStatus, 0, len(levels))
	for _, l := range levels {
		result = append(result, &level.LevelWithStatus{
			Level:    l,
			Unlocked: totalPoints >= l.PointsRequired,
		})
	}
	return result, nil
}
