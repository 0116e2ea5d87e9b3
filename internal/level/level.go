package level

import (
	"time"

	"github.com/google/uuid"
)

// Level is a static reference tier. The catalog is ordered by PointsRequired
// ascending and always contains a 0-point starting tier.
type Level struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	PointsRequired int       `json:"points_required" db:"points_required"`
	AvatarUnlock   string    `json:"avatar_unlock" db:"avatar_unlock"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type LevelWithStatus struct {
	Level
	Unlocked bool `json:"unlocked"`
}
