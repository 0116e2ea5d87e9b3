package gamification

import (
	"errors"

	"soberPathAPI/internal/level"
)

// ErrNoQualifyingLevel means the catalog is empty or its lowest threshold is
// above the given points. A well-formed catalog has a 0-point starting tier,
// so this indicates broken reference data, not a normal outcome.
var ErrNoQualifyingLevel = errors.New("no qualifying level for points")

// ResolveLevel returns the highest level whose points threshold is covered by
// the given total. Pure function of its inputs; the catalog is expected
// sorted ascending by points_required but the result does not depend on it.
func ResolveLevel(points int, levels []level.Level) (*level.Level, error) {
	var best *level.Level
	for i := range levels {
		l := &levels[i]
		if l.PointsRequired > points {
			continue
		}
		if best == nil || l.PointsRequired > best.PointsRequired {
			best = l
		}
	}
	if best == nil {
		return nil, ErrNoQualifyingLevel
	}
	return best, nil
}
