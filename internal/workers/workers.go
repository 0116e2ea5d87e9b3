package workers

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StreakRiskNotifier is the one method the worker needs from the
// notification service.
type StreakRiskNotifier interface {
	NotifyStreakRisk(ctx context.Context, userID uuid.UUID, streak int)
}

// StartReminderWorker checks once per hour for users whose reminder hour has
// arrived and who haven't logged today, and nudges them.
func StartReminderWorker(db *pgxpool.Pool, notifier StreakRiskNotifier) {
	ticker := time.NewTicker(1 * time.Hour)

	go func() {
		for range ticker.C {
			sendStreakRiskReminders(db, notifier)
		}
	}()
}

func sendStreakRiskReminders(db *pgxpool.Pool, notifier StreakRiskNotifier) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	query := `
	SELECT s.user_id, p.current_streak
	FROM user_settings s
	JOIN profiles p ON p.user_id = s.user_id
	WHERE s.reminders_enabled = true
	  AND s.reminder_hour = $1
	  AND NOT EXISTS (
		SELECT 1 FROM drink_logs dl WHERE dl.user_id = s.user_id AND dl.date = $2
	  )
	`

	rows, err := db.Query(ctx, query, now.Hour(), today)
	if err != nil {
		log.Printf("reminder worker: query failed: %v", err)
		return
	}
	defer rows.Close()

	sent := 0
	for rows.Next() {
		var userID uuid.UUID
		var streak int
		if err := rows.Scan(&userID, &streak); err != nil {
			continue
		}
		notifier.NotifyStreakRisk(ctx, userID, streak)
		sent++
	}
	if sent > 0 {
		log.Printf("reminder worker: sent %d streak reminders for hour %d", sent, now.Hour())
	}
}
