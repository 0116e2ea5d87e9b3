package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"soberPathAPI/internal/achievement"
	"soberPathAPI/internal/level"
	"soberPathAPI/internal/notification"
)

// PushProvider delivers a notification to the user's registered devices.
// FCM in production, a mock in tests.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

// CreateNotification persists the notification and pushes it best-effort.
// Push failures are logged, never surfaced, since gamification writes have
// already committed by the time this runs.
func (s *NotificationService) CreateNotification(ctx context.Context, userID uuid.UUID, notifType notification.NotificationType, title, message string, data map[string]any) (*notification.Notification, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification data: %w", err)
	}

	notif := &notification.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    data,
	}

	query := `
	INSERT INTO notifications (id, user_id, type, title, message, is_read, data, created_at)
	VALUES ($1, $2, $3, $4, $5, false, $6, NOW())
	RETURNING created_at
	`
	err = s.db.QueryRow(ctx, query, notif.ID, userID, notifType, title, message, dataJSON).Scan(&notif.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.pushProvider != nil {
		tokens, err := s.getDeviceTokens(ctx, userID)
		if err != nil {
			log.Printf("CreateNotification: failed to load device tokens for %s: %v", userID, err)
		} else if err := s.pushProvider.SendPush(ctx, tokens, title, message, data); err != nil {
			log.Printf("CreateNotification: push failed for %s: %v", userID, err)
		}
	}

	return notif, nil
}

// NotifyAchievements fans out one notification per achievement earned in an
// award pass.
func (s *NotificationService) NotifyAchievements(ctx context.Context, userID uuid.UUID, earned []achievement.Achievement) {
	for _, a := range earned {
		title := "Achievement unlocked!"
		message := fmt.Sprintf("%s: %s (+%d points)", a.Name, a.Description, a.PointsReward)
		data := map[string]any{"achievement_id": a.ID.String(), "points_reward": a.PointsReward}
		if _, err := s.CreateNotification(ctx, userID, notification.NotificationAchievement, title, message, data); err != nil {
			log.Printf("NotifyAchievements: %v", err)
		}
	}
}

// NotifyLevelUp fires when the points total crossed into a new tier.
func (s *NotificationService) NotifyLevelUp(ctx context.Context, userID uuid.UUID, l *level.Level) {
	title := "Level up!"
	message := fmt.Sprintf("You've reached %s. New avatar unlocked: %s", l.Name, l.AvatarUnlock)
	data := map[string]any{"level_id": l.ID.String(), "level_name": l.Name}
	if _, err := s.CreateNotification(ctx, userID, notification.NotificationLevelUp, title, message, data); err != nil {
		log.Printf("NotifyLevelUp: %v", err)
	}
}

var streakMilestones = []int{7, 30, 90, 180, 365}

// NotifyStreakMilestone fires only when the streak lands exactly on a
// milestone, so re-logging the same day can't repeat it.
func (s *NotificationService) NotifyStreakMilestone(ctx context.Context, userID uuid.UUID, streak int) {
	milestone := false
	for _, m := range streakMilestones {
		if streak == m {
			milestone = true
			break
		}
	}
	if !milestone {
		return
	}

	title := fmt.Sprintf("%d days sober!", streak)
	message := fmt.Sprintf("You've kept your streak going for %d days straight. Keep it up!", streak)
	data := map[string]any{"streak": streak}
	if _, err := s.CreateNotification(ctx, userID, notification.NotificationStreakMilestone, title, message, data); err != nil {
		log.Printf("NotifyStreakMilestone: %v", err)
	}
}

// NotifyStreakRisk is the evening reminder for users who haven't logged
// today. Sent by the reminder worker.
func (s *NotificationService) NotifyStreakRisk(ctx context.Context, userID uuid.UUID, streak int) {
	title := "Don't lose your streak"
	message := "You haven't logged today yet. Check in to keep your progress going."
	if streak > 0 {
		message = fmt.Sprintf("You haven't logged today yet. Check in to keep your %d-day streak alive.", streak)
	}
	data := map[string]any{"streak": streak}
	if _, err := s.CreateNotification(ctx, userID, notification.NotificationStreakRisk, title, message, data); err != nil {
		log.Printf("NotifyStreakRisk: %v", err)
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string) (*notification.NotificationListResponse, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	query := `
	SELECT id, user_id, type, title, message, is_read, data, created_at
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT 100
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	resp := &notification.NotificationListResponse{Notifications: []*notification.Notification{}}
	for rows.Next() {
		n := &notification.Notification{}
		var dataJSON []byte
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &dataJSON, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
				log.Printf("GetNotifications: bad data payload on %s: %v", n.ID, err)
			}
		}
		if !n.IsRead {
			resp.UnreadCount++
		}
		resp.Notifications = append(resp.Notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return resp, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	var count int
	query := `
	SELECT COUNT(*)
	FROM notifications n
	JOIN users u ON u.id = n.user_id
	WHERE u.clerk_id = $1 AND n.is_read = false
	`
	err := s.db.QueryRow(ctx, query, clerkID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	query := `
	UPDATE notifications n
	SET is_read = true
	FROM users u
	WHERE n.id = $1 AND n.user_id = u.id AND u.clerk_id = $2
	`
	result, err := s.db.Exec(ctx, query, notificationID, clerkID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	query := `
	UPDATE notifications n
	SET is_read = true
	FROM users u
	WHERE n.user_id = u.id AND u.clerk_id = $1 AND n.is_read = false
	`
	_, err := s.db.Exec(ctx, query, clerkID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return nil
}

func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	query := `
	DELETE FROM notifications n
	USING users u
	WHERE n.id = $1 AND n.user_id = u.id AND u.clerk_id = $2
	`
	result, err := s.db.Exec(ctx, query, notificationID, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	query := `
	INSERT INTO user_devices (id, user_id, token, platform, registered_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (user_id, token)
	DO UPDATE SET platform = $4, registered_at = NOW()
	`
	_, err = s.db.Exec(ctx, query, uuid.New(), userID, req.Token, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) getDeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, token, platform FROM user_devices WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
