package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soberPathAPI/internal/gamification"
	"soberPathAPI/internal/user"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

// CreateUser provisions the account row together with its profile and
// settings in one transaction, so a user never exists half-initialized. The
// profile starts at the zero-point level.
func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	u := &user.User{
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
	}

	userQuery := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, email_verified, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, false, NOW(), NOW())
	RETURNING id, created_at, updated_at
	`
	userID := uuid.New()
	err = tx.QueryRow(ctx, userQuery, userID, req.ClerkID, req.Email, req.Username, req.FirstName, req.LastName, req.ImageURL).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	levels, err := loadLevelCatalog(ctx, tx)
	if err != nil {
		return nil, err
	}
	startLevel, err := gamification.ResolveLevel(0, levels)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve starting level: %w", err)
	}

	profileQuery := `
	INSERT INTO profiles (id, user_id, total_points, current_streak, longest_streak, days_sober, drinks_avoided, level_id, avatar_type, created_at, updated_at)
	VALUES ($1, $2, 0, 0, 0, 0, 0, $3, 'default', NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, profileQuery, uuid.New(), userID, startLevel.ID); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	settingsQuery := `
	INSERT INTO user_settings (id, user_id, baseline_drinks_per_day, reminders_enabled, reminder_hour, created_at, updated_at)
	VALUES ($1, $2, 1, true, 20, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, settingsQuery, uuid.New(), userID); err != nil {
		return nil, fmt.Errorf("failed to create settings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}

	log.Printf("CreateUser: created %s (clerk %s)", u.ID, req.ClerkID)
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
	SELECT id, clerk_id, email, username, first_name, last_name, COALESCE(image_url, ''), email_verified, created_at, updated_at
	FROM users
	WHERE clerk_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return u, nil
}

func (s *UserService) UpdateUserByClerkID(ctx context.Context, clerkID string, req *user.UpdateUserRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET username = COALESCE(NULLIF($2, ''), username),
	    first_name = COALESCE(NULLIF($3, ''), first_name),
	    last_name = COALESCE(NULLIF($4, ''), last_name),
	    image_url = COALESCE(NULLIF($5, ''), image_url),
	    updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING id, clerk_id, email, username, first_name, last_name, COALESCE(image_url, ''), email_verified, created_at, updated_at
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID, req.Username, req.FirstName, req.LastName, req.ImageURL).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return u, nil
}

func (s *UserService) UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error {
	result, err := s.db.Exec(ctx, `UPDATE users SET email_verified = $2, updated_at = NOW() WHERE clerk_id = $1`, clerkID, verified)
	if err != nil {
		return fmt.Errorf("failed to update email verification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// DeleteUserByClerkID removes the user; profiles, settings, logs and the rest
// go with it via ON DELETE CASCADE.
func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	log.Printf("DeleteUserByClerkID: deleted clerk %s", clerkID)
	return nil
}
