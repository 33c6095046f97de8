package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"melodex/model"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, page, limit int) ([]*model.User, int64, error)
	UpdateProfile(ctx context.Context, userID int64, name string) error
	UpdateSettings(ctx context.Context, userID int64, settings string) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateRoleAndTier(ctx context.Context, userID int64, role, tier string) error
	UpgradeTier(ctx context.Context, userID int64, since, until time.Time) error
	DeleteUser(ctx context.Context, userID int64) error

	// Like-set primitives. Both report whether a row actually changed,
	// so the caller can drive the track counter off that fact instead
	// of a separate read.
	AddLikeIfAbsent(ctx context.Context, userID, trackID int64) (bool, error)
	RemoveLikeIfPresent(ctx context.Context, userID, trackID int64) (bool, error)
	GetLikedTrackIDs(ctx context.Context, userID int64) ([]int64, error)
	IsTrackLiked(ctx context.Context, userID, trackID int64) (bool, error)

	RecordListening(ctx context.Context, userID int64, seconds int) error
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{db: db}
}

const userColumns = "id, name, email, password_hash, role, tier, premium_since, premium_until, settings, total_plays, total_seconds, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.Tier,
		&user.PremiumSince, &user.PremiumUntil, &user.Settings, &user.TotalPlays, &user.TotalSeconds,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser adds a new user. The email is stored lower-cased so the
// storage-level unique constraint is case-insensitive in effect.
func (r *mysqlUserRepository) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	query := "INSERT INTO users (name, email, password_hash, role, tier, settings) VALUES (?, ?, ?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, query,
		user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Role, user.Tier, user.Settings)
	if err != nil {
		if isDuplicateErr(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user: %w", err)
	}
	return id, nil
}

// GetUserByID retrieves a user by their ID. Returns (nil, nil) when
// the user does not exist.
func (r *mysqlUserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user row for ID %d: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *mysqlUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user row for email %s: %w", email, err)
	}
	return user, nil
}

// ListUsers returns a page of users, newest first, plus the total count.
func (r *mysqlUserRepository) ListUsers(ctx context.Context, page, limit int) ([]*model.User, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	offset := (page - 1) * limit
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user in ListUsers: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration in ListUsers: %w", err)
	}
	return users, total, nil
}

// UpdateProfile updates the user's display name.
func (r *mysqlUserRepository) UpdateProfile(ctx context.Context, userID int64, name string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET name = ?, updated_at = NOW() WHERE id = ?", name, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile for user %d: %w", userID, err)
	}
	return nil
}

// UpdateSettings replaces the user's settings document.
func (r *mysqlUserRepository) UpdateSettings(ctx context.Context, userID int64, settings string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET settings = ?, updated_at = NOW() WHERE id = ?", settings, userID)
	if err != nil {
		return fmt.Errorf("failed to update settings for user %d: %w", userID, err)
	}
	return nil
}

// UpdatePassword stores a new credential hash.
func (r *mysqlUserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = ?, updated_at = NOW() WHERE id = ?", passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password for user %d: %w", userID, err)
	}
	return nil
}

// UpdateRoleAndTier sets the role and tier of a user (admin edit).
func (r *mysqlUserRepository) UpdateRoleAndTier(ctx context.Context, userID int64, role, tier string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET role = ?, tier = ?, updated_at = NOW() WHERE id = ?", role, tier, userID)
	if err != nil {
		return fmt.Errorf("failed to update role/tier for user %d: %w", userID, err)
	}
	return nil
}

// UpgradeTier moves the user to the premium tier with the given
// subscription window.
func (r *mysqlUserRepository) UpgradeTier(ctx context.Context, userID int64, since, until time.Time) error {
	query := "UPDATE users SET tier = ?, premium_since = ?, premium_until = ?, updated_at = NOW() WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, model.TierPremium, since, until, userID)
	if err != nil {
		return fmt.Errorf("failed to upgrade tier for user %d: %w", userID, err)
	}
	return nil
}

// DeleteUser removes a user account. Like-set rows cascade at the
// storage level.
func (r *mysqlUserRepository) DeleteUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	return nil
}

// AddLikeIfAbsent inserts the (user, track) like edge. Returns true
// when the edge was newly inserted, false when it already existed.
func (r *mysqlUserRepository) AddLikeIfAbsent(ctx context.Context, userID, trackID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO user_liked_tracks (user_id, track_id) VALUES (?, ?)", userID, trackID)
	if err != nil {
		return false, fmt.Errorf("failed to add like for user %d track %d: %w", userID, trackID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for like insert: %w", err)
	}
	return affected > 0, nil
}

// RemoveLikeIfPresent deletes the (user, track) like edge. Returns
// true when an edge was actually removed.
func (r *mysqlUserRepository) RemoveLikeIfPresent(ctx context.Context, userID, trackID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM user_liked_tracks WHERE user_id = ? AND track_id = ?", userID, trackID)
	if err != nil {
		return false, fmt.Errorf("failed to remove like for user %d track %d: %w", userID, trackID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for like delete: %w", err)
	}
	return affected > 0, nil
}

// GetLikedTrackIDs returns the ids of all tracks the user has liked.
func (r *mysqlUserRepository) GetLikedTrackIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT track_id FROM user_liked_tracks WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked tracks for user %d: %w", userID, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan liked track id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetLikedTrackIDs: %w", err)
	}
	return ids, nil
}

// IsTrackLiked reports whether the user has liked the track.
func (r *mysqlUserRepository) IsTrackLiked(ctx context.Context, userID, trackID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM user_liked_tracks WHERE user_id = ? AND track_id = ?", userID, trackID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check like for user %d track %d: %w", userID, trackID, err)
	}
	return true, nil
}

// RecordListening bumps the user's aggregate listening statistics with
// a single atomic update.
func (r *mysqlUserRepository) RecordListening(ctx context.Context, userID int64, seconds int) error {
	query := "UPDATE users SET total_plays = total_plays + 1, total_seconds = total_seconds + ?, updated_at = NOW() WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, seconds, userID)
	if err != nil {
		return fmt.Errorf("failed to record listening for user %d: %w", userID, err)
	}
	return nil
}
