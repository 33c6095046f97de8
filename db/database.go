package db

import (
	"database/sql"
	"fmt"

	"melodex/config"
	"melodex/core/auth"
	"melodex/logger"
	"melodex/model"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database")
	return nil
}

// InitDB initializes the database schema, creating tables if they
// don't exist. Playlist tables are migrated separately through GORM.
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createTracksTable(); err != nil {
		return err
	}
	if err := createLikedTracksTable(); err != nil {
		return err
	}

	logger.Info("Database initialization completed")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		tier VARCHAR(20) NOT NULL DEFAULT 'regular',
		premium_since TIMESTAMP NULL DEFAULT NULL,
		premium_until TIMESTAMP NULL DEFAULT NULL,
		settings TEXT,
		total_plays BIGINT NOT NULL DEFAULT 0,
		total_seconds BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func createTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255) NOT NULL DEFAULT '',
		album VARCHAR(255) NOT NULL DEFAULT '',
		cover_url VARCHAR(512) NOT NULL DEFAULT '',
		audio_url VARCHAR(512) NOT NULL DEFAULT '',
		duration VARCHAR(16) NOT NULL DEFAULT '0:00',
		duration_seconds INT NOT NULL DEFAULT 0,
		category VARCHAR(20) NOT NULL DEFAULT 'song',
		genre VARCHAR(100) NOT NULL DEFAULT '',
		plays BIGINT NOT NULL DEFAULT 0,
		likes BIGINT NOT NULL DEFAULT 0,
		uploader_id BIGINT NOT NULL,
		published TINYINT(1) NOT NULL DEFAULT 0,
		external_id VARCHAR(100) NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT uq_tracks_external_id UNIQUE (external_id),
		CONSTRAINT fk_tracks_uploader FOREIGN KEY (uploader_id) REFERENCES users(id)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	return nil
}

func createLikedTracksTable() error {
	// Composite primary key keeps the like-set duplicate-free at the
	// storage level.
	query := `
	CREATE TABLE IF NOT EXISTS user_liked_tracks (
		user_id BIGINT NOT NULL,
		track_id BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, track_id),
		CONSTRAINT fk_liked_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_liked_track FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create user_liked_tracks table: %w", err)
	}
	return nil
}

// SeedAdminUser creates the initial admin account if no account with
// the given email exists yet.
func SeedAdminUser(name, email, password string) (int64, error) {
	var existingID int64
	err := DB.QueryRow("SELECT id FROM users WHERE email = ?", email).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to check for existing admin user: %w", err)
	}
	if err == nil {
		logger.Info("Admin user already exists, skipping seed", logger.Int64("userId", existingID))
		return existingID, nil
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("failed to hash admin password: %w", err)
	}

	res, err := DB.Exec(
		"INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)",
		name, email, hashedPassword, model.RoleAdmin,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert admin user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get seeded admin user ID: %w", err)
	}
	logger.Info("Admin user seeded", logger.Int64("userId", id), logger.String("email", email))
	return id, nil
}
