package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/open-cmuq/tapin/internal/models"
)

var DB *gorm.DB

// Open opens the database at path and runs migrations. Tests point this at a
// throwaway file to get an isolated database.
func Open(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(gdb); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return gdb, nil
}

// Initialize sets up the shared database connection used by the commands.
// An empty path falls back to ~/.tapin/tapin.db.
func Initialize(path string) error {
	if path == "" {
		p, err := defaultPath()
		if err != nil {
			return fmt.Errorf("failed to get database path: %w", err)
		}
		path = p
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create tapin directory: %w", err)
	}

	gdb, err := Open(path)
	if err != nil {
		return err
	}

	DB = gdb
	return nil
}

// defaultPath returns the path to the SQLite database file
func defaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".tapin", "tapin.db"), nil
}

// migrate creates/updates the database schema. The partial unique index is
// what actually holds the at-most-one-active-session invariant under
// concurrent taps; the application-level checks alone cannot.
func migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Scope{},
		&models.Session{},
		&models.Attendance{},
	); err != nil {
		return err
	}

	return gdb.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
		ON sessions(user_id, scope_id) WHERE active`).Error
}

// Close closes the shared database connection
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
