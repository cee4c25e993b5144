package db

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/gorm"
)

// findProjectRoot looks for go.mod file to determine project root
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// constructDBURL creates the database URL from environment variables.
// A full DATABASE_URL takes precedence over the individual DB_* parts.
func constructDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)
}

// ensureDataSourceEnum ensures the harvest_data_source enum type exists
func ensureDataSourceEnum(db *gorm.DB) error {
	var exists bool
	err := db.Raw(`
		SELECT EXISTS (
			SELECT 1 FROM pg_type
			WHERE typname = 'harvest_data_source'
		);
	`).Scan(&exists).Error

	if err != nil {
		return err
	}

	if !exists {
		err := db.Exec(`
			CREATE TYPE harvest_data_source AS ENUM (
				'live',
				'fallback',
				'fallback_empty',
				'error'
			);
		`).Error
		if err != nil {
			return err
		}
	}

	return nil
}
