package database

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the cross-check schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Student{},
		&models.CourseTask{},
		&models.TaskSolution{},
		&models.TaskSolutionChecker{},
		&models.TaskSolutionResult{},
		&models.TaskResult{},
		&models.ActivityLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate cross-check schema: %w", err)
	}

	return nil
}

// PingDatabase reports whether the SQL connection pool answers.
func PingDatabase(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
