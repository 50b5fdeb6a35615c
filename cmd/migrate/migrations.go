package main

import (
	"github.com/court-opinions/engine/internal/models"
	"gorm.io/gorm"
)

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}

	// Run custom migrations
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addProjectListingIndexes,
		addAssignmentIndexes,
	}
	if db.Dialector.Name() == "postgres" {
		migrations = append(migrations, addCaseDataIndex)
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// addProjectListingIndexes backs the per-role project listings.
func addProjectListingIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_admin_created
		ON projects(admin_id, created_at DESC)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_scholar_created
		ON projects(scholar_id, created_at DESC)
	`).Error
}

// addAssignmentIndexes backs the validator read check.
func addAssignmentIndexes(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_assignments_project_validator
		ON assignments(project_id, validator_id)
	`).Error
}

// addCaseDataIndex allows containment queries over schema-less case data.
func addCaseDataIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_case_records_data
		ON case_records USING GIN (data jsonb_path_ops)
	`).Error
}
