package main

import (
	"testing"

	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/pkg/database"
	"github.com/court-opinions/engine/pkg/logger"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	_, _ = logger.Init("error", "json")
	db, err := database.OpenSQLite(":memory:", gormlogger.Silent)
	require.NoError(t, err)

	require.NoError(t, runMigrations(db))
	require.NoError(t, runMigrations(db))

	for _, m := range models.All() {
		require.True(t, db.Migrator().HasTable(m))
	}
	require.True(t, db.Migrator().HasIndex("assignments", "idx_assignments_project_validator"))
}
