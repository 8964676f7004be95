package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prepforge/interview/internal/models"
)

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	}
	migrateSchema        = func(db *gorm.DB) error { return db.AutoMigrate(&models.Interview{}) }
	dropInterviewTableFn = func(db *gorm.DB) error { return db.Migrator().DropTable(&models.Interview{}) }
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
// A single connection serializes writers so concurrent tests see the same
// conditional-update semantics as postgres row locks.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// DropInterviewTable removes the interviews table to force repository errors.
func DropInterviewTable(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := dropInterviewTableFn(db); err != nil {
		panic(fmt.Sprintf("failed to drop interview table: %v", err))
	}
}
