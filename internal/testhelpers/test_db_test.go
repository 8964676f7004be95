package testhelpers

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"prepforge/interview/internal/models"
)

func TestSetupTestDBCreatesSchema(t *testing.T) {
	db := SetupTestDB(t)
	if !db.Migrator().HasTable(&models.Interview{}) {
		t.Fatalf("expected live_interviews table to exist")
	}
}

func TestDropInterviewTableRemovesTable(t *testing.T) {
	db := SetupTestDB(t)
	DropInterviewTable(t, db)
	if db.Migrator().HasTable(&models.Interview{}) {
		t.Fatalf("expected live_interviews table to be dropped")
	}
}

func TestSetupTestDBPanicsOnOpenFailure(t *testing.T) {
	orig := openSQLite
	defer func() { openSQLite = orig }()
	openSQLite = func(string) (*gorm.DB, error) { return nil, errors.New("boom") }

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on open failure")
		}
	}()

	SetupTestDB(t)
}

func TestSetupTestDBPanicsOnMigrateFailure(t *testing.T) {
	origMigrate := migrateSchema
	defer func() { migrateSchema = origMigrate }()
	migrateSchema = func(*gorm.DB) error { return errors.New("migrate boom") }

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on migrate failure")
		}
	}()

	SetupTestDB(t)
}

func TestDropInterviewTablePanicsOnFailure(t *testing.T) {
	db := SetupTestDB(t)
	orig := dropInterviewTableFn
	defer func() { dropInterviewTableFn = orig }()
	dropInterviewTableFn = func(*gorm.DB) error { return errors.New("drop fail") }

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on drop failure")
		}
	}()

	DropInterviewTable(t, db)
}
