package database

import (
	"path/filepath"
	"testing"

	"github.com/MapleGroveLabs/moodnest/internal/intake"
	"go.uber.org/zap"
)

func TestOpenSQLiteMigratesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodnest.db")
	db, err := OpenSQLite(path, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	for _, table := range []string{"checkins", "user_identities", "db_migrations"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %q to exist", table)
		}
	}

	var applied int64
	if err := db.Model(&migrationRecord{}).Count(&applied).Error; err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if applied == 0 {
		t.Fatalf("expected named migrations to be recorded")
	}
}

func TestNamedMigrationsApplyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodnest.db")
	db, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	var before int64
	if err := db.Model(&migrationRecord{}).Count(&before).Error; err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}

	// Reopening must not re-run recorded migrations.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to unwrap db: %v", err)
	}
	sqlDB.Close()

	reopened, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	var after int64
	if err := reopened.Model(&migrationRecord{}).Count(&after).Error; err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if before != after {
		t.Fatalf("migrations re-applied on reopen: %d -> %d", before, after)
	}
}

func TestNormalizeEmotionLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodnest.db")
	db, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	row := intake.Checkin{
		UserID:        "child-7",
		ClientID:      "legacy-1",
		Emotion:       "Happy",
		Mode:          "none",
		RecordedAtISO: "2024-01-01T10:00:00Z",
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("failed to seed row: %v", err)
	}

	if err := normalizeEmotionLabels(db); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	var updated intake.Checkin
	if err := db.Where("client_id = ?", "legacy-1").First(&updated).Error; err != nil {
		t.Fatalf("row missing: %v", err)
	}
	if updated.Emotion != "happy" {
		t.Fatalf("expected lowercase emotion, got %q", updated.Emotion)
	}
}
