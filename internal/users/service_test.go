package users

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/MapleGroveLabs/moodnest/internal/auth"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func mustDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Identity{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestTouchCreatesIdentityOnFirstSighting(t *testing.T) {
	db := mustDatabase(t)
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	userID, err := service.Touch(auth.SessionClaims{
		UserID:          "child-7",
		UserDisplayName: "Sam",
		UserRole:        auth.RoleChild,
	})
	if err != nil {
		t.Fatalf("unexpected touch error: %v", err)
	}
	if userID != "child-7" {
		t.Fatalf("unexpected user id: %q", userID)
	}

	var identity Identity
	if err := db.Where("user_id = ?", "child-7").First(&identity).Error; err != nil {
		t.Fatalf("identity row missing: %v", err)
	}
	if identity.DisplayName != "Sam" || identity.Role != auth.RoleChild {
		t.Fatalf("unexpected identity row: %+v", identity)
	}
}

func TestTouchRefreshesMetadata(t *testing.T) {
	db := mustDatabase(t)
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := service.Touch(auth.SessionClaims{UserID: "guardian-1", UserDisplayName: "G.", UserRole: auth.RoleGuardian}); err != nil {
		t.Fatalf("unexpected touch error: %v", err)
	}

	// A later session can carry a corrected display name.
	fresh, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	if _, err := fresh.Touch(auth.SessionClaims{UserID: "guardian-1", UserDisplayName: "Grace", UserRole: auth.RoleGuardian}); err != nil {
		t.Fatalf("unexpected touch error: %v", err)
	}

	var identity Identity
	if err := db.Where("user_id = ?", "guardian-1").First(&identity).Error; err != nil {
		t.Fatalf("identity row missing: %v", err)
	}
	if identity.DisplayName != "Grace" {
		t.Fatalf("display name was not refreshed: %q", identity.DisplayName)
	}
}

func TestTouchRejectsEmptyUserID(t *testing.T) {
	service, err := NewService(ServiceConfig{Database: mustDatabase(t)})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	if _, err := service.Touch(auth.SessionClaims{UserID: "   "}); err != ErrInvalidIdentity {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestUnknownRoleDefaultsToChild(t *testing.T) {
	if role := roleOrDefault("wizard"); role != auth.RoleChild {
		t.Fatalf("expected default child role, got %q", role)
	}
	if role := roleOrDefault(auth.RoleTeacher); role != auth.RoleTeacher {
		t.Fatalf("expected teacher role preserved, got %q", role)
	}
}
