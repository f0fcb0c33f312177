package users

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MapleGroveLabs/moodnest/internal/auth"
	"gorm.io/gorm"
)

// ErrInvalidIdentity indicates the claims did not contain a usable identifier.
var ErrInvalidIdentity = errors.New("users: invalid identity")

// ServiceConfig describes the dependencies required for identity tracking.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service records which users have been seen and keeps their display
// metadata fresh from session claims.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	cache sync.Map
}

// NewService constructs the identity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:    cfg.Database,
		now:   clock,
		cache: sync.Map{},
	}, nil
}

// Touch ensures an identity row exists for the session's user and
// refreshes its metadata. It returns the canonical user id.
func (s *Service) Touch(claims auth.SessionClaims) (string, error) {
	userID := normalize(claims.UserID)
	if userID == "" {
		return "", ErrInvalidIdentity
	}

	if _, seen := s.cache.Load(userID); seen {
		// Row exists; refresh last-seen opportunistically.
		_ = s.db.Model(&Identity{}).
			Where("user_id = ?", userID).
			Update("last_seen_at", s.now()).
			Error
		return userID, nil
	}

	var identity Identity
	err := s.db.Where("user_id = ?", userID).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		identity = Identity{
			UserID:      userID,
			DisplayName: normalize(claims.UserDisplayName),
			Role:        roleOrDefault(claims.UserRole),
			LastSeenAt:  s.now(),
		}
		if err := s.db.Create(&identity).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	} else {
		updates := map[string]interface{}{"last_seen_at": s.now()}
		if display := normalize(claims.UserDisplayName); display != "" && display != identity.DisplayName {
			updates["display_name"] = display
		}
		if role := roleOrDefault(claims.UserRole); role != identity.Role {
			updates["role"] = role
		}
		_ = s.db.Model(&Identity{}).
			Where("user_id = ?", userID).
			Updates(updates).
			Error
	}

	s.cache.Store(userID, struct{}{})
	return userID, nil
}

func roleOrDefault(role string) string {
	switch normalize(role) {
	case auth.RoleGuardian:
		return auth.RoleGuardian
	case auth.RoleTeacher:
		return auth.RoleTeacher
	default:
		return auth.RoleChild
	}
}
