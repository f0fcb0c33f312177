package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultSessionTTL = 12 * time.Hour

	// RoleGuardian and friends are the roles a session can carry.
	RoleGuardian = "guardian"
	RoleTeacher  = "teacher"
	RoleChild    = "child"
)

var (
	errMissingSigningSecret = errors.New("token issuer: signing secret must be provided")
	errMissingUserID        = errors.New("token issuer: user id must be provided")
	errUnknownRole          = errors.New("token issuer: unknown role")
)

// TokenIssuerConfig configures the session token issuer.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	SessionTTL    time.Duration
	Clock         func() time.Time
}

// TokenIssuer mints the HS256 session tokens the validator accepts. In
// production the external authentication service holds the signing
// secret; this issuer backs local deployments, the agent's login
// command, and tests.
type TokenIssuer struct {
	config TokenIssuerConfig
	clock  func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer with sane defaults.
func NewTokenIssuer(cfg TokenIssuerConfig) *TokenIssuer {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenIssuer{
		config: TokenIssuerConfig{
			SigningSecret: cfg.SigningSecret,
			Issuer:        cfg.Issuer,
			SessionTTL:    ttl,
			Clock:         clock,
		},
		clock: clock,
	}
}

// IssueSessionToken produces a signed session JWT and its expiry
// (seconds from now) for the given user.
func (i *TokenIssuer) IssueSessionToken(userID, displayName, role string) (string, int64, error) {
	if len(i.config.SigningSecret) == 0 {
		return "", 0, errMissingSigningSecret
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", 0, errMissingUserID
	}
	switch role {
	case RoleGuardian, RoleTeacher, RoleChild:
	default:
		return "", 0, errUnknownRole
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.config.SessionTTL).UTC()

	claims := SessionClaims{
		UserID:          userID,
		UserDisplayName: strings.TrimSpace(displayName),
		UserRole:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.config.SigningSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(expiresAt.Sub(now).Seconds()), nil
}
