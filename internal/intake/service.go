package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MapleGroveLabs/moodnest/internal/checkin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingUserID     = errors.New("user identifier is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew    = "intake.service.new"
	opApplyCheckin  = "intake.apply_checkin"
	opListCheckins  = "intake.list_checkins"
	maxClientIDSize = 190
)

// ErrInvalidSubmission marks a payload the server will never accept;
// the HTTP layer maps it to a rejection status, not a retryable one.
var ErrInvalidSubmission = errors.New("intake: invalid submission")

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the persistence service dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider checkin.IDProvider
	Logger     *zap.Logger
}

// Service persists check-ins with client-id de-duplication.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider checkin.IDProvider
	logger     *zap.Logger
}

// NewService constructs the intake service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Apply persists one submission for the given user. A submission whose
// client id is already stored is acknowledged as a duplicate without
// touching the existing row, so at-least-once delivery from the client
// never records a check-in twice.
func (s *Service) Apply(ctx context.Context, userID string, submission Submission) (ApplyResult, error) {
	if strings.TrimSpace(userID) == "" {
		return ApplyResult{}, newServiceError(opApplyCheckin, "missing_user_id", errMissingUserID)
	}
	if err := submission.Record.Validate(); err != nil {
		return ApplyResult{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	recordedAt, err := time.Parse(time.RFC3339, submission.Record.DateISO)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	clientID := strings.TrimSpace(submission.ClientID)
	if len(clientID) > maxClientIDSize {
		return ApplyResult{}, fmt.Errorf("%w: client id exceeds %d characters", ErrInvalidSubmission, maxClientIDSize)
	}
	if clientID == "" {
		generated, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opApplyCheckin, "id_generation_failed", err, zap.String("user_id", userID))
			return ApplyResult{}, newServiceError(opApplyCheckin, "id_generation_failed", err)
		}
		clientID = generated
	}

	result := ApplyResult{ClientID: clientID}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Checkin
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND client_id = ?", userID, clientID).
			Take(&existing).Error
		if err == nil {
			result.Duplicate = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logError(opApplyCheckin, "checkin_select_failed", err,
				zap.String("user_id", userID),
				zap.String("client_id", clientID))
			return newServiceError(opApplyCheckin, "checkin_select_failed", err)
		}

		row := Checkin{
			UserID:           userID,
			ClientID:         clientID,
			Emotion:          string(submission.Record.Emotion),
			Mode:             string(submission.Record.Mode),
			Note:             submission.Record.Note,
			DrawingRef:       submission.Record.DrawingRef,
			// Timestamps are stored in UTC so the lexicographic
			// recorded_at_iso ordering is chronological across client
			// timezone offsets.
			RecordedAtISO:    recordedAt.UTC().Format(time.RFC3339),
			ReceivedAtSecond: s.clock().UTC().Unix(),
		}
		if err := tx.Create(&row).Error; err != nil {
			s.logError(opApplyCheckin, "checkin_insert_failed", err,
				zap.String("user_id", userID),
				zap.String("client_id", clientID))
			return newServiceError(opApplyCheckin, "checkin_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return ApplyResult{}, txErr
	}

	return result, nil
}

// ListForUser returns all persisted check-ins for the user, oldest
// recorded first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Checkin, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, newServiceError(opListCheckins, "missing_user_id", errMissingUserID)
	}

	var rows []Checkin
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("recorded_at_iso ASC, received_at_s ASC").
		Find(&rows).Error; err != nil {
		s.logError(opListCheckins, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opListCheckins, "query_failed", err)
	}

	return rows, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("intake service error", attrs...)
}
