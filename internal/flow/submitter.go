package flow

import (
	"context"
	"errors"

	"github.com/MapleGroveLabs/moodnest/internal/checkin"
	"github.com/MapleGroveLabs/moodnest/internal/submit"
	"go.uber.org/zap"
)

// Disposition is what actually happened to the user's check-in from
// their point of view.
type Disposition string

const (
	// DispositionDelivered means the server persisted the check-in
	// immediately.
	DispositionDelivered Disposition = "delivered"
	// DispositionSavedLocally means the device was offline; the check-in
	// is queued durably and will sync when connectivity returns.
	DispositionSavedLocally Disposition = "saved_locally"
	// DispositionFailed means an immediate, user-visible error:
	// rejection, expired session, or a transient fault. These are never
	// silently queued; queuing a validation error would hide a bug.
	DispositionFailed Disposition = "failed"
)

var (
	errMissingClient = errors.New("flow: submission client is required")
	errMissingQueue  = errors.New("flow: queue is required")

	noOpLogger = zap.NewNop()
)

// LocalQueue is the enqueue side of the durable queue.
type LocalQueue interface {
	Enqueue(record checkin.Record) (checkin.QueuedCheckin, error)
}

// DirectSubmitter performs one classified submission attempt.
type DirectSubmitter interface {
	Submit(ctx context.Context, record checkin.Record, clientID string) submit.Result
}

// SubmitterConfig describes the submission flow dependencies.
type SubmitterConfig struct {
	Client DirectSubmitter
	Queue  LocalQueue
	Logger *zap.Logger
}

// Submitter is the single entry point the UI calls when a check-in is
// finished: direct attempt first, durable enqueue only on confirmed
// offline failure. Triggering later drains belongs to the sync
// coordinator, not here.
type Submitter struct {
	client DirectSubmitter
	queue  LocalQueue
	logger *zap.Logger
}

// NewSubmitter constructs a Submitter.
func NewSubmitter(cfg SubmitterConfig) (*Submitter, error) {
	if cfg.Client == nil {
		return nil, errMissingClient
	}
	if cfg.Queue == nil {
		return nil, errMissingQueue
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Submitter{client: cfg.Client, queue: cfg.Queue, logger: logger}, nil
}

// Submit tries to deliver the check-in and reports its disposition
// along with the classified result of the direct attempt.
func (s *Submitter) Submit(ctx context.Context, record checkin.Record) (Disposition, submit.Result) {
	result := s.client.Submit(ctx, record, "")
	switch result.Outcome {
	case submit.OutcomeSuccess:
		return DispositionDelivered, result
	case submit.OutcomeOffline:
		entry, err := s.queue.Enqueue(record)
		if err != nil {
			s.logger.Error("offline check-in could not be queued", zap.Error(err))
			return DispositionFailed, result
		}
		s.logger.Info("check-in saved locally for later sync",
			zap.String("client_id", entry.ClientID))
		return DispositionSavedLocally, result
	default:
		return DispositionFailed, result
	}
}
