package syncer

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/MapleGroveLabs/moodnest/internal/checkin"
	"github.com/MapleGroveLabs/moodnest/internal/submit"
	"go.uber.org/zap"
)

var (
	errMissingQueue  = errors.New("syncer: queue is required")
	errMissingClient = errors.New("syncer: submission client is required")

	noOpLogger = zap.NewNop()
)

// PendingQueue is the slice of the durable queue the orchestrator needs:
// it borrows entries via List and returns a disposition via Remove.
type PendingQueue interface {
	List() []checkin.QueuedCheckin
	Remove(clientID string)
}

// Submitter performs one classified submission attempt.
type Submitter interface {
	Submit(ctx context.Context, record checkin.Record, clientID string) submit.Result
}

// Summary reports what one drain accomplished.
type Summary struct {
	// Synced counts entries the server accepted (or recognized as
	// duplicates) and that were removed from the queue.
	Synced int
	// Failed counts entries the server definitively rejected; they are
	// removed rather than retried forever.
	Failed int
	// NeedsAuth is set when the drain halted on an expired session. The
	// remaining entries stay queued for after re-authentication.
	NeedsAuth bool
}

// Config describes the orchestrator dependencies.
type Config struct {
	Queue  PendingQueue
	Client Submitter
	Logger *zap.Logger
}

// Orchestrator drains the durable queue one entry at a time, in enqueue
// order, mutating the queue only on definitive outcomes. At most one
// drain runs at a time; extra triggers are absorbed.
type Orchestrator struct {
	queue      PendingQueue
	client     Submitter
	logger     *zap.Logger
	inProgress atomic.Bool
}

// New constructs an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Queue == nil {
		return nil, errMissingQueue
	}
	if cfg.Client == nil {
		return nil, errMissingClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Orchestrator{
		queue:  cfg.Queue,
		client: cfg.Client,
		logger: logger,
	}, nil
}

// Drain attempts to deliver every queued check-in, oldest first. It
// stops early on the first offline, transient, or auth failure, leaving
// the current and all later entries queued. A drain already in progress
// makes this call a no-op returning a zero summary.
func (o *Orchestrator) Drain(ctx context.Context) Summary {
	if !o.inProgress.CompareAndSwap(false, true) {
		return Summary{}
	}
	defer o.inProgress.Store(false)

	summary := Summary{}
	for _, entry := range o.queue.List() {
		if entry.ClientID == "" || entry.Payload.Validate() != nil {
			// A malformed entry can never be delivered; drop it rather
			// than block everything behind it.
			o.logger.Warn("removing malformed queued check-in",
				zap.String("client_id", entry.ClientID))
			o.queue.Remove(entry.ClientID)
			continue
		}

		result := o.client.Submit(ctx, entry.Payload, entry.ClientID)
		switch result.Outcome {
		case submit.OutcomeSuccess:
			o.queue.Remove(entry.ClientID)
			summary.Synced++
		case submit.OutcomeServerRejected:
			o.logger.Warn("dropping check-in the server will never accept",
				zap.String("client_id", entry.ClientID),
				zap.Int("status", result.Status))
			o.queue.Remove(entry.ClientID)
			summary.Failed++
		case submit.OutcomeAuthRequired:
			summary.NeedsAuth = true
			o.logger.Info("drain halted, session expired",
				zap.Int("synced", summary.Synced))
			return summary
		default:
			// Offline or transient: nothing is discarded, the next
			// connectivity trigger picks up from here.
			o.logger.Debug("drain halted on non-terminal failure",
				zap.String("outcome", string(result.Outcome)),
				zap.Error(result.Err))
			return summary
		}
	}

	if summary.Synced > 0 || summary.Failed > 0 {
		o.logger.Info("drain complete",
			zap.Int("synced", summary.Synced),
			zap.Int("failed", summary.Failed))
	}
	return summary
}
