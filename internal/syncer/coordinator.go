package syncer

import (
	"context"

	"github.com/MapleGroveLabs/moodnest/internal/connectivity"
	"go.uber.org/zap"
)

// CoordinatorConfig wires drains to connectivity transitions.
type CoordinatorConfig struct {
	Monitor      *connectivity.Monitor
	Orchestrator *Orchestrator
	// OnSummary, when set, receives the summary of each drain that moved
	// anything, so a UI can show a "synced N check-ins" notice.
	OnSummary func(Summary)
	Logger    *zap.Logger
}

// Coordinator owns the fire-and-forget triggering of drains: once at
// startup when already online, and again on every offline-to-online
// transition. The submission flow itself never starts drains.
type Coordinator struct {
	monitor      *connectivity.Monitor
	orchestrator *Orchestrator
	onSummary    func(Summary)
	logger       *zap.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Coordinator{
		monitor:      cfg.Monitor,
		orchestrator: cfg.Orchestrator,
		onSummary:    cfg.OnSummary,
		logger:       logger,
	}
}

// Run blocks until the context is cancelled, draining on each
// reconnect. An empty-queue drain is a cheap no-op, so no pending check
// is needed before triggering.
func (c *Coordinator) Run(ctx context.Context) {
	transitions := c.monitor.Subscribe(ctx)

	if c.monitor.Online() {
		c.drain(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-transitions:
			if !ok {
				return
			}
			if online {
				c.drain(ctx)
			}
		}
	}
}

func (c *Coordinator) drain(ctx context.Context) {
	summary := c.orchestrator.Drain(ctx)
	if summary.NeedsAuth {
		c.logger.Warn("sync requires re-authentication")
	}
	if c.onSummary != nil && (summary.Synced > 0 || summary.Failed > 0 || summary.NeedsAuth) {
		c.onSummary(summary)
	}
}
