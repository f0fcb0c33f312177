package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/MapleGroveLabs/moodnest/internal/connectivity"
	"github.com/MapleGroveLabs/moodnest/internal/submit"
)

func TestCoordinatorDrainsOnReconnect(t *testing.T) {
	q := mustTestQueue(t)
	mustEnqueue(t, q, "queued while offline")

	client := &scriptedClient{outcomes: map[string]submit.Outcome{}}
	orchestrator := mustOrchestrator(t, q, client)
	monitor := connectivity.NewMonitor(false)

	summaries := make(chan Summary, 1)
	coordinator := NewCoordinator(CoordinatorConfig{
		Monitor:      monitor,
		Orchestrator: orchestrator,
		OnSummary:    func(summary Summary) { summaries <- summary },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coordinator.Run(ctx)

	// Let the subscription register before flipping the state.
	time.Sleep(20 * time.Millisecond)
	monitor.Set(true)

	select {
	case summary := <-summaries:
		if summary.Synced != 1 {
			t.Fatalf("expected one synced check-in, got %+v", summary)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reconnect never triggered a drain")
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be drained after reconnect, has %d", q.Len())
	}
}

func TestCoordinatorDrainsOnceAtStartupWhenOnline(t *testing.T) {
	q := mustTestQueue(t)
	mustEnqueue(t, q, "left over from last run")

	client := &scriptedClient{outcomes: map[string]submit.Outcome{}}
	orchestrator := mustOrchestrator(t, q, client)
	monitor := connectivity.NewMonitor(true)

	summaries := make(chan Summary, 1)
	coordinator := NewCoordinator(CoordinatorConfig{
		Monitor:      monitor,
		Orchestrator: orchestrator,
		OnSummary:    func(summary Summary) { summaries <- summary },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coordinator.Run(ctx)

	select {
	case summary := <-summaries:
		if summary.Synced != 1 {
			t.Fatalf("expected startup drain to sync one entry, got %+v", summary)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("startup drain never ran")
	}
}

func TestCoordinatorSkipsCallbackForIdleDrains(t *testing.T) {
	q := mustTestQueue(t)
	client := &scriptedClient{outcomes: map[string]submit.Outcome{}}
	orchestrator := mustOrchestrator(t, q, client)
	monitor := connectivity.NewMonitor(true)

	called := make(chan struct{}, 1)
	coordinator := NewCoordinator(CoordinatorConfig{
		Monitor:      monitor,
		Orchestrator: orchestrator,
		OnSummary:    func(Summary) { called <- struct{}{} },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coordinator.Run(ctx)

	select {
	case <-called:
		t.Fatalf("idle drain should not surface a summary")
	case <-time.After(100 * time.Millisecond):
	}
}
