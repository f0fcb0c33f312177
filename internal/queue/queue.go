package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MapleGroveLabs/moodnest/internal/checkin"
	"go.uber.org/zap"
)

var (
	errMissingStore      = errors.New("queue: store is required")
	errMissingIDProvider = errors.New("queue: id provider is required")
	// ErrQueueFull reports that a new entry could not be persisted even
	// after evicting every older entry.
	ErrQueueFull = errors.New("queue: entry does not fit store capacity")

	noOpLogger = zap.NewNop()
)

// Config describes the dependencies of a durable queue.
type Config struct {
	Store      Store
	IDProvider checkin.IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Queue is the durable, ordered list of check-ins awaiting delivery.
//
// Every operation tolerates an absent or corrupted backing blob by
// treating it as an empty queue; pending check-ins are only ever lost
// through an explicit Remove or oldest-first capacity eviction.
type Queue struct {
	mu         sync.Mutex
	store      Store
	idProvider checkin.IDProvider
	clock      func() time.Time
	logger     *zap.Logger
}

// New constructs a Queue over the provided store.
func New(cfg Config) (*Queue, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Queue{
		store:      cfg.Store,
		idProvider: cfg.IDProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Enqueue appends the record under a freshly generated client id and
// persists the queue. When the store rejects the save for capacity, the
// oldest entries are evicted one at a time until the new entry fits.
func (q *Queue) Enqueue(record checkin.Record) (checkin.QueuedCheckin, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	clientID, err := q.idProvider.NewID()
	if err != nil {
		return checkin.QueuedCheckin{}, fmt.Errorf("queue: id generation failed: %w", err)
	}

	entry := checkin.QueuedCheckin{
		ClientID:  clientID,
		Timestamp: q.clock().UTC().Unix(),
		Payload:   record,
	}

	entries := append(q.loadEntries(), entry)
	evicted := 0
	for {
		err := q.saveEntries(entries)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrCapacityExceeded) {
			return checkin.QueuedCheckin{}, fmt.Errorf("queue: persist failed: %w", err)
		}
		if len(entries) == 1 {
			return checkin.QueuedCheckin{}, ErrQueueFull
		}
		entries = entries[1:]
		evicted++
	}

	if evicted > 0 {
		q.logger.Warn("queue evicted oldest entries to fit new check-in",
			zap.Int("evicted", evicted),
			zap.String("client_id", clientID))
	}

	return entry, nil
}

// List returns all pending entries in enqueue order. It has no side
// effects and returns an empty slice when nothing is pending.
func (q *Queue) List() []checkin.QueuedCheckin {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadEntries()
}

// Remove deletes the entry with the given client id. Removing an absent
// id is a no-op.
func (q *Queue) Remove(clientID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.loadEntries()
	kept := entries[:0]
	for _, entry := range entries {
		if entry.ClientID != clientID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(entries) {
		return
	}
	if err := q.saveEntries(kept); err != nil {
		q.logger.Error("queue failed to persist removal",
			zap.String("client_id", clientID),
			zap.Error(err))
	}
}

// Len reports the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.loadEntries())
}

func (q *Queue) loadEntries() []checkin.QueuedCheckin {
	data, present, err := q.store.Load()
	if err != nil {
		q.logger.Warn("queue store unreadable, treating as empty", zap.Error(err))
		return []checkin.QueuedCheckin{}
	}
	if !present || len(data) == 0 {
		return []checkin.QueuedCheckin{}
	}
	var entries []checkin.QueuedCheckin
	if err := json.Unmarshal(data, &entries); err != nil {
		q.logger.Warn("queue blob unparseable, treating as empty", zap.Error(err))
		return []checkin.QueuedCheckin{}
	}
	return entries
}

func (q *Queue) saveEntries(entries []checkin.QueuedCheckin) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return q.store.Save(data)
}
