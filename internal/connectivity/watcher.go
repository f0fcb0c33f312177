package connectivity

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultProbeInterval = 15 * time.Second

// Prober answers whether the API endpoint is reachable right now. This
// is the platform reachability signal the Monitor wraps; on a browser it
// would be the online/offline events, here it is a cheap HEAD request.
type Prober interface {
	Probe(ctx context.Context) bool
}

// HTTPProber probes reachability with a HEAD request against the API
// health endpoint. Any response at all counts as reachable; only a
// transport-level failure counts as offline.
type HTTPProber struct {
	client *http.Client
	url    string
}

// NewHTTPProber constructs a prober against the given health URL.
func NewHTTPProber(client *http.Client, url string) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPProber{client: client, url: url}
}

// Probe performs one reachability check.
func (p *HTTPProber) Probe(ctx context.Context) bool {
	request, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	response, err := p.client.Do(request)
	if err != nil {
		return false
	}
	response.Body.Close()
	return true
}

// WatcherConfig configures the probe loop feeding a Monitor.
type WatcherConfig struct {
	Monitor  *Monitor
	Prober   Prober
	Interval time.Duration
	Logger   *zap.Logger
}

// Watcher periodically probes reachability and feeds the result to the
// Monitor, which turns raw observations into transition notifications.
type Watcher struct {
	monitor  *Monitor
	prober   Prober
	interval time.Duration
	logger   *zap.Logger
}

// NewWatcher constructs a Watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		monitor:  cfg.Monitor,
		prober:   cfg.Prober,
		interval: interval,
		logger:   logger,
	}
}

// Run probes once immediately and then on every tick until the context
// is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.observe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.observe(ctx)
		}
	}
}

func (w *Watcher) observe(ctx context.Context) {
	online := w.prober.Probe(ctx)
	previous := w.monitor.Online()
	w.monitor.Set(online)
	if previous != online {
		w.logger.Info("connectivity changed", zap.Bool("online", online))
	}
}
