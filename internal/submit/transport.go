package submit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const (
	// TransportTCP is the ordinary networked HTTP path.
	TransportTCP = "tcp"
	// TransportUnix routes HTTP over a local unix socket, used when the
	// agent runs beside an on-device relay instead of reaching the
	// network directly.
	TransportUnix = "unix"

	defaultRequestTimeout = 10 * time.Second
)

// Transport performs one HTTP round trip. It is satisfied by
// *http.Client; the indirection exists so the delivery path is chosen
// once at startup instead of branching at call sites.
type Transport interface {
	Do(request *http.Request) (*http.Response, error)
}

// TransportConfig selects and configures the delivery path.
type TransportConfig struct {
	// Kind is TransportTCP or TransportUnix.
	Kind string
	// SocketPath locates the relay socket for TransportUnix.
	SocketPath string
	// Timeout bounds one round trip; a timed-out attempt classifies as
	// transient, never as success or offline.
	Timeout time.Duration
}

// NewTransport builds the configured Transport. The returned client
// carries a cookie jar so the ambient session cookie set at login rides
// along on every submission.
func NewTransport(cfg TransportConfig) (Transport, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case "", TransportTCP:
		return &http.Client{Timeout: timeout, Jar: jar}, nil
	case TransportUnix:
		if cfg.SocketPath == "" {
			return nil, fmt.Errorf("submit: socket path required for unix transport")
		}
		socketPath := cfg.SocketPath
		return &http.Client{
			Timeout: timeout,
			Jar:     jar,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					dialer := net.Dialer{}
					return dialer.DialContext(ctx, "unix", socketPath)
				},
			},
		}, nil
	default:
		return nil, fmt.Errorf("submit: unknown transport kind %q", cfg.Kind)
	}
}
