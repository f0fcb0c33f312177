package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MapleGroveLabs/moodnest/internal/checkin"
	"go.uber.org/zap"
)

var (
	errMissingTransport = errors.New("submit: transport is required")
	errMissingBaseURL   = errors.New("submit: base url is required")

	noOpLogger = zap.NewNop()
)

// ReachabilitySource is the read side of the connectivity monitor.
type ReachabilitySource interface {
	Online() bool
}

// ClientConfig describes the dependencies of a submission client.
type ClientConfig struct {
	Transport    Transport
	BaseURL      string
	Reachability ReachabilitySource
	// SessionCookieName and SessionToken, when set, attach the ambient
	// session cookie to every request. Login itself is the
	// authentication collaborator's job; this client only carries the
	// result and reacts to 401.
	SessionCookieName string
	SessionToken      string
	Logger            *zap.Logger
}

// Client performs a single submission attempt per call and classifies
// the outcome precisely. It never retries internally; that discipline
// belongs to the sync orchestrator.
type Client struct {
	transport    Transport
	baseURL      string
	reachability ReachabilitySource
	cookieName   string
	sessionToken string
	logger       *zap.Logger
}

// NewClient constructs a submission client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Transport == nil {
		return nil, errMissingTransport
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Client{
		transport:    cfg.Transport,
		baseURL:      baseURL,
		reachability: cfg.Reachability,
		cookieName:   strings.TrimSpace(cfg.SessionCookieName),
		sessionToken: strings.TrimSpace(cfg.SessionToken),
		logger:       logger,
	}, nil
}

type submissionPayload struct {
	Emotion    string `json:"emotion"`
	Mode       string `json:"mode"`
	Note       string `json:"note,omitempty"`
	DrawingRef string `json:"drawingRef,omitempty"`
	DateISO    string `json:"dateISO"`
	ClientID   string `json:"clientId,omitempty"`
}

// Submit attempts to persist one check-in. clientID is empty for a
// fresh direct submission and carries the queued idempotency key on
// resubmission so the server can discard an exact duplicate.
func (c *Client) Submit(ctx context.Context, record checkin.Record, clientID string) Result {
	if c.reachability != nil && !c.reachability.Online() {
		return Result{Outcome: OutcomeOffline}
	}

	payload := submissionPayload{
		Emotion:    string(record.Emotion),
		Mode:       string(record.Mode),
		Note:       record.Note,
		DrawingRef: record.DrawingRef,
		DateISO:    record.DateISO,
		ClientID:   clientID,
	}
	// Failures before the request leaves the device are never server
	// rejections; the entry stays queued and retryable.
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Outcome: OutcomeTransient, Err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/checkins", bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: OutcomeTransient, Err: err}
	}
	request.Header.Set("Content-Type", "application/json")
	if c.sessionToken != "" && c.cookieName != "" {
		request.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.sessionToken})
	}

	response, err := c.transport.Do(request)
	if err != nil {
		return c.classifyTransportError(err)
	}
	defer response.Body.Close()
	// Drain so the transport can reuse the connection.
	_, _ = io.Copy(io.Discard, response.Body)

	return c.classifyStatus(response.StatusCode, clientID)
}

func (c *Client) classifyTransportError(err error) Result {
	// A failed dial while the reachability signal says offline means the
	// request never had a network to leave on. Anything else while
	// apparently online is a transient fault worth retrying later.
	if c.reachability != nil && !c.reachability.Online() {
		return Result{Outcome: OutcomeOffline, Err: err}
	}
	return Result{Outcome: OutcomeTransient, Err: err}
}

func (c *Client) classifyStatus(status int, clientID string) Result {
	switch {
	case status >= 200 && status < 300:
		return Result{Outcome: OutcomeSuccess, Status: status}
	case status == http.StatusUnauthorized:
		return Result{Outcome: OutcomeAuthRequired, Status: status}
	case status >= 400 && status < 500:
		c.logger.Warn("server rejected check-in",
			zap.Int("status", status),
			zap.String("client_id", clientID))
		return Result{
			Outcome: OutcomeServerRejected,
			Status:  status,
			Err:     fmt.Errorf("submit: server rejected with status %d", status),
		}
	default:
		return Result{
			Outcome: OutcomeTransient,
			Status:  status,
			Err:     fmt.Errorf("submit: unexpected status %d", status),
		}
	}
}
