package ipgeo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/five82/beacon/internal/geo"
)

// ErrLookupFailed is returned when the service answers but cannot place the
// caller.
var ErrLookupFailed = errors.New("ip geolocation lookup failed")

const (
	DefaultEndpoint  = "http://ip-api.com/json"
	DefaultTimeout   = 10 * time.Second
	defaultUserAgent = "beacon/0.1"
	defaultRate      = 1.0
)

// Config configures a Client. Zero values select defaults.
type Config struct {
	Endpoint       string
	RequestsPerSec float64
	// DefaultTimeout bounds attempts that arrive without a timeout.
	DefaultTimeout time.Duration
	UserAgent      string
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Response is the subset of the ip-api payload Beacon reads.
type Response struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Query   string  `json:"query,omitempty"`
	Country string  `json:"country,omitempty"`
	City    string  `json:"city,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Client resolves the caller's position from its public IP address.
type Client struct {
	endpoint       *url.URL
	http           *http.Client
	limiter        *rate.Limiter
	userAgent      string
	defaultTimeout time.Duration
	log            *slog.Logger
}

// Ensure Client implements geo.Provider at compile time.
var _ geo.Provider = (*Client)(nil)

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	endpoint, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = defaultRate
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		endpoint:       endpoint,
		http:           httpClient,
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		userAgent:      ua,
		defaultTimeout: timeout,
		log:            logger.With("component", "ipgeo"),
	}, nil
}

// Lookup performs one rate-limited request and returns the raw payload.
func (c *Client) Lookup(ctx context.Context) (Response, error) {
	if c == nil {
		return Response{}, fmt.Errorf("client is nil")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			// The wait would outlast the deadline.
			err = context.DeadlineExceeded
		}
		return Response{}, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.String(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return Response{}, fmt.Errorf("geolocation endpoint returned status %d", resp.StatusCode)
	}
	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

// Position resolves the caller's position.
func (c *Client) Position(ctx context.Context) (geo.Position, error) {
	payload, err := c.Lookup(ctx)
	if err != nil {
		return geo.Position{}, err
	}
	if !strings.EqualFold(payload.Status, "success") {
		msg := strings.TrimSpace(payload.Message)
		if msg == "" {
			msg = "status " + payload.Status
		}
		return geo.Position{}, fmt.Errorf("%w: %s", ErrLookupFailed, msg)
	}
	pos := geo.Position{Latitude: payload.Lat, Longitude: payload.Lon}
	if !pos.Valid() {
		return geo.Position{}, fmt.Errorf("%w: coordinates out of range %s", ErrLookupFailed, pos)
	}
	return pos, nil
}

// Locate runs one attempt in the background and reports to h. A zero
// opts.Timeout falls back to the configured default. Nothing is reported
// once ctx is cancelled.
func (c *Client) Locate(ctx context.Context, opts geo.LocateOptions, h geo.Handler) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	go func() {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		pos, err := c.Position(attemptCtx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Debug("ip lookup failed", "error", err, "timeout", timeout)
			h.OnLocateFailed(FailureMessage(err))
			return
		}
		h.OnLocateSucceeded(pos)
	}()
}

// FailureMessage renders err the way browser geolocation errors read.
func FailureMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return geo.TimeoutMessage
	case errors.Is(err, ErrLookupFailed):
		reason := strings.TrimPrefix(err.Error(), ErrLookupFailed.Error()+": ")
		return "Geolocation error: " + reason + "."
	default:
		return geo.UnavailableMessage
	}
}

func parseEndpoint(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultEndpoint
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse endpoint %q: missing host", raw)
	}
	u.Fragment = ""
	return u, nil
}
