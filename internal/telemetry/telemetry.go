// Package telemetry ships application events to a remote log collector.
//
// Shipping is fire-and-forget: Log never blocks and never fails, entries are
// dropped when the queue is full or the collector keeps rejecting them.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vadimbarashkov/shorturls/internal/config"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Packages an entry can be attributed to.
const (
	PackageConfig  = "config"
	PackageDB      = "db"
	PackageHandler = "handler"
	PackageRoute   = "route"
	PackageService = "service"
)

var errUnauthorized = errors.New("unauthorized")

// Entry is a single event as accepted by the collector.
type Entry struct {
	Stack    string         `json:"stack"`
	Level    Level          `json:"level"`
	Package  string         `json:"package"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type authRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RollNo       string `json:"rollNo"`
	AccessCode   string `json:"accessCode"`
	ClientID     string `json:"clientID"`
	ClientSecret string `json:"clientSecret"`
}

type authResponse struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // unix timestamp
}

// Shipper queues entries and sends them to the collector from a single worker.
// A nil *Shipper or one without a base URL discards everything.
type Shipper struct {
	cfg     config.Telemetry
	client  *http.Client
	logger  *slog.Logger
	entries chan Entry

	newBackOff func() backoff.BackOff
	now        func() time.Time

	// owned by the worker goroutine
	token       string
	tokenExpiry time.Time
}

// New creates a Shipper for cfg. Diagnostics about failed deliveries go to logger.
func New(cfg config.Telemetry, logger *slog.Logger) *Shipper {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}

	return &Shipper{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		entries: make(chan Entry, cfg.QueueSize),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		now: time.Now,
	}
}

// Enabled reports whether entries are actually shipped.
func (s *Shipper) Enabled() bool {
	return s != nil && s.cfg.BaseURL != ""
}

// Log queues an entry. The request id carried by ctx, if any, is added to the metadata.
func (s *Shipper) Log(ctx context.Context, level Level, pkg, msg string, meta map[string]any) {
	if !s.Enabled() {
		return
	}

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		meta = maps.Clone(meta)
		if meta == nil {
			meta = make(map[string]any, 1)
		}
		meta["requestId"] = reqID
	}

	e := Entry{
		Stack:    s.cfg.Stack,
		Level:    level,
		Package:  pkg,
		Message:  msg,
		Metadata: meta,
	}

	select {
	case s.entries <- e:
	default:
		s.logger.Debug("telemetry queue is full, entry dropped", slog.String("message", msg))
	}
}

func (s *Shipper) Debug(ctx context.Context, pkg, msg string, meta map[string]any) {
	s.Log(ctx, LevelDebug, pkg, msg, meta)
}

func (s *Shipper) Info(ctx context.Context, pkg, msg string, meta map[string]any) {
	s.Log(ctx, LevelInfo, pkg, msg, meta)
}

func (s *Shipper) Warn(ctx context.Context, pkg, msg string, meta map[string]any) {
	s.Log(ctx, LevelWarn, pkg, msg, meta)
}

func (s *Shipper) Error(ctx context.Context, pkg, msg string, meta map[string]any) {
	s.Log(ctx, LevelError, pkg, msg, meta)
}

// Run sends queued entries until ctx is done, then flushes what is left for at
// most the configured timeout. It always returns nil.
func (s *Shipper) Run(ctx context.Context) error {
	if !s.Enabled() {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			s.drain()
			return nil
		case e := <-s.entries:
			if ctx.Err() != nil {
				s.drain(e)
				return nil
			}
			s.ship(ctx, e)
		}
	}
}

func (s *Shipper) drain(pending ...Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	for _, e := range pending {
		s.ship(ctx, e)
	}

	for ctx.Err() == nil {
		select {
		case e := <-s.entries:
			s.ship(ctx, e)
		default:
			return
		}
	}
}

func (s *Shipper) ship(ctx context.Context, e Entry) {
	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.cfg.MaxRetries), ctx)

	err := backoff.Retry(func() error {
		return s.send(ctx, e)
	}, b)
	if err != nil {
		s.logger.Debug("failed to ship telemetry entry", slog.Any("err", err))
	}
}

func (s *Shipper) send(ctx context.Context, e Entry) error {
	const op = "telemetry.Shipper.send"

	token, err := s.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.post(ctx, "/logs", token, e)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		if errors.Is(err, errUnauthorized) {
			s.token = ""
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Shipper) accessToken(ctx context.Context) (string, error) {
	const op = "telemetry.Shipper.accessToken"

	if s.token != "" && s.now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	resp, err := s.post(ctx, "/auth", "", authRequest{
		Email:        s.cfg.Email,
		Name:         s.cfg.Name,
		RollNo:       s.cfg.RollNo,
		AccessCode:   s.cfg.AccessCode,
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("%s: failed to decode auth response: %w", op, err)
	}

	s.token = auth.AccessToken
	s.tokenExpiry = time.Unix(auth.ExpiresIn, 0)

	return s.token, nil
}

func (s *Shipper) post(ctx context.Context, path, token string, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to encode request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.client.Do(req)
}

// checkStatus turns a non-2xx response into an error. Client errors other than
// 401 and 429 are not retried.
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return errUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return fmt.Errorf("unexpected status: %s", resp.Status)
	default:
		return backoff.Permanent(fmt.Errorf("unexpected status: %s", resp.Status))
	}
}
