// Package promoapi is the HTTP client for the promo backend's draw, prize
// structure and winners endpoints.
package promoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. rps <= 0 means no limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRetries sets how many times a read request is retried and the first
// backoff interval.
func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// Client talks to the promo backend on behalf of an operator session.
type Client struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a client for baseURL, e.g. https://promo.example.com/api/v1.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries: 2,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs a new draw. POST /draws/execute
func (c *Client) Execute(ctx context.Context, session models.Session, req models.DrawRequest) (*models.DrawResult, error) {
	return c.submit(ctx, session, "/draws/execute", req)
}

// Rerun replaces an existing draw. POST /draws/{id}/rerun
func (c *Client) Rerun(ctx context.Context, session models.Session, existingDrawID string, req models.DrawRequest) (*models.DrawResult, error) {
	if existingDrawID == "" {
		return nil, apperrors.NewValidationError("existing_draw_id", "no draw to rerun")
	}
	return c.submit(ctx, session, "/draws/"+url.PathEscape(existingDrawID)+"/rerun", req)
}

// ListValidForDate returns the prize structures that can run a draw on
// date, sorted by name. GET /prize-structures
func (c *Client) ListValidForDate(ctx context.Context, session models.Session, date time.Time) ([]models.PrizeStructure, error) {
	var raw []wirePrizeStructure
	if err := c.getJSON(ctx, session, "/prize-structures", &raw); err != nil {
		return nil, err
	}

	out := make([]models.PrizeStructure, 0, len(raw))
	for _, w := range raw {
		ps := w.toModel()
		if ps.ValidFor(date) {
			out = append(out, ps)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// FetchByDrawID returns the winners of a draw with the prize structure it
// ran against. GET /draws/{id}/winners
func (c *Client) FetchByDrawID(ctx context.Context, session models.Session, drawID string) (*models.DrawWinners, error) {
	if _, err := uuid.Parse(drawID); err != nil {
		return nil, apperrors.NewValidationError("draw_id", "invalid draw ID format")
	}
	var raw wireDrawWinners
	if err := c.getJSON(ctx, session, "/draws/"+url.PathEscape(drawID)+"/winners", &raw); err != nil {
		return nil, err
	}
	return &models.DrawWinners{
		Winners:        toWinnerRecords(raw.Winners),
		PrizeStructure: raw.PrizeStructure.toModel(),
	}, nil
}

// ListDraws returns every draw the backend knows about. GET /draws
func (c *Client) ListDraws(ctx context.Context, session models.Session) ([]models.DrawSummary, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, session, "/draws", &raw); err != nil {
		return nil, err
	}
	draws, err := decodeDrawList(raw)
	if err != nil {
		return nil, &apperrors.ExecutionError{Err: eris.Wrap(err, "promoapi: decode draw list")}
	}
	return draws, nil
}

func (c *Client) submit(ctx context.Context, session models.Session, path string, req models.DrawRequest) (*models.DrawResult, error) {
	payload, err := json.Marshal(newExecuteBody(req))
	if err != nil {
		return nil, eris.Wrap(err, "promoapi: encode draw request")
	}

	body, status, err := c.do(ctx, session, http.MethodPost, path, payload, false)
	if err != nil {
		return nil, &apperrors.ExecutionError{Err: err}
	}
	if status < 200 || status > 299 {
		return nil, decodeError(status, body)
	}

	var raw wireDrawResult
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &apperrors.ExecutionError{StatusCode: status, Err: eris.Wrap(err, "promoapi: decode draw result")}
	}
	result := raw.toModel()
	if result.Date.IsZero() {
		result.Date = req.DrawDate
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, session models.Session, path string, out interface{}) error {
	body, status, err := c.do(ctx, session, http.MethodGet, path, nil, true)
	if err != nil {
		return &apperrors.ExecutionError{Err: err}
	}
	if status < 200 || status > 299 {
		return decodeError(status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &apperrors.ExecutionError{StatusCode: status, Err: eris.Wrapf(err, "promoapi: decode %s", path)}
	}
	return nil
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// do sends one request, retrying transient failures with exponential backoff
// when retry is set. Draw submissions are never retried: a lost response
// may still have created the draw.
func (c *Client) do(ctx context.Context, session models.Session, method, path string, payload []byte, retry bool) ([]byte, int, error) {
	attempts := 1
	if retry {
		attempts += c.maxRetries
	}
	backoff := c.backoff
	requestID := uuid.NewString()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, 0, eris.Wrap(err, "promoapi: rate limit wait")
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader(payload))
		if err != nil {
			return nil, 0, eris.Wrap(err, "promoapi: create request")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if session.Token != "" {
			req.Header.Set("Authorization", "Bearer "+session.Token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = eris.Wrapf(err, "promoapi: %s %s", method, path)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, resp.StatusCode, eris.Wrap(readErr, "promoapi: read response body")
			}
			if !retryableStatusCode(resp.StatusCode) || attempt == attempts {
				return body, resp.StatusCode, nil
			}
			lastErr = eris.Errorf("promoapi: status %d", resp.StatusCode)
		}

		if attempt == attempts {
			break
		}
		zap.L().Debug("promoapi: retrying request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, 0, lastErr
}

func bodyReader(payload []byte) io.Reader {
	if payload == nil {
		return nil
	}
	return bytes.NewReader(payload)
}

// decodeError maps a non-2xx response onto the console's error kinds.
func decodeError(status int, body []byte) error {
	var w wireError
	_ = json.Unmarshal(body, &w)
	msg := w.message()

	if status == http.StatusConflict {
		existing := firstNonEmpty(w.ExistingDrawID, w.ExistingDrawIDCamel, w.DrawID)
		eligible := existing != ""
		if flag := w.rerunEligible(); flag != nil {
			eligible = *flag
		}
		return &apperrors.ConflictError{
			StatusCode:     status,
			RerunEligible:  eligible,
			ExistingDrawID: existing,
			Message:        msg,
		}
	}
	return &apperrors.ExecutionError{StatusCode: status, Message: msg}
}

