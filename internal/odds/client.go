package odds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/sports-arb/pkg/types"
	"go.uber.org/zap"
)

// LiveFilter selects which part of the schedule a fetch asks for.
type LiveFilter int

const (
	// AllEvents asks for every event that has not ended.
	AllEvents LiveFilter = iota
	// LiveOnly asks for in-progress events.
	LiveOnly
	// UpcomingOnly asks for events that have not started.
	UpcomingOnly
)

// Filter narrows a per-sport fetch.
type Filter struct {
	Live     LiveFilter
	LeagueID string
}

// DefaultMaxBodyBytes caps a single events page read from the provider.
const DefaultMaxBodyBytes = 32 << 20

// ErrResponseTooLarge is returned when a page exceeds the body cap.
var ErrResponseTooLarge = errors.New("odds response body too large")

// Fetcher is the part of Client the scanner depends on.
type Fetcher interface {
	FetchEvents(ctx context.Context, sport string, filter Filter) ([]types.Event, error)
}

// Client is an HTTP client for the odds provider's events endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *RateLimiter
	backoff    BackoffConfig
	maxRetries int
	pageSize   int
	maxPages   int
	maxBody    int64
	logger     *zap.Logger
}

// ClientConfig holds odds client configuration.
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	RateLimiter  *RateLimiter
	Backoff      BackoffConfig
	MaxRetries   int
	PageSize     int
	MaxPages     int
	MaxBodyBytes int64 // 0 means DefaultMaxBodyBytes
	Logger       *zap.Logger
}

// NewClient creates a new odds provider client. The rate limiter is shared, not owned.
func NewClient(cfg *ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	backoff := cfg.Backoff
	if backoff.InitialDelay <= 0 {
		backoff = DefaultBackoff(5 * time.Second)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:    cfg.RateLimiter,
		backoff:    backoff,
		maxRetries: cfg.MaxRetries,
		pageSize:   pageSize,
		maxPages:   maxPages,
		maxBody:    maxBody,
		logger:     cfg.Logger,
	}
}

// APIError is a non-success answer from the provider.
type APIError struct {
	StatusCode  int
	Message     string
	RetryAfter  time.Duration
	rateLimited bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("odds api error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether the provider asked us to slow down.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.rateLimited
}

// IsRetryable reports whether the request may succeed if repeated.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.StatusCode >= 500
}

// FetchEvents fetches all open events for one sport, following the provider cursor.
// Events tagged with another sport are dropped. Failures are logged at warn level
// and returned so the caller can skip the sport.
func (c *Client) FetchEvents(ctx context.Context, sport string, filter Filter) ([]types.Event, error) {
	var (
		events = make([]types.Event, 0)
		seen   = make(map[string]struct{})
		cursor string
	)

	for page := 0; ; page++ {
		if page >= c.maxPages {
			c.logger.Warn("odds-pagination-truncated",
				zap.String("sport", sport),
				zap.Int("max-pages", c.maxPages),
				zap.Int("events", len(events)))
			break
		}

		resp, err := c.fetchPage(ctx, sport, filter, cursor)
		if err != nil {
			kind := "permanent"
			if isTransient(err) {
				kind = "transient"
			}
			FetchErrorsTotal.WithLabelValues(sport, kind).Inc()
			c.logger.Warn("odds-fetch-failed",
				zap.String("sport", sport),
				zap.Int("page", page),
				zap.String("kind", kind),
				zap.Error(err))
			return nil, fmt.Errorf("fetch %s page %d: %w", sport, page, err)
		}

		for i := range resp.Data {
			event := resp.Data[i]
			if !strings.EqualFold(event.SportID, sport) {
				EventsDroppedTotal.WithLabelValues("wrong-sport").Inc()
				c.logger.Debug("event-dropped-wrong-sport",
					zap.String("event-id", event.EventID),
					zap.String("requested", sport),
					zap.String("got", event.SportID))
				continue
			}
			if _, dup := seen[event.EventID]; dup || event.EventID == "" {
				EventsDroppedTotal.WithLabelValues("duplicate").Inc()
				continue
			}
			seen[event.EventID] = struct{}{}
			events = append(events, event)
		}

		if resp.NextCursor == "" || len(resp.Data) == 0 {
			break
		}
		cursor = resp.NextCursor
	}

	EventsFetchedTotal.WithLabelValues(sport).Add(float64(len(events)))

	c.logger.Debug("odds-fetch-complete",
		zap.String("sport", sport),
		zap.Int("events", len(events)))

	return events, nil
}

// fetchPage fetches one page, retrying rate-limited and 5xx responses with backoff.
func (c *Client) fetchPage(ctx context.Context, sport string, filter Filter, cursor string) (*types.EventsResponse, error) {
	requestURL := c.buildURL(sport, filter, cursor)

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			err := c.limiter.Wait(ctx)
			if err != nil {
				return nil, fmt.Errorf("wait for rate limiter: %w", err)
			}
		}

		resp, err := c.doRequest(ctx, sport, requestURL)
		if err == nil {
			return resp, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}

		if apiErr.IsRateLimited() {
			RateLimitedResponsesTotal.Inc()
		}

		if attempt >= c.maxRetries {
			if apiErr.IsRateLimited() {
				return nil, fmt.Errorf("%w: %v", types.ErrRateLimited, err)
			}
			return nil, err
		}

		delay := c.backoff.Delay(attempt)
		if apiErr.RetryAfter > delay {
			delay = apiErr.RetryAfter
		}

		c.logger.Warn("odds-request-backing-off",
			zap.String("sport", sport),
			zap.Int("status", apiErr.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))

		err = sleep(ctx, delay)
		if err != nil {
			return nil, fmt.Errorf("backoff interrupted: %w", err)
		}
	}
}

func (c *Client) buildURL(sport string, filter Filter, cursor string) string {
	params := url.Values{}
	params.Add("sportID", sport)
	params.Add("oddsAvailable", "true")
	params.Add("ended", "false")
	params.Add("limit", strconv.Itoa(c.pageSize))

	switch filter.Live {
	case LiveOnly:
		params.Add("live", "true")
	case UpcomingOnly:
		params.Add("started", "false")
	}

	if filter.LeagueID != "" {
		params.Add("leagueID", filter.LeagueID)
	}

	if cursor != "" {
		params.Add("cursor", cursor)
	}

	return fmt.Sprintf("%s/events?%s", c.baseURL, params.Encode())
}

func (c *Client) doRequest(ctx context.Context, sport string, requestURL string) (*types.EventsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sports-arb/1.0")
	req.Header.Set("X-Api-Key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	RequestDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		RequestsTotal.WithLabelValues(sport, "error").Inc()
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	RequestsTotal.WithLabelValues(sport, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBody)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Message:     truncate(string(body), 200),
			RetryAfter:  parseRetryAfter(resp.Header.Get("Retry-After")),
			rateLimited: mentionsRateLimit(string(body)),
		}
	}

	var page types.EventsResponse
	err = json.Unmarshal(body, &page)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if !page.Success {
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Message:     page.Error,
			rateLimited: mentionsRateLimit(page.Error),
		}
	}

	return &page, nil
}

func mentionsRateLimit(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "rate-limit")
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}

	if errors.Is(err, types.ErrRateLimited) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
