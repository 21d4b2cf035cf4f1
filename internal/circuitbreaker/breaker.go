package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mselser95/sports-arb/internal/odds"
	"github.com/mselser95/sports-arb/pkg/types"
	"go.uber.org/zap"
)

// ErrOpen is returned for a sport whose breaker is open.
var ErrOpen = errors.New("circuit breaker open")

// Breaker states.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// FetchBreaker wraps an odds fetcher with one breaker per sport. After
// FailureThreshold consecutive failures a sport is skipped for Cooldown, then a
// single probe fetch decides whether it closes again or reopens. Skipped sports
// spend none of the shared request budget.
type FetchBreaker struct {
	next      odds.Fetcher
	threshold int
	cooldown  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	// Protected by mutex
	mu     sync.Mutex
	sports map[string]*sportState
}

type sportState struct {
	failures int
	state    string
	openedAt time.Time
	lastErr  error
}

// Config holds circuit breaker configuration.
type Config struct {
	Fetcher          odds.Fetcher
	FailureThreshold int
	Cooldown         time.Duration
	Logger           *zap.Logger
}

// Status holds one sport's breaker state for debugging.
type Status struct {
	Sport               string
	State               string
	ConsecutiveFailures int
	OpenedAt            time.Time
	LastError           string
}

// New creates a new fetch breaker with the given configuration.
func New(cfg *Config) (breaker *FetchBreaker, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive")
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("cooldown must be positive")
	}

	return &FetchBreaker{
		next:      cfg.Fetcher,
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
		logger:    cfg.Logger,
		now:       time.Now,
		sports:    make(map[string]*sportState),
	}, nil
}

// FetchEvents implements odds.Fetcher.
func (b *FetchBreaker) FetchEvents(ctx context.Context, sport string, filter odds.Filter) ([]types.Event, error) {
	if !b.allow(sport) {
		RejectedFetchesTotal.WithLabelValues(sport).Inc()
		return nil, fmt.Errorf("fetch %s: %w", sport, ErrOpen)
	}

	events, err := b.next.FetchEvents(ctx, sport, filter)

	// A cancelled scan says nothing about the provider.
	if err != nil && ctx.Err() != nil {
		b.release(sport)
		return nil, err
	}

	b.record(sport, err)
	return events, err
}

// allow reports whether a fetch may go out, moving an expired open breaker to half-open.
func (b *FetchBreaker) allow(sport string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stateLocked(sport)

	switch s.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(s.openedAt) < b.cooldown {
			return false
		}
		b.transitionLocked(sport, s, StateHalfOpen)
		return true
	default:
		// One probe at a time.
		return false
	}
}

// release undoes a half-open probe that never reached the provider.
func (b *FetchBreaker) release(sport string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stateLocked(sport)
	if s.state == StateHalfOpen {
		s.state = StateOpen
		BreakerOpen.WithLabelValues(sport).Set(1)
	}
}

func (b *FetchBreaker) record(sport string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stateLocked(sport)

	if err == nil {
		if s.state != StateClosed {
			b.transitionLocked(sport, s, StateClosed)
		}
		s.failures = 0
		s.lastErr = nil
		return
	}

	s.failures++
	s.lastErr = err

	switch {
	case s.state == StateHalfOpen:
		s.openedAt = b.now()
		b.transitionLocked(sport, s, StateOpen)
	case s.state == StateClosed && s.failures >= b.threshold:
		s.openedAt = b.now()
		b.transitionLocked(sport, s, StateOpen)
	}
}

func (b *FetchBreaker) stateLocked(sport string) *sportState {
	s, ok := b.sports[sport]
	if !ok {
		s = &sportState{state: StateClosed}
		b.sports[sport] = s
	}
	return s
}

func (b *FetchBreaker) transitionLocked(sport string, s *sportState, to string) {
	from := s.state
	s.state = to

	StateChangesTotal.WithLabelValues(sport, to).Inc()
	if to == StateClosed {
		BreakerOpen.WithLabelValues(sport).Set(0)
	} else {
		BreakerOpen.WithLabelValues(sport).Set(1)
	}

	fields := []zap.Field{
		zap.String("sport", sport),
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("consecutive-failures", s.failures),
	}
	if s.lastErr != nil {
		fields = append(fields, zap.NamedError("last-error", s.lastErr))
	}

	switch to {
	case StateOpen:
		b.logger.Warn("fetch-breaker-opened", append(fields, zap.Duration("cooldown", b.cooldown))...)
	case StateClosed:
		b.logger.Info("fetch-breaker-closed", fields...)
	default:
		b.logger.Debug("fetch-breaker-probing", fields...)
	}
}

// GetStatus returns every known sport's breaker state, sorted by sport.
func (b *FetchBreaker) GetStatus() []Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	statuses := make([]Status, 0, len(b.sports))
	for sport, s := range b.sports {
		st := Status{
			Sport:               sport,
			State:               s.state,
			ConsecutiveFailures: s.failures,
			OpenedAt:            s.openedAt,
		}
		if s.lastErr != nil {
			st.LastError = s.lastErr.Error()
		}
		statuses = append(statuses, st)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Sport < statuses[j].Sport
	})

	return statuses
}
