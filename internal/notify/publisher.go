// Package notify publishes newly detected opportunities to Redis streams, where
// the notification subsystem matches them against user preferences.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher delivers opportunities to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, opps []*arbitrage.Opportunity) error
	Close() error
}

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// StreamPublisher appends each opportunity to the stream of its sport.
type StreamPublisher struct {
	client streamClient
	prefix string
	maxLen int64
	logger *zap.Logger
}

// StreamPublisherConfig holds stream publisher configuration.
type StreamPublisherConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	MaxLen   int64
	Logger   *zap.Logger
}

// NewStreamPublisher connects to Redis and verifies the connection.
func NewStreamPublisher(ctx context.Context, cfg *StreamPublisherConfig) (*StreamPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	cfg.Logger.Info("redis-publisher-connected",
		zap.String("addr", cfg.Addr),
		zap.String("stream-prefix", cfg.Prefix))

	return newStreamPublisher(rdb, cfg.Prefix, cfg.MaxLen, cfg.Logger), nil
}

func newStreamPublisher(client streamClient, prefix string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		prefix: prefix,
		maxLen: maxLen,
		logger: logger,
	}
}

// StreamName returns the stream an opportunity for sport is appended to.
func (p *StreamPublisher) StreamName(sport string) string {
	return p.prefix + "." + strings.ToLower(sport)
}

// Publish appends every opportunity. A failed append does not stop the others;
// the returned error joins all failures.
func (p *StreamPublisher) Publish(ctx context.Context, opps []*arbitrage.Opportunity) error {
	var errs []error

	for _, opp := range opps {
		err := p.publishOne(ctx, opp)
		if err != nil {
			NotificationErrorsTotal.Inc()
			p.logger.Warn("notification-publish-failed",
				zap.String("opportunity-id", opp.ID),
				zap.String("group-key", opp.Key),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		NotificationsPublishedTotal.WithLabelValues(opp.SportID).Inc()
	}

	return errors.Join(errs...)
}

func (p *StreamPublisher) publishOne(ctx context.Context, opp *arbitrage.Opportunity) error {
	data, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("marshal opportunity %s: %w", opp.ID, err)
	}

	stream := p.StreamName(opp.SportID)
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":           string(data),
			"opportunity_id": opp.ID,
			"event_id":       opp.EventID,
			"profit_pct":     strconv.FormatFloat(opp.ProfitPct, 'f', 2, 64),
			"tier":           opp.Validation.Tier,
		},
	}

	err = p.client.XAdd(ctx, args).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}

	return nil
}

// Close closes the Redis connection.
func (p *StreamPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher discards everything. It is used when notifications are disabled.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, []*arbitrage.Opportunity) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }
