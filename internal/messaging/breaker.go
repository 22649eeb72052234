package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Additional-Code/florex/internal/config"
)

// ErrPublishUnavailable is returned while the publish breaker rejects calls.
var ErrPublishUnavailable = errors.New("publisher unavailable")

// breakerClient guards Publish with a circuit breaker so a broker outage
// fails fast instead of stalling every caller. Consume is passed through.
type breakerClient struct {
	Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreakerClient wraps next so Publish trips open after
// cfg.ConsecutiveFailures consecutive errors.
func NewBreakerClient(next Client, cfg config.Breaker, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        "publish:" + next.Topic(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &breakerClient{Client: next, cb: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

func (b *breakerClient) Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.Client.Publish(ctx, key, value, headers)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrPublishUnavailable, err)
	}
	return err
}
