package distance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chalosawari/chalo-sawari/pkg/logger"
	"github.com/chalosawari/chalo-sawari/pkg/resilience"
	"go.uber.org/zap"
)

var (
	// ErrNoRoute means the provider knows no road between the two places
	ErrNoRoute = errors.New("no route between origin and destination")
	// ErrUnavailable means the provider could not be reached
	ErrUnavailable = errors.New("distance provider unavailable")
)

// Provider measures road distance between two free-form places
type Provider interface {
	RoadDistance(ctx context.Context, origin, destination string) (meters int, found bool, err error)
}

type lookup struct {
	meters int
	found  bool
}

// Service turns origin/destination pairs into kilometres behind a circuit
// breaker with a short retry.
type Service struct {
	provider Provider
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
}

// NewService creates a distance service. The breaker guards every provider call.
func NewService(provider Provider, breaker *resilience.CircuitBreaker) *Service {
	return &Service{
		provider: provider,
		breaker:  breaker,
		retry: resilience.RetryConfig{
			MaxAttempts:       2,
			InitialBackoff:    200 * time.Millisecond,
			MaxBackoff:        time.Second,
			BackoffMultiplier: 2,
			EnableJitter:      true,
		},
	}
}

// Distance returns the road distance in kilometres
func (s *Service) Distance(ctx context.Context, origin, destination string) (float64, error) {
	origin, destination = strings.TrimSpace(origin), strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return 0, fmt.Errorf("%w: origin and destination are required", ErrNoRoute)
	}

	result, err := resilience.RetryWithBreaker(ctx, s.retry, s.breaker, func(ctx context.Context) (interface{}, error) {
		meters, found, err := s.provider.RoadDistance(ctx, origin, destination)
		if err != nil {
			return nil, err
		}
		return lookup{meters: meters, found: found}, nil
	})
	if err != nil {
		logger.WithContext(ctx).Warn("distance lookup failed",
			zap.String("breaker", s.breaker.Name()),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	l := result.(lookup)
	if !l.found {
		return 0, ErrNoRoute
	}
	return float64(l.meters) / 1000, nil
}
