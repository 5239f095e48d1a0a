package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const checkTimeout = 2 * time.Second

// Pinger is anything that can be pinged with a context
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker wraps a Pinger in a health check function
func PingChecker(p Pinger) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return p.Ping(ctx)
	}
}

// DatabaseChecker returns a health check function for the PostgreSQL pool
func DatabaseChecker(pool *pgxpool.Pool) func() error {
	return PingChecker(pool)
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client redis.UniversalClient) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// BreakerState is implemented by circuit breakers that expose their state
type BreakerState interface {
	State() gobreaker.State
}

// BreakerChecker reports unhealthy while the breaker is open
func BreakerChecker(name string, b BreakerState) func() error {
	return func() error {
		if b.State() == gobreaker.StateOpen {
			return fmt.Errorf("%s circuit open", name)
		}
		return nil
	}
}
