// Package redis implements the completion gate on a Redis counter.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tessellary/casework-api/internal/gate"
)

// DefaultCounterTTL bounds how long counter entries survive for a request
// that never completes.
const DefaultCounterTTL = 24 * time.Hour

// Common errors
var (
	ErrNilClient         = errors.New("redis client cannot be nil")
	ErrNilExpectedSource = errors.New("expected source cannot be nil")
	ErrNilLogger         = errors.New("logger cannot be nil")
)

// arriveScript increments the received counter and reads the cached
// expected total in one atomic step, so the completeness comparison uses
// a count no other arrival can observe. The TTL is attached on the first
// increment only.
var arriveScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return {count, redis.call('GET', KEYS[2])}
`)

// CounterGate implements gate.CompletionGate using a shared Redis
// instance. Entries are keyed by request ID and carry a TTL so that a
// request that stalls below its expected total cannot leak counter state
// forever.
type CounterGate struct {
	client   *redis.Client
	expected gate.ExpectedSource
	ttl      time.Duration
	logger   *slog.Logger
}

// NewCounterGate creates a CounterGate. A non-positive ttl falls back to
// DefaultCounterTTL.
func NewCounterGate(
	client *redis.Client,
	expected gate.ExpectedSource,
	ttl time.Duration,
	logger *slog.Logger,
) (*CounterGate, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if expected == nil {
		return nil, ErrNilExpectedSource
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if ttl <= 0 {
		ttl = DefaultCounterTTL
	}

	return &CounterGate{
		client:   client,
		expected: expected,
		ttl:      ttl,
		logger:   logger.With("component", "completion_gate"),
	}, nil
}

var _ gate.CompletionGate = (*CounterGate)(nil)

// Arrive implements gate.CompletionGate.
//
// The increment and the expected-total read happen in one script. When the
// count reaches the expected total, the caller claims the win by deleting
// the received key: Redis reports how many keys a DEL removed, so exactly
// one concurrent arrival observes the deletion and becomes the winner.
func (g *CounterGate) Arrive(ctx context.Context, requestID string) (gate.Arrival, error) {
	receivedKey := receivedKey(requestID)
	expectedKey := expectedKey(requestID)

	ttlSeconds := int64(g.ttl / time.Second)
	res, err := arriveScript.Run(ctx, g.client, []string{receivedKey, expectedKey}, ttlSeconds).Slice()
	if err != nil {
		return gate.Arrival{}, fmt.Errorf("failed to increment result counter: %w", err)
	}
	// A Lua table reply is truncated at the first nil, so a missing
	// expected-total entry shortens the reply to one element.
	if len(res) == 0 || len(res) > 2 {
		return gate.Arrival{}, fmt.Errorf("unexpected counter script reply of length %d", len(res))
	}

	count, ok := res[0].(int64)
	if !ok {
		return gate.Arrival{}, fmt.Errorf("unexpected counter reply type %T", res[0])
	}

	var cached interface{}
	if len(res) == 2 {
		cached = res[1]
	}

	expected, err := g.resolveExpected(ctx, requestID, expectedKey, cached)
	if err != nil {
		return gate.Arrival{}, err
	}

	arrival := gate.Arrival{Count: count, Expected: expected}
	if count < expected {
		return arrival, nil
	}

	// Claim the win. DEL returns the number of keys removed; only the
	// first arrival past the threshold sees 1 here, every concurrent
	// rival sees 0.
	deleted, err := g.client.Del(ctx, receivedKey).Result()
	if err != nil {
		return arrival, fmt.Errorf("failed to claim completion for request %s: %w", requestID, err)
	}
	if deleted == 0 {
		return arrival, nil
	}

	arrival.Complete = true
	if err := g.client.Del(ctx, expectedKey).Err(); err != nil {
		// The expected key still has a TTL; losing this delete only
		// delays its removal.
		g.logger.Warn("failed to delete expected-total key",
			"request_id", requestID,
			"error", err)
	}

	g.logger.Info("request completed",
		"request_id", requestID,
		"received", count,
		"expected", expected)

	return arrival, nil
}

// resolveExpected turns the script's cached expected-total reply into a
// number, fetching and caching it from the source when absent. SET NX
// keeps the first cached value if two first-arrivals race.
func (g *CounterGate) resolveExpected(
	ctx context.Context,
	requestID, expectedKey string,
	cached interface{},
) (int64, error) {
	if raw, ok := cached.(string); ok {
		expected, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt expected-total entry %q for request %s: %w", raw, requestID, err)
		}
		return expected, nil
	}

	expected, err := g.expected.ExpectedTotal(ctx, requestID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve expected total for request %s: %w", requestID, err)
	}

	if err := g.client.SetNX(ctx, expectedKey, expected, g.ttl).Err(); err != nil {
		g.logger.Warn("failed to cache expected total",
			"request_id", requestID,
			"error", err)
	}

	return expected, nil
}

func receivedKey(requestID string) string {
	return fmt.Sprintf("request:%s:received", requestID)
}

func expectedKey(requestID string) string {
	return fmt.Sprintf("request:%s:expected", requestID)
}
