package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"presence/internal/ledger"
)

// TrendCache keeps per-group daily redemption counters in Redis so the
// group trend series can be answered without scanning the ledger. The
// worker bumps a counter for every committed redemption; the ledger stays
// the source of truth and any missing day falls back to a direct count.
type TrendCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTrendCache wraps the Redis client. ttl bounds how long a day's counter
// survives after its first bump; zero keeps counters forever.
func NewTrendCache(client *redis.Client, ttl time.Duration) *TrendCache {
	return &TrendCache{client: client, ttl: ttl}
}

func trendKey(groupID string, day time.Time) string {
	return "trend:" + groupID + ":" + ledger.Day(day).Format("2006-01-02")
}

// Bump increments the group's counter for the record's calendar day,
// attaching the retention TTL on first increment.
func (c *TrendCache) Bump(ctx context.Context, groupID string, day time.Time) error {
	key := trendKey(groupID, day)
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 && c.ttl > 0 {
		return c.client.Expire(ctx, key, c.ttl).Err()
	}
	return nil
}

// Counts reads the cached counters for the given days in one round trip.
// ok is false when any day's counter is missing or unreadable, telling the
// caller to fall back to the ledger.
func (c *TrendCache) Counts(ctx context.Context, groupID string, days []time.Time) ([]ledger.DayCount, bool, error) {
	if len(days) == 0 {
		return nil, true, nil
	}
	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = trendKey(groupID, d)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, false, err
	}
	return parseCounts(days, vals)
}

// parseCounts pairs MGET results with their days. A nil or non-numeric
// value marks the whole read as a miss.
func parseCounts(days []time.Time, vals []interface{}) ([]ledger.DayCount, bool, error) {
	out := make([]ledger.DayCount, len(days))
	for i, v := range vals {
		s, isStr := v.(string)
		if !isStr {
			return nil, false, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, false, nil
		}
		out[i] = ledger.DayCount{Day: ledger.Day(days[i]), Count: n}
	}
	return out, true, nil
}
