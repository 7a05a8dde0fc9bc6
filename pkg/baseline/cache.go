package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/observability"
	"github.com/retailops/shelfwise/pkg/redis"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// cacheEntry is the JSON shape stored in Redis. Found is stored explicitly so
// that negative lookups are cached too without conflating "miss" with a zero
// baseline.
type cacheEntry struct {
	Baseline sellthrough.Baseline `json:"baseline"`
	Found    bool                 `json:"found"`
}

// CachedProvider is a read-through Redis cache in front of another provider.
// Cache failures degrade to the underlying provider; they never fail a
// lookup on their own.
type CachedProvider struct {
	log    logrus.FieldLogger
	client *goredis.Client
	cfg    *redis.Config
	next   Provider
	ttl    time.Duration
}

// NewCachedProvider wraps next with a Redis cache.
func NewCachedProvider(log logrus.FieldLogger, client *goredis.Client, cfg *redis.Config, next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		log:    log.WithField("service", "baseline-cache"),
		client: client,
		cfg:    cfg,
		next:   next,
		ttl:    ttl,
	}
}

func (p *CachedProvider) key(storeID, categoryKey string) string {
	return p.cfg.PrefixKey("baseline:" + storeID + ":" + categoryKey)
}

// Lookup implements Provider.
func (p *CachedProvider) Lookup(ctx context.Context, storeID, categoryKey string) (sellthrough.Baseline, bool, error) {
	key := p.key(storeID, categoryKey)

	data, err := p.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var entry cacheEntry
		if unmarshalErr := json.Unmarshal([]byte(data), &entry); unmarshalErr == nil {
			observability.RecordBaselineLookup("cache_hit")
			return entry.Baseline, entry.Found, nil
		}
		// Corrupt entry: fall through to the source and overwrite.
		p.log.WithField("key", key).Warn("Dropping corrupt baseline cache entry")
	case errors.Is(err, goredis.Nil):
		// Cache miss.
	default:
		observability.RecordBaselineLookup("cache_error")
		p.log.WithError(err).Debug("Baseline cache read failed, using source provider")
	}

	b, found, err := p.next.Lookup(ctx, storeID, categoryKey)
	if err != nil {
		return sellthrough.Baseline{}, false, err
	}

	if data, marshalErr := json.Marshal(cacheEntry{Baseline: b, Found: found}); marshalErr == nil {
		if setErr := p.client.Set(ctx, key, data, p.ttl).Err(); setErr != nil {
			p.log.WithError(setErr).Debug("Baseline cache write failed")
		}
	}

	return b, found, nil
}

// Invalidate removes a cached entry.
func (p *CachedProvider) Invalidate(ctx context.Context, storeID, categoryKey string) error {
	return p.client.Del(ctx, p.key(storeID, categoryKey)).Err()
}

var _ Provider = (*CachedProvider)(nil)
