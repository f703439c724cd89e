package exposure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang/snappy"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
)

const redisKeyPrefix = "ccart:exposure:"

// RedisClient is the subset of *redis.Client used by RedisSource.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NewRedisClient connects to the Redis instance at url
// ("redis://host:port/db").
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// RedisSource shares exposure tables between service instances. Tables are
// stored as snappy-compressed JSON with a TTL. Redis failures are logged and
// fall through to the wrapped source.
type RedisSource struct {
	inner   domain.ExposureSource
	rdb     RedisClient
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRedisSource creates a Redis cache decorator around an exposure source.
func NewRedisSource(inner domain.ExposureSource, rdb RedisClient, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *RedisSource {
	return &RedisSource{inner: inner, rdb: rdb, ttl: ttl, metrics: metrics, logger: logger}
}

func (r *RedisSource) Exposure(ctx context.Context, country string) ([]domain.ExposurePoint, error) {
	key := redisKeyPrefix + strings.ToUpper(country)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		points, decErr := decodePoints(raw)
		if decErr == nil {
			r.metrics.ExposureCache.WithLabelValues("redis", "hit").Inc()
			return points, nil
		}
		r.logger.Warn("discarding corrupt exposure cache entry", "key", key, "error", decErr)
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn("exposure cache get failed", "key", key, "error", err)
	}
	r.metrics.ExposureCache.WithLabelValues("redis", "miss").Inc()

	points, err := r.inner.Exposure(ctx, country)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return points, nil
	}

	data, err := encodePoints(points)
	if err != nil {
		r.logger.Warn("encode exposure cache entry failed", "key", key, "error", err)
		return points, nil
	}
	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("exposure cache set failed", "key", key, "error", err)
	}
	return points, nil
}

func encodePoints(points []domain.ExposurePoint) ([]byte, error) {
	data, err := json.Marshal(points)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

func decodePoints(data []byte) ([]domain.ExposurePoint, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	var points []domain.ExposurePoint
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, err
	}
	return points, nil
}
