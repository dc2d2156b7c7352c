package redisstore

import (
	"context"

	"github.com/jrsteele09/mento-client/credentials"
	internalerrors "github.com/jrsteele09/mento-client/internal/errors"
	"github.com/jrsteele09/mento-client/internal/utils"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ credentials.Store = (*RedisStore)(nil)

// DefaultPrefix namespaces credential keys inside a shared redis database.
const DefaultPrefix = "mento:credentials:"

// RedisStore keeps credentials in redis. It suits shared dev machines and
// integration environments where several client processes share one session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// New wraps an existing client. An empty prefix selects DefaultPrefix.
func New(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: utils.FirstNonEmpty(prefix, DefaultPrefix),
	}
}

// NewFromURL parses a redis:// URL and verifies the server is reachable.
func NewFromURL(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "redisstore.NewFromURL")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, internalerrors.Wrapf(internalerrors.ErrStoreUnavailable, "redis ping: %v", err)
	}
	return New(client, prefix), nil
}

func (rs *RedisStore) key(k string) string {
	return rs.prefix + k
}

func (rs *RedisStore) Get(ctx context.Context, key string) (*string, error) {
	v, err := rs.client.Get(ctx, rs.key(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redisstore get")
	}
	return utils.Ptr(v), nil
}

func (rs *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := rs.client.Set(ctx, rs.key(key), value, 0).Err(); err != nil {
		return errors.Wrap(err, "redisstore set")
	}
	return nil
}

func (rs *RedisStore) Remove(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.key(key)).Err(); err != nil {
		return errors.Wrap(err, "redisstore remove")
	}
	return nil
}

func (rs *RedisStore) RemoveAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, rs.key(k))
	}
	if err := rs.client.Del(ctx, prefixed...).Err(); err != nil {
		return errors.Wrap(err, "redisstore remove all")
	}
	return nil
}

// Close releases the underlying client.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
