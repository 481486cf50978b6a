package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "gamelink:session:"

// RedisStorage 会话字段存放在 redis，多个客户端实例共享同一登录态
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client, prefix: redisKeyPrefix}
}

func (r *RedisStorage) key(k string) string {
	return r.prefix + k
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
