package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrMiss = errors.New("cache miss")

// KV 简单键值缓存接口
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKV redis 实现
type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

const deviceAddressKeyPrefix = "device:addr:"
const deviceAddressCacheTTL = 5 * time.Minute

// CachedDeviceRepository 给 hash→逻辑地址查询加 redis 读穿缓存。
// 遥测接入是热路径，每条上报都要做一次映射。写路径直通底层仓储。
type CachedDeviceRepository struct {
	DeviceRepository
	kv KV
}

func NewCachedDeviceRepository(repo DeviceRepository, kv KV) *CachedDeviceRepository {
	return &CachedDeviceRepository{DeviceRepository: repo, kv: kv}
}

func (r *CachedDeviceRepository) LogicalAddressByHashKey(ctx context.Context, hashKey string) (string, error) {
	key := deviceAddressKeyPrefix + hashKey
	if cached, err := r.kv.Get(ctx, key); err == nil {
		return cached, nil
	}
	logicalAddress, err := r.DeviceRepository.LogicalAddressByHashKey(ctx, hashKey)
	if err != nil {
		return "", err
	}
	// 缓存写失败不影响查询结果
	_ = r.kv.Set(ctx, key, logicalAddress, deviceAddressCacheTTL)
	return logicalAddress, nil
}
