package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockBusy 同一资源上已有一次开通/下线流程在执行
var ErrLockBusy = errors.New("resource is locked by another reconciliation")

// Locker 按 key 串行化开通/下线流程。后端的 CheckHostAbsent/CreateHost
// 无法区分并发竞争和真实冲突，action 条件又是读-改-写，所以整个流程
// 必须拿到逻辑地址对应的租约后才能开始。
type Locker interface {
	// Acquire 获取租约，成功时返回释放函数；已被占用时返回 ErrLockBusy
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RedisLocker SETNX + TTL 租约实现。TTL 兜底：持有者崩溃后租约自动过期。
type RedisLocker struct {
	c *redis.Client
}

func NewRedisLocker(c *redis.Client) *RedisLocker { return &RedisLocker{c: c} }

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lockKey := "lock:" + key
	holder := uuid.NewString()
	ok, err := l.c.SetNX(ctx, lockKey, holder, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockBusy
	}
	release := func() {
		// 只释放自己的租约：TTL 过期后 key 可能已被其它持有者拿走
		val, err := l.c.Get(context.Background(), lockKey).Result()
		if err == nil && val == holder {
			l.c.Del(context.Background(), lockKey)
		}
	}
	return release, nil
}

// NoopLocker 单进程/离线 CLI 场景下的空实现
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	return func() {}, nil
}
