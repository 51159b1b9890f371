package xredis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 锁是自己的就续期，原子执行
const renewScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("pexpire", KEYS[1], ARGV[2])
else
    return 0
end
`

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

// RedisLockMaster 多实例部署时选出唯一跑后台任务的节点
type RedisLockMaster struct {
	rdb *redis.Client
	id  string // 当前节点的唯一ID
}

func NewRedisLockMaster(rdb *redis.Client) *RedisLockMaster {
	return &RedisLockMaster{
		rdb: rdb,
		id:  fmt.Sprintf("%s-%d", uuid.NewString(), time.Now().UnixNano()),
	}
}

func (r *RedisLockMaster) ID() string { return r.id }

// TryAcquireMaster 抢到锁或者锁本来就是自己的(续期)返回 true
func (r *RedisLockMaster) TryAcquireMaster(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// SETNX 带过期时间，Master 挂了锁会自动释放
	ok, err := r.rdb.SetNX(ctx, key, r.id, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	renewed, err := r.rdb.Eval(ctx, renewScript, []string{key}, r.id, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return renewed == 1, nil
}

// Release 只删除自己持有的锁
func (r *RedisLockMaster) Release(ctx context.Context, key string) error {
	return r.rdb.Eval(ctx, releaseScript, []string{key}, r.id).Err()
}
