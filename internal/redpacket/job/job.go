package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/safe"
)

// LockKey 多实例只有一个节点跑后台任务
const LockKey = "redpacket:job:master"

type Leader interface {
	TryAcquireMaster(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type ChainHead interface {
	LatestBlock(ctx context.Context) (uint64, error)
}

type Backfiller interface {
	Backfill(ctx context.Context, from, to uint64) (int64, error)
}

type Pruner interface {
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

type Config struct {
	Interval      time.Duration
	BlockWindow   uint64
	LockTTL       time.Duration
	RateLimitKeep time.Duration
}

// Runner 定时补账 + 清理过期限流记录
type Runner struct {
	cfg      Config
	leader   Leader
	head     ChainHead
	backfill Backfiller
	pruner   Pruner
	now      func() time.Time

	mu     sync.Mutex
	cursor uint64 // 已经扫过的最高区块
}

// NewRunner leader 为 nil 时认为自己就是唯一节点
func NewRunner(cfg Config, leader Leader, head ChainHead, backfill Backfiller, pruner Pruner) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BlockWindow == 0 {
		cfg.BlockWindow = 2000
	}
	if cfg.LockTTL < cfg.Interval {
		// 锁要能撑过一个周期，否则 master 会来回切
		cfg.LockTTL = 2 * cfg.Interval
	}
	if cfg.RateLimitKeep <= 0 {
		cfg.RateLimitKeep = 48 * time.Hour
	}
	return &Runner{
		cfg:      cfg,
		leader:   leader,
		head:     head,
		backfill: backfill,
		pruner:   pruner,
		now:      time.Now,
	}
}

// Start 阻塞到 ctx 结束
func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	safe.GoCtx(ctx, func(ctx context.Context) {
		defer wg.Done()
		r.master(ctx)
	})
	logger.Info(ctx, "background jobs started", zap.Duration("interval", r.cfg.Interval))
	<-ctx.Done()
	wg.Wait()

	if r.leader != nil {
		// ctx 已经取消，换一个短超时的释放锁
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := r.leader.Release(releaseCtx, LockKey); err != nil {
			logger.Warn(releaseCtx, "release job lock failed", zap.Error(err))
		}
	}
	logger.Info(ctx, "background jobs stopped")
}

func (r *Runner) master(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.isLeader(ctx) {
				continue
			}
			if err := r.RunOnce(ctx); err != nil {
				logger.Error(ctx, "background job round failed", zap.Error(err))
			}
		}
	}
}

func (r *Runner) isLeader(ctx context.Context) bool {
	if r.leader == nil {
		return true
	}
	ok, err := r.leader.TryAcquireMaster(ctx, LockKey, r.cfg.LockTTL)
	if err != nil {
		logger.Warn(ctx, "acquire job lock failed", zap.Error(err))
		return false
	}
	return ok
}

// RunOnce 补账失败不影响清理
func (r *Runner) RunOnce(ctx context.Context) error {
	backfillErr := r.backfillRound(ctx)

	if r.pruner != nil {
		n, err := r.pruner.PruneBefore(ctx, r.now().Add(-r.cfg.RateLimitKeep))
		if err != nil {
			logger.Error(ctx, "prune rate limits failed", zap.Error(err))
		} else if n > 0 {
			logger.Info(ctx, "pruned rate limit entries", zap.Int64("deleted", n))
		}
	}
	return backfillErr
}

func (r *Runner) backfillRound(ctx context.Context) error {
	if r.head == nil || r.backfill == nil {
		return nil
	}
	latest, err := r.head.LatestBlock(ctx)
	if err != nil {
		return err
	}
	from, ok := r.nextRange(latest)
	if !ok {
		return nil
	}
	if _, err := r.backfill.Backfill(ctx, from, latest); err != nil {
		return err
	}

	r.mu.Lock()
	r.cursor = latest
	r.mu.Unlock()
	return nil
}

// nextRange 从上次扫到的位置继续，最多回看 BlockWindow 个区块
func (r *Runner) nextRange(latest uint64) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var floor uint64
	if latest > r.cfg.BlockWindow {
		floor = latest - r.cfg.BlockWindow
	}
	from := floor
	if r.cursor > 0 && r.cursor+1 > from {
		from = r.cursor + 1
	}
	if from > latest {
		return 0, false
	}
	return from, true
}
