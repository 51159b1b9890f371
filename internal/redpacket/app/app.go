package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"redpacket.com/internal/redpacket/chain/eth"
	rpConfig "redpacket.com/internal/redpacket/config"
	rphttp "redpacket.com/internal/redpacket/http"
	"redpacket.com/internal/redpacket/job"
	"redpacket.com/internal/redpacket/repo/mysql"
	"redpacket.com/internal/redpacket/service"
	"redpacket.com/internal/redpacket/signer"
	"redpacket.com/internal/redpacket/social/twitter"
	vipConfig "redpacket.com/pkg/config"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/metrics"
	"redpacket.com/pkg/orm"
	"redpacket.com/pkg/ratelimit"
	"redpacket.com/pkg/safe"
	"redpacket.com/pkg/trace"
	"redpacket.com/pkg/xredis"
)

const handleCachePrefix = "redpacket:x:handle:"

type App struct {
	ctx context.Context
	cfg *rpConfig.Config

	db            *gorm.DB
	rdb           *redis.Client
	chain         *eth.Adapter
	traceShutdown func(context.Context) error

	services rphttp.Services
	jobs     *job.Runner
}

func New(configName string) (*App, error) {
	if configName == "" {
		configName = "redpacket-service"
	}
	// 各组件启动时就拷走了配置值，改配置需要重启
	cfg := &rpConfig.Config{}
	if _, err := vipConfig.Load(configName, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &App{cfg: cfg}, nil
}

// StartService 初始化所有依赖，返回的 cleanUp 按相反顺序释放
func (app *App) StartService(ctx context.Context) (func(), error) {
	app.ctx = ctx
	cfg := app.cfg

	logger.InitWithOptions(cfg.Name, logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Console:    true,
	})
	metrics.MustRegister()

	if err := app.startTrace(); err != nil {
		return nil, err
	}
	if err := app.startStorage(); err != nil {
		return nil, err
	}
	if err := app.startServices(); err != nil {
		return nil, err
	}

	cleanUp := func() {
		if app.chain != nil {
			app.chain.Close()
		}
		if app.rdb != nil {
			_ = app.rdb.Close()
		}
		if app.db != nil {
			if sqlDB, err := app.db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if app.traceShutdown != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = app.traceShutdown(shutdownCtx)
			cancel()
		}
		logger.Sync()
	}
	return cleanUp, nil
}

func (app *App) StartHttp() *http.Server {
	return rphttp.NewServer(app.ctx, app.cfg, app.services)
}

// StartJobs 后台补账和清理，reconcile.enabled 关闭时什么都不做
func (app *App) StartJobs() {
	if app.jobs == nil {
		return
	}
	safe.GoCtx(app.ctx, app.jobs.Start)
}

func (app *App) startTrace() error {
	shutdown, err := trace.InitTrace(app.cfg.Name, app.cfg.Trace.Host, app.cfg.Trace.SampleRatio)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	app.traceShutdown = shutdown
	return nil
}

func (app *App) startStorage() error {
	cfg := app.cfg
	if cfg.MySQL.DSN == "" {
		return errors.New("mysql.dsn is required")
	}
	app.db = orm.NewMySQL(&cfg.MySQL)
	repo := mysql.New(app.db)
	if err := repo.AutoMigrate(app.ctx); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if sqlDB, err := app.db.DB(); err == nil {
		metrics.ObserveDBStats(app.ctx, sqlDB)
	}

	// redis 可选：没有就用内存缓存，后台任务按单实例跑
	if cfg.Redis.Addr != "" {
		rdb, err := xredis.NewRedis(app.ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		app.rdb = rdb
		metrics.ObserveRedisStats(app.ctx, rdb)
	}
	return nil
}

func (app *App) startServices() error {
	cfg := app.cfg
	repo := mysql.New(app.db)

	chain, err := eth.Dial(cfg.Chain.RPCURL, cfg.Chain.Contract)
	if err != nil {
		return fmt.Errorf("dial chain rpc: %w", err)
	}
	app.chain = chain

	key, err := signer.LoadKey(signer.KeySource{
		PrivateKey:   cfg.Signer.PrivateKey,
		Mnemonic:     cfg.Signer.Mnemonic,
		AccountIndex: cfg.Signer.AccountIndex,
	})
	if err != nil {
		return fmt.Errorf("load signer key: %w", err)
	}
	vs, err := signer.New(key, cfg.Chain.ChainID, cfg.Chain.Contract)
	if err != nil {
		return err
	}
	logger.Info(app.ctx, "voucher signer ready", zap.String("address", vs.Address().Hex()))

	// X API
	breakers := ratelimit.NewManager(ratelimit.Rule{
		TripConsecutiveFailures: 5,
		Timeout:                 30 * time.Second,
	}, nil, twitter.BreakerClassifier)
	breakers.OnStateChange(func(name string, from, to gobreaker.State) {
		metrics.CBState.WithLabelValues(name, from.String()).Set(0)
		metrics.CBState.WithLabelValues(name, to.String()).Set(1)
		logger.Warn(app.ctx, "circuit breaker state changed",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	})
	client := twitter.NewClient(twitter.Options{
		BaseURL:  cfg.Twitter.BaseURL,
		PageSize: cfg.Twitter.PageSize,
		Timeout:  cfg.Twitter.Timeout,
		Breakers: breakers,
	})
	handles, err := app.handleCache()
	if err != nil {
		return err
	}
	follow := service.NewFollowGate(
		twitter.NewFollowVerifier(client, repo, cfg.FollowCache.TTL, cfg.Twitter.MaxPages),
		twitter.NewHandleResolver(client, handles),
		cfg.Twitter.PlatformHandle,
		cfg.Twitter.PlatformUserID,
	)

	gate := service.NewGate(repo, repo, service.EligibilityRules{
		MinAccountAge:   time.Duration(cfg.AntiBot.MinAccountAgeDays) * 24 * time.Hour,
		MinFollowers:    cfg.AntiBot.MinFollowers,
		MaxClaimsPerDay: cfg.AntiBot.MaxClaimsPerDay,
		Window:          24 * time.Hour,
	})
	claims := service.NewClaimService(repo, repo, repo, repo, chain, gate, follow, vs, service.ClaimOptions{
		FallbackToken: cfg.Twitter.BearerToken,
		SignAttempts:  cfg.Signer.MaxAttempts,
	})
	reconciler := service.NewReconciler(repo, repo, chain, cfg.Chain.Contract, cfg.Chain.TokenDecimals)
	packets := service.NewPacketService(repo, repo, chain, cfg.Chain.TokenDecimals)

	app.services = rphttp.Services{
		Packets:    packets,
		Claims:     claims,
		Reconciler: reconciler,
		Ready:      app.ready,
	}

	if cfg.Reconcile.Enabled {
		var leader job.Leader
		if app.rdb != nil {
			leader = xredis.NewRedisLockMaster(app.rdb)
		}
		app.jobs = job.NewRunner(job.Config{
			Interval:      cfg.Reconcile.Interval,
			BlockWindow:   uint64(cfg.Reconcile.BlockWindow),
			LockTTL:       cfg.Reconcile.LockTTL,
			RateLimitKeep: cfg.Reconcile.RateLimitKeep,
		}, leader, chain, reconciler, repo)
	}
	return nil
}

func (app *App) handleCache() (twitter.HandleCache, error) {
	hc := app.cfg.HandleCache
	if hc.Driver == "redis" {
		if app.rdb == nil {
			logger.Warn(app.ctx, "handle_cache.driver=redis but redis.addr is empty, falling back to memory",
				zap.String("service", app.cfg.Name))
		} else {
			return twitter.NewRedisCache(app.rdb, handleCachePrefix, hc.TTL), nil
		}
	}
	return twitter.NewLRUCache(hc.Size, hc.TTL)
}

// ready 数据库必须可用，redis 配了就必须可用
func (app *App) ready(ctx context.Context) error {
	sqlDB, err := app.db.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	if app.rdb != nil {
		if err := app.rdb.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
