package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprom "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
	"redpacket.com/internal/redpacket/config"
	"redpacket.com/internal/redpacket/handler"
	"redpacket.com/internal/redpacket/http/router"
	"redpacket.com/pkg/common"
	"redpacket.com/pkg/middleware"
	"redpacket.com/pkg/ratelimit"
)

// Services 路由依赖的业务层
type Services struct {
	Packets    handler.PacketService
	Claims     handler.ClaimService
	Reconciler handler.Reconciler
	// Ready 健康检查，nil 表示总是就绪
	Ready func(ctx context.Context) error
}

// NewEngine 组装中间件和路由，单独拆出来方便测试
func NewEngine(ctx context.Context, cfg *config.Config, svc Services) *gin.Engine {
	// 按 IP 限流
	store := ratelimit.NewStore(rate.Limit(cfg.HTTP.RateLimitRPS), cfg.HTTP.RateBurst, 10*time.Minute)
	store.StartJanitor(ctx, time.Minute)

	r := gin.New()
	// 监控
	p := ginprom.NewPrometheus("redpacket")
	if cfg.Metrics.Path != "" {
		p.MetricsPath = cfg.Metrics.Path
	}
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		// 用路由模板做 label，避免 uuid 撑爆基数
		if route := c.FullPath(); route != "" {
			return route
		}
		return "unknown"
	}
	p.Use(r)

	r.Use(
		otelgin.Middleware(cfg.Name),
		middleware.ReqId(),
		cors.New(corsConfig(cfg.HTTP.CORSOrigins)),
		middleware.Recover(),
		middleware.RateLimit(store),
	)

	r.GET("/healthz", func(c *gin.Context) {
		if svc.Ready != nil {
			if err := svc.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", middleware.GeoBlock(cfg.Geo.Header, cfg.Geo.Blocked))
	auth := middleware.JWTAuth(middleware.AuthConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
	})
	router.Packet(api, auth,
		&handler.Packet{Packets: svc.Packets},
		&handler.Claim{Claims: svc.Claims, Reconciler: svc.Reconciler},
	)
	router.Admin(api, middleware.AdminToken(cfg.Admin.Token), &handler.Admin{Packets: svc.Packets})
	return r
}

func NewServer(ctx context.Context, cfg *config.Config, svc Services) *http.Server {
	return &http.Server{
		Addr:           cfg.HTTP.Addr,
		Handler:        NewEngine(ctx, cfg, svc),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", middleware.HeaderAdminToken, common.HeaderRequestID)
	return c
}
