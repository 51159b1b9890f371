package config

import (
	"strings"
	"time"

	"redpacket.com/pkg/orm"
	"redpacket.com/pkg/xredis"
)

// 总配置
type Config struct {
	Name        string            `mapstructure:"name" yaml:"name"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	MySQL       orm.Config        `mapstructure:"mysql" yaml:"mysql"`
	Redis       xredis.Config     `mapstructure:"redis" yaml:"redis"`
	Trace       TraceConfig       `mapstructure:"trace" yaml:"trace"`
	Chain       ChainConfig       `mapstructure:"chain" yaml:"chain"`
	Signer      SignerConfig      `mapstructure:"signer" yaml:"signer"`
	Twitter     TwitterConfig     `mapstructure:"twitter" yaml:"twitter"`
	AntiBot     AntiBotConfig     `mapstructure:"antibot" yaml:"antibot"`
	FollowCache FollowCacheConfig `mapstructure:"follow_cache" yaml:"follow_cache"`
	HandleCache HandleCacheConfig `mapstructure:"handle_cache" yaml:"handle_cache"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	Admin       AdminConfig       `mapstructure:"admin" yaml:"admin"`
	Geo         GeoConfig         `mapstructure:"geo" yaml:"geo"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile" yaml:"reconcile"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// HTTP 配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	RateLimitRPS float64       `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateBurst    int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	CORSOrigins  []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type TraceConfig struct {
	Host        string  `mapstructure:"host" yaml:"host"`
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}

type ChainConfig struct {
	RPCURL        string `mapstructure:"rpc_url" yaml:"rpc_url"`
	ChainID       int64  `mapstructure:"chain_id" yaml:"chain_id"`
	Contract      string `mapstructure:"contract" yaml:"contract"`
	TokenDecimals int32  `mapstructure:"token_decimals" yaml:"token_decimals"`
}

// SignerConfig 私钥和助记词二选一，私钥优先
type SignerConfig struct {
	PrivateKey   string `mapstructure:"private_key" yaml:"private_key"`
	Mnemonic     string `mapstructure:"mnemonic" yaml:"mnemonic"`
	AccountIndex uint32 `mapstructure:"account_index" yaml:"account_index"`
	MaxAttempts  int    `mapstructure:"max_attempts" yaml:"max_attempts"`
}

type TwitterConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	BearerToken    string        `mapstructure:"bearer_token" yaml:"bearer_token"`
	PlatformHandle string        `mapstructure:"platform_handle" yaml:"platform_handle"`
	PlatformUserID string        `mapstructure:"platform_user_id" yaml:"platform_user_id"`
	PageSize       int           `mapstructure:"page_size" yaml:"page_size"`
	MaxPages       int           `mapstructure:"max_pages" yaml:"max_pages"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type AntiBotConfig struct {
	MinAccountAgeDays int   `mapstructure:"min_account_age_days" yaml:"min_account_age_days"`
	MinFollowers      int64 `mapstructure:"min_followers" yaml:"min_followers"`
	MaxClaimsPerDay   int64 `mapstructure:"max_claims_per_day" yaml:"max_claims_per_day"`
}

type FollowCacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type HandleCacheConfig struct {
	Driver string        `mapstructure:"driver" yaml:"driver"` // memory | redis
	Size   int           `mapstructure:"size" yaml:"size"`
	TTL    time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string `mapstructure:"issuer" yaml:"issuer"`
}

type AdminConfig struct {
	Token string `mapstructure:"token" yaml:"token"`
}

type GeoConfig struct {
	Header  string   `mapstructure:"header" yaml:"header"`
	Blocked []string `mapstructure:"blocked" yaml:"blocked"`
}

type ReconcileConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
	BlockWindow   int64         `mapstructure:"block_window" yaml:"block_window"`
	LockTTL       time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	RateLimitKeep time.Duration `mapstructure:"rate_limit_keep" yaml:"rate_limit_keep"`
}

type MetricsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Normalize 补齐默认值
func (c *Config) Normalize() {
	if c.Name == "" {
		c.Name = "redpacket-service"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	// 领取接口要翻页查关注列表，写超时给足
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 60 * time.Second
	}
	if c.HTTP.RateLimitRPS <= 0 {
		c.HTTP.RateLimitRPS = 20
	}
	if c.HTTP.RateBurst <= 0 {
		c.HTTP.RateBurst = 40
	}
	if c.Chain.TokenDecimals <= 0 {
		c.Chain.TokenDecimals = 6
	}
	c.Chain.Contract = strings.ToLower(strings.TrimSpace(c.Chain.Contract))
	if c.Signer.MaxAttempts <= 0 {
		c.Signer.MaxAttempts = 3
	}
	if c.Twitter.BaseURL == "" {
		c.Twitter.BaseURL = "https://api.twitter.com"
	}
	if c.Twitter.PlatformHandle == "" {
		c.Twitter.PlatformHandle = "coinbase_au"
	}
	if c.Twitter.PageSize <= 0 || c.Twitter.PageSize > 1000 {
		c.Twitter.PageSize = 1000
	}
	if c.Twitter.MaxPages <= 0 {
		c.Twitter.MaxPages = 20
	}
	if c.Twitter.Timeout <= 0 {
		c.Twitter.Timeout = 10 * time.Second
	}
	if c.AntiBot.MinAccountAgeDays <= 0 {
		c.AntiBot.MinAccountAgeDays = 30
	}
	if c.AntiBot.MinFollowers <= 0 {
		c.AntiBot.MinFollowers = 10
	}
	if c.AntiBot.MaxClaimsPerDay <= 0 {
		c.AntiBot.MaxClaimsPerDay = 10
	}
	if c.FollowCache.TTL <= 0 {
		c.FollowCache.TTL = 15 * time.Minute
	}
	if c.HandleCache.Driver == "" {
		c.HandleCache.Driver = "memory"
	}
	if c.HandleCache.Size <= 0 {
		c.HandleCache.Size = 1024
	}
	if c.HandleCache.TTL <= 0 {
		c.HandleCache.TTL = 24 * time.Hour
	}
	if c.Geo.Header == "" {
		c.Geo.Header = "X-Vercel-IP-Country"
	}
	if c.Geo.Blocked == nil {
		c.Geo.Blocked = []string{"CU", "IR", "KP", "SY", "RU"}
	}
	if c.Reconcile.Interval <= 0 {
		c.Reconcile.Interval = time.Minute
	}
	if c.Reconcile.BlockWindow <= 0 {
		c.Reconcile.BlockWindow = 2000
	}
	if c.Reconcile.LockTTL <= 0 {
		c.Reconcile.LockTTL = 2 * c.Reconcile.Interval
	}
	if c.Reconcile.RateLimitKeep <= 0 {
		c.Reconcile.RateLimitKeep = 48 * time.Hour
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}
