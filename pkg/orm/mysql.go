package orm

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`                   // 连接字符串
	MaxIdle     int    `mapstructure:"max_idle" yaml:"max_idle"`         // 最大空闲连接
	MaxOpen     int    `mapstructure:"max_open" yaml:"max_open"`         // 最大打开连接
	MaxLifetime int    `mapstructure:"max_lifetime" yaml:"max_lifetime"` // 连接存活秒数
	Debug       bool   `mapstructure:"debug" yaml:"debug"`               // 打印 SQL
}

// NewMySQL 初始化 GORM
func NewMySQL(c *Config) *gorm.DB {
	level := logger.Warn
	if c.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(mysql.Open(c.DSN), &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}

	// 连接池
	sqlDB.SetMaxIdleConns(c.MaxIdle)
	sqlDB.SetMaxOpenConns(c.MaxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(c.MaxLifetime) * time.Second)

	return db
}
