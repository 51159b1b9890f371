package mysql

import (
	"context"

	"gorm.io/gorm"
	"redpacket.com/internal/redpacket/domain"
)

type txKey struct{}

// Repo 同时实现 packets / claims / rate_limits / follow_cache 四个仓储
type Repo struct {
	db *gorm.DB
}

var (
	_ domain.PacketRepo      = (*Repo)(nil)
	_ domain.ClaimRepo       = (*Repo)(nil)
	_ domain.RateLimitRepo   = (*Repo)(nil)
	_ domain.FollowCacheRepo = (*Repo)(nil)
	_ domain.Transactor      = (*Repo)(nil)
)

func New(db *gorm.DB) *Repo { return &Repo{db: db} }

// AutoMigrate 建表和唯一索引，唯一索引是领取去重的最终保障
func (r *Repo) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&domain.Packet{},
		&domain.Claim{},
		&domain.RateLimit{},
		&domain.FollowCache{},
	)
}

func (r *Repo) Transaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		return fn(txCtx)
	})
}

func (r *Repo) getDb(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}
