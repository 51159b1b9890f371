package domain

import (
	"context"
	"time"
)

// ChainReader 合约只读访问
type ChainReader interface {
	// GetPacket 读 packets(id)，零地址 creator 返回 NotFound
	GetPacket(ctx context.Context, packetID uint64) (*PacketState, error)
	// GetSettlement 交易 + 回执 + 解码后的事件
	GetSettlement(ctx context.Context, txHash string) (*Settlement, error)
	LatestBlock(ctx context.Context) (uint64, error)
	// FetchClaimed 区间内合约的 PacketClaimed 事件
	FetchClaimed(ctx context.Context, from, to uint64) ([]ClaimedEvent, error)
}

type PacketRepo interface {
	// CreatePacket packet_id 冲突时不插入，返回 false
	CreatePacket(ctx context.Context, p *Packet) (bool, error)
	GetByPublicID(ctx context.Context, publicID string) (*Packet, error)
	GetByPacketID(ctx context.Context, packetID uint64) (*Packet, error)
	ListByCreator(ctx context.Context, twitterID string, page, limit int) ([]CreatedItem, error)
}

type ClaimRepo interface {
	// Reserve 依赖唯一索引占坑，false 表示已经有人占了
	Reserve(ctx context.Context, c *Claim) (bool, error)
	Exists(ctx context.Context, packetID uint64, twitterID string) (bool, error)
	GetClaim(ctx context.Context, packetID uint64, twitterID string) (*Claim, error)
	SetSignature(ctx context.Context, id int64, signature string) error
	// SetSettlement 按 (packet, twitter id, address) 匹配，返回影响行数
	SetSettlement(ctx context.Context, packetID uint64, twitterID, address, amount, txHash string) (int64, error)
	// SettleUnsettled 后台补账用，同样按 (packet, twitter id, address) 匹配，只更新还没结算的记录
	SettleUnsettled(ctx context.Context, packetID uint64, twitterID, address, amount, txHash string) (int64, error)
	// Release 只删除签名仍为 pending 且未结算的记录
	Release(ctx context.Context, packetID uint64, twitterID string) (bool, error)
	ListByClaimer(ctx context.Context, twitterID string, page, limit int) ([]ClaimedItem, error)
}

type RateLimitRepo interface {
	Record(ctx context.Context, twitterID string, at time.Time) error
	CountSince(ctx context.Context, twitterID string, since time.Time) (int64, error)
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

type FollowCacheRepo interface {
	// GetFollow 没有缓存时返回 nil, nil
	GetFollow(ctx context.Context, userID, creatorID string) (*FollowCache, error)
	UpsertFollow(ctx context.Context, userID, creatorID string, follows bool, checkedAt time.Time) error
}

// Transactor 事务内的 ctx 会带上 tx，仓储方法自动复用
type Transactor interface {
	Transaction(ctx context.Context, fn func(txCtx context.Context) error) error
}
