package domain

import "time"

// SignaturePending 占位签名，插入成功后同步替换成真实签名
const SignaturePending = "pending"

// Claim 每个 (packet_id, claimer_twitter_id) 最多一条，由唯一索引保证
type Claim struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement"`
	PacketID             uint64    `gorm:"column:packet_id;uniqueIndex:uniq_packet_claimer,priority:1"`
	ClaimerTwitterID     string    `gorm:"column:claimer_twitter_id;size:64;uniqueIndex:uniq_packet_claimer,priority:2;index:idx_claimer_twitter"`
	ClaimerAddress       string    `gorm:"column:claimer_address;size:42"`
	ClaimerTwitterHandle string    `gorm:"column:claimer_twitter_handle;size:64"`
	Nonce                string    `gorm:"column:nonce;size:80"`
	Signature            string    `gorm:"column:signature;size:132"`
	Amount               *string   `gorm:"column:amount;size:80"`
	TxHash               *string   `gorm:"column:tx_hash;size:66"`
	ClaimedAt            time.Time `gorm:"column:claimed_at;autoCreateTime"`
}

func (Claim) TableName() string {
	return "claims"
}

func (c *Claim) IsSigned() bool {
	return c.Signature != "" && c.Signature != SignaturePending
}

func (c *Claim) IsSettled() bool {
	return c.TxHash != nil && *c.TxHash != ""
}

// RateLimit 只追加，按 24h 滑动窗口计数
type RateLimit struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	TwitterUserID string    `gorm:"column:twitter_user_id;size:64;index:idx_rl_user_time,priority:1"`
	ClaimedAt     time.Time `gorm:"column:claimed_at;index:idx_rl_user_time,priority:2"`
}

func (RateLimit) TableName() string {
	return "rate_limits"
}

// ClaimVoucher 领取成功返回给前端，前端拿去调合约 claim
type ClaimVoucher struct {
	Signature     string `json:"signature"`
	Nonce         string `json:"nonce"`
	TwitterUserID string `json:"twitterUserId"`
}

// ClaimedItem 我领过的红包
type ClaimedItem struct {
	PacketID             uint64    `json:"packetId"`
	ClaimerAddress       string    `json:"claimerAddress"`
	Amount               *string   `json:"amount"`
	ClaimedAt            time.Time `json:"claimedAt"`
	CreatorTwitterHandle *string   `json:"creatorTwitterHandle"`
	CreatorTwitterAvatar *string   `json:"creatorTwitterAvatar"`
}

// CreatedItem 我发过的红包
type CreatedItem struct {
	PublicID             string    `json:"id"`
	PacketID             uint64    `json:"packetId"`
	CreatorAddress       string    `json:"creatorAddress"`
	CreatorTwitterHandle string    `json:"creatorTwitterHandle"`
	TxHash               string    `json:"txHash"`
	CreatedAt            time.Time `json:"createdAt"`
}
