package domain

import (
	"math/big"
	"time"
)

// ZeroAddress 合约对不存在的红包返回零地址 creator
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// PacketState 链上红包快照，合约为准，本地不持久化
type PacketState struct {
	PacketID        uint64
	Creator         string // 小写 0x 地址
	TotalAmount     *big.Int
	RemainingAmount *big.Int
	TotalClaims     uint16
	ClaimedCount    uint16
	Expiry          int64 // unix 秒
	IsRandom        bool
	Refunded        bool
}

// Exists creator 为零地址表示链上没有这个红包
func (p *PacketState) Exists() bool {
	return p != nil && p.Creator != "" && p.Creator != ZeroAddress
}

func (p *PacketState) IsExpired(now time.Time) bool {
	return now.Unix() >= p.Expiry
}

func (p *PacketState) IsFullyClaimed() bool {
	return p.ClaimedCount >= p.TotalClaims
}

// Packet 创建红包时登记的元数据，PublicID 对外暴露，PacketID 是合约里的编号
type Packet struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement"`
	PublicID             string    `gorm:"column:public_id;size:36;uniqueIndex:uniq_public_id"`
	PacketID             uint64    `gorm:"column:packet_id;uniqueIndex:uniq_packet_id"`
	CreatorAddress       string    `gorm:"column:creator_address;size:42"`
	CreatorTwitterID     string    `gorm:"column:creator_twitter_id;size:64;index:idx_creator_twitter"`
	CreatorTwitterHandle string    `gorm:"column:creator_twitter_handle;size:64"`
	CreatorTwitterAvatar *string   `gorm:"column:creator_twitter_avatar;size:512"`
	TxHash               string    `gorm:"column:tx_hash;size:66"`
	CreatedAt            time.Time `gorm:"column:created_at"`
}

func (Packet) TableName() string {
	return "packets"
}

// PacketView GET /api/packets/:id 的返回体
type PacketView struct {
	PacketID       uint64      `json:"packetId"`
	Creator        CreatorView `json:"creator"`
	TotalAmount    string      `json:"totalAmount"`
	TotalClaims    uint16      `json:"totalClaims"`
	ClaimedCount   uint16      `json:"claimedCount"`
	IsRandom       bool        `json:"isRandom"`
	Expiry         int64       `json:"expiry"`
	IsExpired      bool        `json:"isExpired"`
	IsFullyClaimed bool        `json:"isFullyClaimed"`
	Refunded       bool        `json:"refunded"`
}

type CreatorView struct {
	TwitterHandle string  `json:"twitterHandle"`
	TwitterAvatar *string `json:"twitterAvatar"`
}
