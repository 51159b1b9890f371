package domain

import (
	"math/big"
	"strings"
)

// ClaimedEvent PacketClaimed(packetId, claimer, amount, claimIndex)
type ClaimedEvent struct {
	PacketID      uint64
	Claimer       string // 小写
	Amount        *big.Int
	ClaimIndex    uint16
	TxHash        string
	BlockNumber   uint64
	LogIndex      uint
	TwitterUserID string // 从 claim 调用的 calldata 解出来，解不出时为空
}

// CreatedEvent PacketCreated(packetId, creator, amount, totalClaims, isRandom, expiry)
type CreatedEvent struct {
	PacketID    uint64
	Creator     string
	Amount      *big.Int
	TotalClaims uint16
	IsRandom    bool
	Expiry      int64
}

// Settlement 一笔交易的链上结果
type Settlement struct {
	TxHash    string
	To        string // 小写，合约创建交易为空
	Succeeded bool
	Claimed   []ClaimedEvent
	Created   []CreatedEvent
}

// FindClaimed 第一个匹配 packetID 的领取事件
func (s *Settlement) FindClaimed(packetID uint64) (*ClaimedEvent, bool) {
	for i := range s.Claimed {
		if s.Claimed[i].PacketID == packetID {
			return &s.Claimed[i], true
		}
	}
	return nil, false
}

// FindClaimedBy 同一笔交易可能有多个人领同一个红包，按领取地址挑
func (s *Settlement) FindClaimedBy(packetID uint64, claimer string) (*ClaimedEvent, bool) {
	claimer = strings.ToLower(claimer)
	for i := range s.Claimed {
		if s.Claimed[i].PacketID == packetID && s.Claimed[i].Claimer == claimer {
			return &s.Claimed[i], true
		}
	}
	return nil, false
}

func (s *Settlement) FindCreated(packetID uint64) (*CreatedEvent, bool) {
	for i := range s.Created {
		if s.Created[i].PacketID == packetID {
			return &s.Created[i], true
		}
	}
	return nil, false
}
