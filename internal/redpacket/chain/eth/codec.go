package eth

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"redpacket.com/internal/redpacket/domain"
)

const (
	eventClaimed = "PacketClaimed"
	eventCreated = "PacketCreated"
	methodClaim  = "claim"
)

// Codec 合约 ABI 编解码，解码失败返回 false，不走 panic
type Codec struct {
	abi abi.ABI
}

func NewCodec() (*Codec, error) {
	parsed, err := abi.JSON(strings.NewReader(RedPacketABI))
	if err != nil {
		return nil, err
	}
	return &Codec{abi: parsed}, nil
}

func (c *Codec) ClaimedTopic() common.Hash { return c.abi.Events[eventClaimed].ID }
func (c *Codec) CreatedTopic() common.Hash { return c.abi.Events[eventCreated].ID }

// DecodeClaimed 不是 PacketClaimed 的日志直接返回 false
func (c *Codec) DecodeClaimed(lg types.Log) (*domain.ClaimedEvent, bool) {
	if len(lg.Topics) != 3 || lg.Topics[0] != c.ClaimedTopic() {
		return nil, false
	}
	packetID, ok := topicUint64(lg.Topics[1])
	if !ok {
		return nil, false
	}
	vals, err := c.abi.Unpack(eventClaimed, lg.Data)
	if err != nil || len(vals) != 2 {
		return nil, false
	}
	amount, ok1 := vals[0].(*big.Int)
	claimIndex, ok2 := vals[1].(uint16)
	if !ok1 || !ok2 {
		return nil, false
	}
	return &domain.ClaimedEvent{
		PacketID:    packetID,
		Claimer:     strings.ToLower(common.BytesToAddress(lg.Topics[2].Bytes()).Hex()),
		Amount:      amount,
		ClaimIndex:  claimIndex,
		TxHash:      lg.TxHash.Hex(),
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
	}, true
}

// ClaimCall claim(packetId, twitterUserId, nonce, signature) 的入参
type ClaimCall struct {
	PacketID      uint64
	TwitterUserID string
	Nonce         *big.Int
}

// DecodeClaimCall 只认直接调用合约 claim 的 calldata，经过中转合约的调用解不出来
func (c *Codec) DecodeClaimCall(data []byte) (*ClaimCall, bool) {
	m := c.abi.Methods[methodClaim]
	if len(data) < 4 || !bytes.Equal(data[:4], m.ID) {
		return nil, false
	}
	vals, err := m.Inputs.Unpack(data[4:])
	if err != nil || len(vals) != 4 {
		return nil, false
	}
	packetID, ok1 := vals[0].(*big.Int)
	twitterID, ok2 := vals[1].(string)
	nonce, ok3 := vals[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !packetID.IsUint64() {
		return nil, false
	}
	return &ClaimCall{
		PacketID:      packetID.Uint64(),
		TwitterUserID: twitterID,
		Nonce:         nonce,
	}, true
}

func (c *Codec) DecodeCreated(lg types.Log) (*domain.CreatedEvent, bool) {
	if len(lg.Topics) != 3 || lg.Topics[0] != c.CreatedTopic() {
		return nil, false
	}
	packetID, ok := topicUint64(lg.Topics[1])
	if !ok {
		return nil, false
	}
	vals, err := c.abi.Unpack(eventCreated, lg.Data)
	if err != nil || len(vals) != 4 {
		return nil, false
	}
	amount, ok1 := vals[0].(*big.Int)
	totalClaims, ok2 := vals[1].(uint16)
	isRandom, ok3 := vals[2].(bool)
	expiry, ok4 := vals[3].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}
	return &domain.CreatedEvent{
		PacketID:    packetID,
		Creator:     strings.ToLower(common.BytesToAddress(lg.Topics[2].Bytes()).Hex()),
		Amount:      amount,
		TotalClaims: totalClaims,
		IsRandom:    isRandom,
		Expiry:      expiry.Int64(),
	}, true
}

func (c *Codec) packPackets(packetID uint64) ([]byte, error) {
	return c.abi.Pack("packets", new(big.Int).SetUint64(packetID))
}

func (c *Codec) unpackPackets(packetID uint64, out []byte) (*domain.PacketState, bool) {
	vals, err := c.abi.Unpack("packets", out)
	if err != nil || len(vals) != 8 {
		return nil, false
	}
	creator, ok0 := vals[0].(common.Address)
	total, ok1 := vals[1].(*big.Int)
	remaining, ok2 := vals[2].(*big.Int)
	totalClaims, ok3 := vals[3].(uint16)
	claimedCount, ok4 := vals[4].(uint16)
	expiry, ok5 := vals[5].(*big.Int)
	isRandom, ok6 := vals[6].(bool)
	refunded, ok7 := vals[7].(bool)
	if !(ok0 && ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return nil, false
	}
	return &domain.PacketState{
		PacketID:        packetID,
		Creator:         strings.ToLower(creator.Hex()),
		TotalAmount:     total,
		RemainingAmount: remaining,
		TotalClaims:     totalClaims,
		ClaimedCount:    claimedCount,
		Expiry:          expiry.Int64(),
		IsRandom:        isRandom,
		Refunded:        refunded,
	}, true
}

// topicUint64 本地表里 packet_id 用 uint64 存，超出范围的不是我们的红包
func topicUint64(h common.Hash) (uint64, bool) {
	v := new(big.Int).SetBytes(h.Bytes())
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}
