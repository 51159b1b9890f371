package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/xerr"
)

// ListLimit 个人页每类最多返回条数
const ListLimit = 50

type RegisterRequest struct {
	PacketID       uint64
	CreatorAddress string
	TxHash         string
	Identity       domain.Identity
}

type RegisterResult struct {
	PacketID uint64 `json:"packetId"`
	UUID     string `json:"uuid"`
}

type ListResult struct {
	Created []domain.CreatedItem `json:"created"`
	Claimed []domain.ClaimedItem `json:"claimed"`
}

type PacketService struct {
	packets  domain.PacketRepo
	claims   domain.ClaimRepo
	chain    domain.ChainReader
	decimals int32
	now      func() time.Time
}

func NewPacketService(packets domain.PacketRepo, claims domain.ClaimRepo, chain domain.ChainReader, decimals int32) *PacketService {
	return &PacketService{
		packets:  packets,
		claims:   claims,
		chain:    chain,
		decimals: decimals,
		now:      time.Now,
	}
}

// View 红包展示信息，只读
func (s *PacketService) View(ctx context.Context, publicID string) (*domain.PacketView, error) {
	p, err := s.packets.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	st, err := s.chain.GetPacket(ctx, p.PacketID)
	if err != nil {
		return nil, err
	}
	return &domain.PacketView{
		PacketID: p.PacketID,
		Creator: domain.CreatorView{
			TwitterHandle: p.CreatorTwitterHandle,
			TwitterAvatar: p.CreatorTwitterAvatar,
		},
		TotalAmount:    domain.FormatUnits(st.TotalAmount, s.decimals),
		TotalClaims:    st.TotalClaims,
		ClaimedCount:   st.ClaimedCount,
		IsRandom:       st.IsRandom,
		Expiry:         st.Expiry,
		IsExpired:      st.IsExpired(s.now()),
		IsFullyClaimed: st.IsFullyClaimed(),
		Refunded:       st.Refunded,
	}, nil
}

// Register 创建者上链后登记元数据，同一个 packet 重复登记返回原 uuid
func (s *PacketService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	id := req.Identity
	if id.TwitterID == "" {
		return nil, xerr.NewErrCode(xerr.Unauthorized)
	}
	if !addressRe.MatchString(req.CreatorAddress) {
		return nil, xerr.New(xerr.RequestParamsError, "invalid creator address")
	}
	if !txHashRe.MatchString(req.TxHash) {
		return nil, xerr.New(xerr.RequestParamsError, "invalid transaction hash")
	}
	creator := strings.ToLower(req.CreatorAddress)
	txHash := strings.ToLower(req.TxHash)

	if s.chain != nil {
		if err := s.verifyCreated(ctx, req.PacketID, creator, txHash); err != nil {
			return nil, err
		}
	}

	p := &domain.Packet{
		PublicID:             uuid.NewString(),
		PacketID:             req.PacketID,
		CreatorAddress:       creator,
		CreatorTwitterID:     id.TwitterID,
		CreatorTwitterHandle: id.Handle,
		TxHash:               txHash,
		CreatedAt:            s.now().UTC(),
	}
	if id.Avatar != "" {
		avatar := id.Avatar
		p.CreatorTwitterAvatar = &avatar
	}
	created, err := s.packets.CreatePacket(ctx, p)
	if err != nil {
		return nil, err
	}
	if !created {
		existing, err := s.packets.GetByPacketID(ctx, req.PacketID)
		if err != nil {
			return nil, err
		}
		if existing.CreatorTwitterID != id.TwitterID {
			return nil, xerr.New(xerr.RequestParamsError, "packet already registered")
		}
		return &RegisterResult{PacketID: existing.PacketID, UUID: existing.PublicID}, nil
	}

	logger.Info(ctx, "packet registered",
		zap.Uint64("packet_id", p.PacketID),
		zap.String("public_id", p.PublicID),
		zap.String("creator", creator))
	return &RegisterResult{PacketID: p.PacketID, UUID: p.PublicID}, nil
}

func (s *PacketService) verifyCreated(ctx context.Context, packetID uint64, creator, txHash string) error {
	st, err := s.chain.GetSettlement(ctx, txHash)
	if err != nil {
		return err
	}
	if !st.Succeeded {
		return xerr.New(xerr.RequestParamsError, "transaction failed")
	}
	ev, ok := st.FindCreated(packetID)
	if !ok {
		return xerr.New(xerr.RequestParamsError, "no create event for this packet in transaction")
	}
	if ev.Creator != creator {
		return xerr.New(xerr.RequestParamsError, "creator address does not match the on-chain creator")
	}
	return nil
}

// List 我发的 + 我领的
func (s *PacketService) List(ctx context.Context, id domain.Identity, page int) (*ListResult, error) {
	if id.TwitterID == "" {
		return nil, xerr.NewErrCode(xerr.Unauthorized)
	}
	created, err := s.packets.ListByCreator(ctx, id.TwitterID, page, ListLimit)
	if err != nil {
		return nil, err
	}
	claimed, err := s.claims.ListByClaimer(ctx, id.TwitterID, page, ListLimit)
	if err != nil {
		return nil, err
	}
	return &ListResult{Created: created, Claimed: claimed}, nil
}

// Release 运维接口：签名失败卡在 pending 的记录可以删掉让用户重领，限流记录不退
func (s *PacketService) Release(ctx context.Context, publicID, twitterID string) (bool, error) {
	p, err := s.packets.GetByPublicID(ctx, publicID)
	if err != nil {
		return false, err
	}
	c, err := s.claims.GetClaim(ctx, p.PacketID, twitterID)
	if err != nil {
		return false, err
	}
	if c.IsSigned() || c.IsSettled() {
		return false, xerr.New(xerr.StateConflict, "claim already signed or settled")
	}
	released, err := s.claims.Release(ctx, p.PacketID, twitterID)
	if err != nil {
		return false, err
	}
	logger.Warn(ctx, "claim reservation released",
		zap.Uint64("packet_id", p.PacketID),
		zap.String("twitter_id", twitterID),
		zap.Bool("released", released))
	return released, nil
}
