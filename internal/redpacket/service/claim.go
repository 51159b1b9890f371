package service

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/internal/redpacket/signer"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/metrics"
	"redpacket.com/pkg/xerr"
)

var (
	addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	txHashRe  = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)

	errLostRace = errors.New("claim slot already reserved")
)

type VoucherSigner interface {
	SignClaim(msg signer.ClaimMessage) ([]byte, error)
}

type FollowVerifier interface {
	Verify(ctx context.Context, token, subject, creatorID string) error
}

type ClaimRequest struct {
	PublicID       string
	Identity       domain.Identity
	ClaimerAddress string
}

type ClaimOptions struct {
	// FallbackToken 会话里没有用户 token 时用应用 token 查关注
	FallbackToken string
	SignAttempts  int
	SignBackoff   time.Duration
}

// ClaimService 领取主流程：链上状态 -> 风控 -> 关注 -> 占坑 + 限流 -> 签名 -> 回写
type ClaimService struct {
	packets domain.PacketRepo
	claims  domain.ClaimRepo
	limits  domain.RateLimitRepo
	tx      domain.Transactor
	chain   domain.ChainReader
	gate    *Gate
	follow  FollowVerifier
	signer  VoucherSigner
	opts    ClaimOptions

	now      func() time.Time
	newNonce func() (*big.Int, error)
}

func NewClaimService(
	packets domain.PacketRepo,
	claims domain.ClaimRepo,
	limits domain.RateLimitRepo,
	tx domain.Transactor,
	chain domain.ChainReader,
	gate *Gate,
	follow FollowVerifier,
	vs VoucherSigner,
	opts ClaimOptions,
) *ClaimService {
	if opts.SignAttempts <= 0 {
		opts.SignAttempts = 3
	}
	if opts.SignBackoff <= 0 {
		opts.SignBackoff = 100 * time.Millisecond
	}
	return &ClaimService{
		packets:  packets,
		claims:   claims,
		limits:   limits,
		tx:       tx,
		chain:    chain,
		gate:     gate,
		follow:   follow,
		signer:   vs,
		opts:     opts,
		now:      time.Now,
		newNonce: signer.NewNonce,
	}
}

func (s *ClaimService) Claim(ctx context.Context, req ClaimRequest) (*domain.ClaimVoucher, error) {
	v, err := s.claim(ctx, req)
	if err != nil {
		if reason := xerr.ReasonOf(err); reason != "" {
			metrics.ClaimRejectedTotal.WithLabelValues(reason).Inc()
		}
		return nil, err
	}
	metrics.ClaimsIssuedTotal.Inc()
	return v, nil
}

func (s *ClaimService) claim(ctx context.Context, req ClaimRequest) (*domain.ClaimVoucher, error) {
	id := req.Identity
	if id.TwitterID == "" {
		return nil, xerr.NewErrCode(xerr.Unauthorized)
	}

	packet, err := s.packets.GetByPublicID(ctx, req.PublicID)
	if err != nil {
		return nil, err
	}
	if !addressRe.MatchString(req.ClaimerAddress) {
		return nil, xerr.New(xerr.RequestParamsError, "invalid claimer address")
	}
	claimer := strings.ToLower(req.ClaimerAddress)

	// 1. 链上状态，以合约为准
	state, err := s.chain.GetPacket(ctx, packet.PacketID)
	if err != nil {
		return nil, err
	}
	if state.Refunded {
		return nil, xerr.NewReason(xerr.StateConflict, domain.ReasonPacketRefunded, "packet refunded")
	}
	if state.IsExpired(s.now()) {
		return nil, xerr.NewReason(xerr.StateConflict, domain.ReasonPacketExpired, "packet expired")
	}
	if state.IsFullyClaimed() {
		return nil, xerr.NewReason(xerr.StateConflict, domain.ReasonPacketFull, "packet fully claimed")
	}

	// 2. 风控
	if err := s.gate.Evaluate(ctx, packet.PacketID, id); err != nil {
		return nil, err
	}

	// 3. 关注关系
	token := id.AccessToken
	if token == "" {
		token = s.opts.FallbackToken
	}
	if token == "" {
		return nil, xerr.New(xerr.Unauthorized, "missing social access token")
	}
	if err := s.follow.Verify(ctx, token, id.TwitterID, packet.CreatorTwitterID); err != nil {
		return nil, err
	}

	nonce, err := s.newNonce()
	if err != nil {
		return nil, xerr.Wrap(err, xerr.ServerCommonError, "generate nonce failed")
	}

	// 占坑之后客户端断开也不能回滚，后续步骤不跟随请求取消
	dctx := context.WithoutCancel(ctx)

	// 4. 占坑 + 记限流，同一个事务
	record := &domain.Claim{
		PacketID:             packet.PacketID,
		ClaimerTwitterID:     id.TwitterID,
		ClaimerAddress:       claimer,
		ClaimerTwitterHandle: id.Handle,
		Nonce:                nonce.String(),
		Signature:            domain.SignaturePending,
	}
	if err := s.reserve(dctx, record); err != nil {
		return nil, err
	}

	// 5. 签名 + 回写
	sig, err := s.sign(dctx, signer.ClaimMessage{
		PacketID:      packet.PacketID,
		Claimer:       claimer,
		TwitterUserID: id.TwitterID,
		Nonce:         nonce,
	})
	if err != nil {
		logger.Error(dctx, "claim reserved but signing failed",
			zap.Int64("claim_id", record.ID),
			zap.Uint64("packet_id", packet.PacketID),
			zap.String("twitter_id", id.TwitterID),
			zap.Error(err))
		return nil, xerr.Wrap(err, xerr.ServerCommonError, "failed to sign claim")
	}
	sigHex := hexutil.Encode(sig)
	if err := s.claims.SetSignature(dctx, record.ID, sigHex); err != nil {
		logger.Error(dctx, "claim signed but signature write-back failed",
			zap.Int64("claim_id", record.ID),
			zap.Uint64("packet_id", packet.PacketID),
			zap.Error(err))
		return nil, err
	}

	logger.Info(dctx, "claim voucher issued",
		zap.Uint64("packet_id", packet.PacketID),
		zap.String("twitter_id", id.TwitterID),
		zap.String("claimer", claimer))

	return &domain.ClaimVoucher{
		Signature:     sigHex,
		Nonce:         nonce.String(),
		TwitterUserID: id.TwitterID,
	}, nil
}

// reserve 输掉竞争时不写限流记录
func (s *ClaimService) reserve(ctx context.Context, record *domain.Claim) error {
	err := s.tx.Transaction(ctx, func(txCtx context.Context) error {
		ok, err := s.claims.Reserve(txCtx, record)
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}
		return s.limits.Record(txCtx, record.ClaimerTwitterID, s.now())
	})
	if errors.Is(err, errLostRace) {
		return xerr.NewReason(xerr.AlreadyReserved, domain.ReasonAlreadyClaimed, "already claimed")
	}
	return err
}

// sign 有限次重试，指数退避
func (s *ClaimService) sign(ctx context.Context, msg signer.ClaimMessage) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.SignDuration.Observe(time.Since(start).Seconds()) }()

	var lastErr error
	backoff := s.opts.SignBackoff
	for attempt := 1; attempt <= s.opts.SignAttempts; attempt++ {
		sig, err := s.signer.SignClaim(msg)
		if err == nil {
			return sig, nil
		}
		lastErr = err
		logger.Warn(ctx, "sign claim attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < s.opts.SignAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, lastErr
}
