package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/metrics"
	"redpacket.com/pkg/xerr"
)

// Reconciler 把链上 PacketClaimed 事件回填到领取记录
type Reconciler struct {
	packets  domain.PacketRepo
	claims   domain.ClaimRepo
	chain    domain.ChainReader
	contract string
	decimals int32
}

func NewReconciler(packets domain.PacketRepo, claims domain.ClaimRepo, chain domain.ChainReader, contract string, decimals int32) *Reconciler {
	return &Reconciler{
		packets:  packets,
		claims:   claims,
		chain:    chain,
		contract: strings.ToLower(contract),
		decimals: decimals,
	}
}

// Confirm 前端上报 claim 交易哈希，校验后写入金额和哈希，返回格式化后的金额
func (r *Reconciler) Confirm(ctx context.Context, publicID string, id domain.Identity, txHash string) (string, error) {
	amount, err := r.confirm(ctx, publicID, id, txHash)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("rejected").Inc()
		return "", err
	}
	metrics.ReconcileTotal.WithLabelValues("confirmed").Inc()
	return amount, nil
}

func (r *Reconciler) confirm(ctx context.Context, publicID string, id domain.Identity, txHash string) (string, error) {
	if id.TwitterID == "" {
		return "", xerr.NewErrCode(xerr.Unauthorized)
	}
	if !txHashRe.MatchString(txHash) {
		return "", xerr.New(xerr.RequestParamsError, "invalid transaction hash")
	}
	txHash = strings.ToLower(txHash)

	packet, err := r.packets.GetByPublicID(ctx, publicID)
	if err != nil {
		return "", err
	}

	st, err := r.chain.GetSettlement(ctx, txHash)
	if err != nil {
		return "", err
	}
	if st.To != r.contract {
		return "", xerr.New(xerr.RequestParamsError, "transaction is not sent to the red packet contract")
	}
	if !st.Succeeded {
		return "", xerr.New(xerr.RequestParamsError, "transaction failed")
	}
	if _, ok := st.FindClaimed(packet.PacketID); !ok {
		return "", xerr.New(xerr.RequestParamsError, "no claim event for this packet in transaction")
	}
	rec, err := r.claims.GetClaim(ctx, packet.PacketID, id.TwitterID)
	if err != nil {
		return "", err
	}
	ev, ok := st.FindClaimedBy(packet.PacketID, rec.ClaimerAddress)
	// 同地址多个身份时，calldata 里的 twitter id 决定归属
	if !ok || (ev.TwitterUserID != "" && ev.TwitterUserID != id.TwitterID) {
		return "", xerr.New(xerr.RecordNotFound, "claim record not found")
	}

	amount := domain.FormatUnits(ev.Amount, r.decimals)
	n, err := r.claims.SetSettlement(ctx, packet.PacketID, id.TwitterID, ev.Claimer, amount, txHash)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", xerr.New(xerr.RecordNotFound, "claim record not found")
	}

	logger.Info(ctx, "claim settled",
		zap.Uint64("packet_id", packet.PacketID),
		zap.String("twitter_id", id.TwitterID),
		zap.String("tx_hash", txHash),
		zap.String("amount", amount))
	return amount, nil
}

// Backfill 扫 [from, to] 的领取事件，补上前端没上报的结算，返回更新条数
func (r *Reconciler) Backfill(ctx context.Context, from, to uint64) (int64, error) {
	events, err := r.chain.FetchClaimed(ctx, from, to)
	if err != nil {
		return 0, err
	}
	var updated int64
	for _, ev := range events {
		if ev.TwitterUserID == "" {
			// 不知道是哪个身份领的，留给前端上报
			logger.Warn(ctx, "skip claim event without twitter id",
				zap.Uint64("packet_id", ev.PacketID),
				zap.String("claimer", ev.Claimer),
				zap.String("tx_hash", ev.TxHash))
			continue
		}
		amount := domain.FormatUnits(ev.Amount, r.decimals)
		n, err := r.claims.SettleUnsettled(ctx, ev.PacketID, ev.TwitterUserID, ev.Claimer, amount, strings.ToLower(ev.TxHash))
		if err != nil {
			return updated, err
		}
		if n > 0 {
			metrics.ReconcileTotal.WithLabelValues("backfilled").Inc()
		}
		updated += n
	}
	if updated > 0 {
		logger.Info(ctx, "backfilled settlements",
			zap.Uint64("from", from),
			zap.Uint64("to", to),
			zap.Int64("updated", updated))
	}
	return updated, nil
}
