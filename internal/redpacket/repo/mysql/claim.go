package mysql

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/orm"
	"redpacket.com/pkg/xerr"
)

// Reserve INSERT ... ON CONFLICT (packet_id, claimer_twitter_id) DO NOTHING
// 影响行数为 0 说明并发请求已经占了坑，不能改成先查后插
func (r *Repo) Reserve(ctx context.Context, c *domain.Claim) (bool, error) {
	c.ClaimerAddress = strings.ToLower(c.ClaimerAddress)
	if c.Signature == "" {
		c.Signature = domain.SignaturePending
	}
	res := r.getDb(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "packet_id"}, {Name: "claimer_twitter_id"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return false, xerr.Wrap(res.Error, xerr.DbError, "reserve claim failed")
	}
	return res.RowsAffected > 0, nil
}

func (r *Repo) Exists(ctx context.Context, packetID uint64, twitterID string) (bool, error) {
	var n int64
	err := r.getDb(ctx).Model(&domain.Claim{}).
		Where("packet_id = ? AND claimer_twitter_id = ?", packetID, twitterID).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, xerr.Wrap(err, xerr.DbError, "check duplicate claim failed")
	}
	return n > 0, nil
}

func (r *Repo) GetClaim(ctx context.Context, packetID uint64, twitterID string) (*domain.Claim, error) {
	var c domain.Claim
	err := r.getDb(ctx).
		Where("packet_id = ? AND claimer_twitter_id = ?", packetID, twitterID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, "claim record not found")
		}
		return nil, xerr.Wrap(err, xerr.DbError, "get claim failed")
	}
	return &c, nil
}

// SetSignature 按主键回写签名，行已经被删除时返回 NotFound
func (r *Repo) SetSignature(ctx context.Context, id int64, signature string) error {
	res := r.getDb(ctx).Model(&domain.Claim{}).
		Where("id = ?", id).
		Update("signature", signature)
	if res.Error != nil {
		return xerr.Wrap(res.Error, xerr.DbError, "update claim signature failed")
	}
	if res.RowsAffected == 0 {
		return xerr.New(xerr.RecordNotFound, "claim record not found")
	}
	return nil
}

// SetSettlement 必须同时匹配 packet + twitter id + 地址，不能只按交易哈希认领
func (r *Repo) SetSettlement(ctx context.Context, packetID uint64, twitterID, address, amount, txHash string) (int64, error) {
	res := r.getDb(ctx).Model(&domain.Claim{}).
		Where("packet_id = ? AND claimer_twitter_id = ? AND claimer_address = ?",
			packetID, twitterID, strings.ToLower(address)).
		Updates(map[string]any{
			"amount":  amount,
			"tx_hash": txHash,
		})
	if res.Error != nil {
		return 0, xerr.Wrap(res.Error, xerr.DbError, "update claim settlement failed")
	}
	return res.RowsAffected, nil
}

// SettleUnsettled 后台补账用，匹配规则同 SetSettlement，只处理 tx_hash 为空的记录
func (r *Repo) SettleUnsettled(ctx context.Context, packetID uint64, twitterID, address, amount, txHash string) (int64, error) {
	res := r.getDb(ctx).Model(&domain.Claim{}).
		Where("packet_id = ? AND claimer_twitter_id = ? AND claimer_address = ? AND tx_hash IS NULL",
			packetID, twitterID, strings.ToLower(address)).
		Updates(map[string]any{
			"amount":  amount,
			"tx_hash": txHash,
		})
	if res.Error != nil {
		return 0, xerr.Wrap(res.Error, xerr.DbError, "backfill claim settlement failed")
	}
	return res.RowsAffected, nil
}

// Release 运维补救：签名一直是 pending 且没结算的记录才允许删
func (r *Repo) Release(ctx context.Context, packetID uint64, twitterID string) (bool, error) {
	res := r.getDb(ctx).
		Where("packet_id = ? AND claimer_twitter_id = ? AND signature = ? AND tx_hash IS NULL",
			packetID, twitterID, domain.SignaturePending).
		Delete(&domain.Claim{})
	if res.Error != nil {
		return false, xerr.Wrap(res.Error, xerr.DbError, "release claim failed")
	}
	return res.RowsAffected > 0, nil
}

// ListByClaimer 按领取时间倒序，带上红包创建者信息
func (r *Repo) ListByClaimer(ctx context.Context, twitterID string, page, limit int) ([]domain.ClaimedItem, error) {
	var items []domain.ClaimedItem
	q := r.getDb(ctx).Table("claims AS c").
		Select("c.packet_id, c.claimer_address, c.amount, c.claimed_at, p.creator_twitter_handle, p.creator_twitter_avatar").
		Joins("LEFT JOIN packets p ON c.packet_id = p.packet_id").
		Where("c.claimer_twitter_id = ?", twitterID).
		Order("c.claimed_at DESC").Order("c.id DESC")
	if err := orm.ApplyPagination(q, page, limit).Scan(&items).Error; err != nil {
		return nil, xerr.Wrap(err, xerr.DbError, "list claims failed")
	}
	return items, nil
}
