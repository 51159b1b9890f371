package mysql

import (
	"context"
	"time"

	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/xerr"
)

func (r *Repo) Record(ctx context.Context, twitterID string, at time.Time) error {
	err := r.getDb(ctx).Create(&domain.RateLimit{
		TwitterUserID: twitterID,
		ClaimedAt:     at.UTC(),
	}).Error
	if err != nil {
		return xerr.Wrap(err, xerr.DbError, "record rate limit failed")
	}
	return nil
}

func (r *Repo) CountSince(ctx context.Context, twitterID string, since time.Time) (int64, error) {
	var n int64
	err := r.getDb(ctx).Model(&domain.RateLimit{}).
		Where("twitter_user_id = ? AND claimed_at > ?", twitterID, since.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, xerr.Wrap(err, xerr.DbError, "count rate limit failed")
	}
	return n, nil
}

// PruneBefore 清理窗口外的记录，不影响计数结果
func (r *Repo) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.getDb(ctx).
		Where("claimed_at < ?", before.UTC()).
		Delete(&domain.RateLimit{})
	if res.Error != nil {
		return 0, xerr.Wrap(res.Error, xerr.DbError, "prune rate limit failed")
	}
	return res.RowsAffected, nil
}
