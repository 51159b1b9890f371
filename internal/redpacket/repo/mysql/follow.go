package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/xerr"
)

func (r *Repo) GetFollow(ctx context.Context, userID, creatorID string) (*domain.FollowCache, error) {
	var fc domain.FollowCache
	err := r.getDb(ctx).
		Where("user_id = ? AND creator_id = ?", userID, creatorID).
		First(&fc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, xerr.Wrap(err, xerr.DbError, "get follow cache failed")
	}
	return &fc, nil
}

// UpsertFollow 每次实时检查后都写，不管结果
func (r *Repo) UpsertFollow(ctx context.Context, userID, creatorID string, follows bool, checkedAt time.Time) error {
	err := r.getDb(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "creator_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"follows", "checked_at"}),
		}).
		Create(&domain.FollowCache{
			UserID:    userID,
			CreatorID: creatorID,
			Follows:   follows,
			CheckedAt: checkedAt.UTC(),
		}).Error
	if err != nil {
		return xerr.Wrap(err, xerr.DbError, "upsert follow cache failed")
	}
	return nil
}
