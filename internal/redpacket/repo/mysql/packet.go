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

// CreatePacket packet_id 已登记时什么都不做
func (r *Repo) CreatePacket(ctx context.Context, p *domain.Packet) (bool, error) {
	p.CreatorAddress = strings.ToLower(p.CreatorAddress)
	res := r.getDb(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "packet_id"}},
			DoNothing: true,
		}).
		Create(p)
	if res.Error != nil {
		return false, xerr.Wrap(res.Error, xerr.DbError, "create packet failed")
	}
	return res.RowsAffected > 0, nil
}

func (r *Repo) GetByPublicID(ctx context.Context, publicID string) (*domain.Packet, error) {
	var p domain.Packet
	err := r.getDb(ctx).Where("public_id = ?", publicID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, "packet not found")
		}
		return nil, xerr.Wrap(err, xerr.DbError, "get packet by public id failed")
	}
	return &p, nil
}

func (r *Repo) GetByPacketID(ctx context.Context, packetID uint64) (*domain.Packet, error) {
	var p domain.Packet
	err := r.getDb(ctx).Where("packet_id = ?", packetID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, "packet not found")
		}
		return nil, xerr.Wrap(err, xerr.DbError, "get packet by packet id failed")
	}
	return &p, nil
}

// ListByCreator 按创建时间正序
func (r *Repo) ListByCreator(ctx context.Context, twitterID string, page, limit int) ([]domain.CreatedItem, error) {
	var rows []domain.Packet
	q := r.getDb(ctx).Model(&domain.Packet{}).
		Where("creator_twitter_id = ?", twitterID).
		Order("created_at ASC").Order("id ASC")
	if err := orm.ApplyPagination(q, page, limit).Find(&rows).Error; err != nil {
		return nil, xerr.Wrap(err, xerr.DbError, "list created packets failed")
	}
	items := make([]domain.CreatedItem, 0, len(rows))
	for _, p := range rows {
		items = append(items, domain.CreatedItem{
			PublicID:             p.PublicID,
			PacketID:             p.PacketID,
			CreatorAddress:       p.CreatorAddress,
			CreatorTwitterHandle: p.CreatorTwitterHandle,
			TxHash:               p.TxHash,
			CreatedAt:            p.CreatedAt,
		})
	}
	return items, nil
}
