package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/internal/redpacket/service"
	"redpacket.com/pkg/middleware"
)

type PacketService interface {
	View(ctx context.Context, publicID string) (*domain.PacketView, error)
	Register(ctx context.Context, req service.RegisterRequest) (*service.RegisterResult, error)
	List(ctx context.Context, id domain.Identity, page int) (*service.ListResult, error)
	Release(ctx context.Context, publicID, twitterID string) (bool, error)
}

type ClaimService interface {
	Claim(ctx context.Context, req service.ClaimRequest) (*domain.ClaimVoucher, error)
}

type Reconciler interface {
	Confirm(ctx context.Context, publicID string, id domain.Identity, txHash string) (string, error)
}

// identityFrom 会话 -> 领取人身份，资料字段保留缺失语义
func identityFrom(c *gin.Context) (domain.Identity, bool) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return domain.Identity{}, false
	}
	return domain.Identity{
		TwitterID:   s.Subject,
		Handle:      s.Handle,
		Avatar:      s.Avatar,
		AccessToken: s.AccessToken,
		Profile: domain.Profile{
			CreatedAt:      s.TwitterCreatedAt,
			FollowersCount: s.FollowersCount,
		},
	}, true
}
