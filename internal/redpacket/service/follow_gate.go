package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/xerr"
)

type FollowChecker interface {
	Check(ctx context.Context, req domain.FollowCheck) (domain.FollowResult, error)
}

type HandleResolver interface {
	Resolve(ctx context.Context, token, handle string) (string, error)
}

// FollowGate 领取人必须同时关注红包创建者和平台账号
type FollowGate struct {
	checker        FollowChecker
	resolver       HandleResolver
	platformHandle string
	platformUserID string
}

func NewFollowGate(checker FollowChecker, resolver HandleResolver, platformHandle, platformUserID string) *FollowGate {
	return &FollowGate{
		checker:        checker,
		resolver:       resolver,
		platformHandle: platformHandle,
		platformUserID: platformUserID,
	}
}

func (g *FollowGate) Verify(ctx context.Context, token, subject, creatorID string) error {
	if creatorID == "" {
		return xerr.NewReason(xerr.FollowFailure, domain.ReasonFollowCheckFailed, "missing creator twitter id")
	}

	platformID := g.platformUserID
	if platformID == "" {
		id, err := g.resolver.Resolve(ctx, token, g.platformHandle)
		if err != nil {
			return followUnavailable(ctx, err)
		}
		platformID = id
	}

	var creator, platform domain.FollowResult
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		creator, err = g.verifyOne(egCtx, token, subject, creatorID)
		return err
	})
	eg.Go(func() (err error) {
		platform, err = g.verifyOne(egCtx, token, subject, platformID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return followUnavailable(ctx, err)
	}

	if !creator.Follows {
		return xerr.NewReason(xerr.FollowFailure, domain.ReasonNotFollowingCreator, "not following creator")
	}
	if !platform.Follows {
		return xerr.NewReason(xerr.FollowFailure, domain.ReasonNotFollowingPlatform, "not following platform account")
	}
	return nil
}

// verifyOne 缓存里的否定结果只是临时的，强制实时复查一次
func (g *FollowGate) verifyOne(ctx context.Context, token, subject, target string) (domain.FollowResult, error) {
	req := domain.FollowCheck{Token: token, Subject: subject, Target: target}
	res, err := g.checker.Check(ctx, req)
	if err != nil {
		return res, err
	}
	if !res.Follows && res.Source == domain.FollowSourceCache {
		req.ForceFresh = true
		return g.checker.Check(ctx, req)
	}
	return res, nil
}

func followUnavailable(ctx context.Context, err error) error {
	logger.Warn(ctx, "follow check failed", zap.Error(err))
	return xerr.WrapReason(err, xerr.UpstreamUnavailable, domain.ReasonFollowCheckFailed, "unable to verify follow status")
}
