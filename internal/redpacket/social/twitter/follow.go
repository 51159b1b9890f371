package twitter

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/metrics"
)

type followingLister interface {
	FollowingPage(ctx context.Context, token, userID, paginationToken string) (*FollowingPage, error)
}

// FollowVerifier 带 TTL 缓存的关注关系检查
type FollowVerifier struct {
	lister   followingLister
	cache    domain.FollowCacheRepo
	ttl      time.Duration
	maxPages int
	now      func() time.Time
}

func NewFollowVerifier(lister followingLister, cache domain.FollowCacheRepo, ttl time.Duration, maxPages int) *FollowVerifier {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if maxPages <= 0 {
		maxPages = 20
	}
	return &FollowVerifier{
		lister:   lister,
		cache:    cache,
		ttl:      ttl,
		maxPages: maxPages,
		now:      time.Now,
	}
}

// Check 自己关注自己直接通过；缓存未过期且没要求强制刷新时用缓存；否则翻页查 API
// 传输错误原样返回，不能当成未关注
func (v *FollowVerifier) Check(ctx context.Context, req domain.FollowCheck) (domain.FollowResult, error) {
	if req.Subject == req.Target {
		metrics.FollowCheckTotal.WithLabelValues(string(domain.FollowSourceSelf), "true").Inc()
		return domain.FollowResult{Follows: true, Source: domain.FollowSourceSelf}, nil
	}

	if !req.ForceFresh {
		if res, ok := v.fromCache(ctx, req); ok {
			return res, nil
		}
	}

	follows, err := v.scan(ctx, req)
	if err != nil {
		return domain.FollowResult{}, err
	}

	if err := v.cache.UpsertFollow(ctx, req.Subject, req.Target, follows, v.now()); err != nil {
		logger.Warn(ctx, "follow cache upsert failed",
			zap.String("subject", req.Subject),
			zap.String("target", req.Target),
			zap.Error(err))
	}
	metrics.FollowCheckTotal.WithLabelValues(string(domain.FollowSourceAPI), boolLabel(follows)).Inc()
	return domain.FollowResult{Follows: follows, Source: domain.FollowSourceAPI}, nil
}

func (v *FollowVerifier) fromCache(ctx context.Context, req domain.FollowCheck) (domain.FollowResult, bool) {
	entry, err := v.cache.GetFollow(ctx, req.Subject, req.Target)
	if err != nil {
		logger.Warn(ctx, "follow cache read failed", zap.Error(err))
		return domain.FollowResult{}, false
	}
	if entry == nil || entry.CheckedAt.IsZero() {
		return domain.FollowResult{}, false
	}
	if v.now().Sub(entry.CheckedAt) > v.ttl {
		return domain.FollowResult{}, false
	}
	metrics.FollowCheckTotal.WithLabelValues(string(domain.FollowSourceCache), boolLabel(entry.Follows)).Inc()
	return domain.FollowResult{Follows: entry.Follows, Source: domain.FollowSourceCache}, true
}

// scan 最多翻 maxPages 页
func (v *FollowVerifier) scan(ctx context.Context, req domain.FollowCheck) (bool, error) {
	next := ""
	for page := 0; page < v.maxPages; page++ {
		resp, err := v.lister.FollowingPage(ctx, req.Token, req.Subject, next)
		if err != nil {
			return false, err
		}
		if slices.Contains(resp.IDs, req.Target) {
			return true, nil
		}
		if resp.NextToken == "" {
			return false, nil
		}
		next = resp.NextToken
	}
	logger.Info(ctx, "follow scan hit page ceiling",
		zap.String("subject", req.Subject),
		zap.Int("max_pages", v.maxPages))
	return false, nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
