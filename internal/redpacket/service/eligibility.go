package service

import (
	"context"
	"strings"
	"time"

	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/xerr"
)

// EligibilityRules 风控阈值
type EligibilityRules struct {
	MinAccountAge   time.Duration
	MinFollowers    int64
	MaxClaimsPerDay int64
	Window          time.Duration
}

func DefaultEligibilityRules() EligibilityRules {
	return EligibilityRules{
		MinAccountAge:   30 * 24 * time.Hour,
		MinFollowers:    10,
		MaxClaimsPerDay: 10,
		Window:          24 * time.Hour,
	}
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RubyDate, // v1.1 接口的 created_at
	"2006-01-02",
}

func parseCreatedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CheckAccountAge 缺失或解析失败一律不通过
func CheckAccountAge(createdAt *string, now time.Time, minAge time.Duration) bool {
	if createdAt == nil || strings.TrimSpace(*createdAt) == "" {
		return false
	}
	t, ok := parseCreatedAt(*createdAt)
	if !ok {
		return false
	}
	return now.Sub(t) >= minAge
}

// CheckFollowerCount 缺失不通过
func CheckFollowerCount(followers *int64, min int64) bool {
	if followers == nil {
		return false
	}
	return *followers >= min
}

// Gate 风控：资料缺失 -> 账号年龄 -> 粉丝数 -> 重复领取 -> 24h 限流，返回第一个失败原因
type Gate struct {
	claims domain.ClaimRepo
	limits domain.RateLimitRepo
	rules  EligibilityRules
	now    func() time.Time
}

func NewGate(claims domain.ClaimRepo, limits domain.RateLimitRepo, rules EligibilityRules) *Gate {
	def := DefaultEligibilityRules()
	if rules.MinAccountAge <= 0 {
		rules.MinAccountAge = def.MinAccountAge
	}
	if rules.MinFollowers <= 0 {
		rules.MinFollowers = def.MinFollowers
	}
	if rules.MaxClaimsPerDay <= 0 {
		rules.MaxClaimsPerDay = def.MaxClaimsPerDay
	}
	if rules.Window <= 0 {
		rules.Window = def.Window
	}
	return &Gate{claims: claims, limits: limits, rules: rules, now: time.Now}
}

func (g *Gate) Evaluate(ctx context.Context, packetID uint64, id domain.Identity) error {
	now := g.now()

	if id.Profile.Missing() {
		return eligibility(domain.ReasonMissingProfileData, "profile data unavailable")
	}
	if !CheckAccountAge(id.Profile.CreatedAt, now, g.rules.MinAccountAge) {
		return eligibility(domain.ReasonAccountTooNew, "account is too new")
	}
	if !CheckFollowerCount(id.Profile.FollowersCount, g.rules.MinFollowers) {
		return eligibility(domain.ReasonInsufficientFollowers, "not enough followers")
	}

	// 提前拦截，最终以唯一索引为准
	exists, err := g.claims.Exists(ctx, packetID, id.TwitterID)
	if err != nil {
		return err
	}
	if exists {
		return eligibility(domain.ReasonAlreadyClaimed, "already claimed")
	}

	n, err := g.limits.CountSince(ctx, id.TwitterID, now.Add(-g.rules.Window))
	if err != nil {
		return err
	}
	if n >= g.rules.MaxClaimsPerDay {
		return eligibility(domain.ReasonRateLimited, "too many claims in the last 24 hours")
	}
	return nil
}

func eligibility(reason, msg string) error {
	return xerr.NewReason(xerr.EligibilityFailure, reason, msg)
}
