package domain

import (
	"strings"
	"time"
)

// Profile 登录时拿到的资料，指针为 nil 表示没拿到，0 粉丝是有效值
type Profile struct {
	CreatedAt      *string
	FollowersCount *int64
}

func (p Profile) Missing() bool {
	return (p.CreatedAt == nil || strings.TrimSpace(*p.CreatedAt) == "") && p.FollowersCount == nil
}

// Identity 已验证的社交身份，来自会话
type Identity struct {
	TwitterID   string
	Handle      string
	Avatar      string
	AccessToken string
	Profile     Profile
}

// FollowCache (user_id, creator_id) 唯一，TTL 在读的时候判断
type FollowCache struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;size:64;uniqueIndex:uniq_user_creator,priority:1"`
	CreatorID string    `gorm:"column:creator_id;size:64;uniqueIndex:uniq_user_creator,priority:2"`
	Follows   bool      `gorm:"column:follows"`
	CheckedAt time.Time `gorm:"column:checked_at"`
}

func (FollowCache) TableName() string {
	return "follow_cache"
}

// FollowSource 关注结果来源
type FollowSource string

const (
	FollowSourceSelf  FollowSource = "self"
	FollowSourceCache FollowSource = "cache"
	FollowSourceAPI   FollowSource = "api"
)

type FollowResult struct {
	Follows bool
	Source  FollowSource
}

// NormalizeHandle 去掉 @ 并转小写
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// FollowCheck subject 是否关注 target
type FollowCheck struct {
	Token      string
	Subject    string
	Target     string
	ForceFresh bool
}
