package domain

// 给前端的机器可读原因
const (
	ReasonPacketExpired         = "packet_expired"
	ReasonPacketFull            = "packet_full"
	ReasonPacketRefunded        = "packet_refunded"
	ReasonAccountTooNew         = "account_too_new"
	ReasonInsufficientFollowers = "insufficient_followers"
	ReasonMissingProfileData    = "missing_profile_data"
	ReasonAlreadyClaimed        = "already_claimed"
	ReasonRateLimited           = "rate_limited"
	ReasonNotFollowingCreator   = "not_following_creator"
	ReasonNotFollowingPlatform  = "not_following_coinbase" // 老客户端按这个值判断，别改
	ReasonFollowCheckFailed     = "follow_check_failed"
)
