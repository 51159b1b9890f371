package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitBlockTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redpacket",
			Name:      "http_ratelimit_block_total",
			Help:      "Total number of HTTP requests blocked by the per-ip limiter.",
		},
		[]string{"route"},
	)

	CBState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "redpacket",
			Name:      "circuitbreaker_state",
			Help:      "Circuit breaker state (0/1).",
		},
		[]string{"name", "state"}, // state: closed/open/half_open
	)

	ClaimsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "redpacket",
		Name:      "claims_issued_total",
		Help:      "Signed claim vouchers returned to clients.",
	})

	ClaimRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redpacket",
			Name:      "claim_rejected_total",
			Help:      "Claim requests rejected, by reason.",
		},
		[]string{"reason"},
	)

	SocialAPIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redpacket",
			Name:      "social_api_requests_total",
			Help:      "Outbound social graph API calls.",
		},
		[]string{"op", "status"},
	)

	FollowCheckTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redpacket",
			Name:      "follow_check_total",
			Help:      "Follow relationship checks by source and result.",
		},
		[]string{"source", "result"},
	)

	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redpacket",
			Name:      "reconcile_total",
			Help:      "Settlement reconciliation attempts by result.",
		},
		[]string{"result"},
	)

	SignDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "redpacket",
		Name:      "voucher_sign_duration_seconds",
		Help:      "Voucher signing latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)

var registerOnce sync.Once

// MustRegister 注册到默认 registry，重复调用无副作用
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RateLimitBlockTotal, CBState,
			ClaimsIssuedTotal, ClaimRejectedTotal,
			SocialAPIRequestsTotal, FollowCheckTotal,
			ReconcileTotal, SignDuration,
		)
	})
}
