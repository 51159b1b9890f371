package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

type Rule struct {
	// Half-Open 状态允许通过的探测请求数
	MaxRequests uint32

	// Closed 状态计数窗口
	Interval time.Duration

	// Rolling window 每个 bucket 周期（>0 则启用 rolling window；<=0 用 fixed window）
	BucketPeriod time.Duration

	// Open 状态持续时间，到期进入 Half-Open
	Timeout time.Duration

	// 触发熔断条件（两种之一即可）
	TripConsecutiveFailures uint32  // 连续失败阈值
	TripFailureRate         float64 // 失败率阈值（0~1）
	TripMinRequests         uint32  // 失败率计算的最小样本数
}

// Classifier 决定哪些错误计入熔断失败，返回 true 表示"依赖是健康的"
type Classifier func(err error) bool

type Manager struct {
	mu sync.RWMutex
	m  map[string]*gobreaker.CircuitBreaker[any]

	defaultRule  Rule
	rules        map[string]Rule
	isSuccessful Classifier
	onState      func(name string, from, to gobreaker.State)
}

func NewManager(defaultRule Rule, perName map[string]Rule, isSuccessful Classifier) *Manager {
	if defaultRule.MaxRequests == 0 {
		defaultRule.MaxRequests = 5
	}
	if defaultRule.Timeout <= 0 {
		defaultRule.Timeout = 3 * time.Second
	}
	if defaultRule.Interval <= 0 {
		defaultRule.Interval = 10 * time.Second
	}
	if defaultRule.TripConsecutiveFailures == 0 && defaultRule.TripFailureRate == 0 {
		defaultRule.TripConsecutiveFailures = 10
	}
	if defaultRule.TripMinRequests == 0 {
		defaultRule.TripMinRequests = 20
	}
	if isSuccessful == nil {
		isSuccessful = DefaultClassifier
	}

	return &Manager{
		m:            make(map[string]*gobreaker.CircuitBreaker[any], 16),
		defaultRule:  defaultRule,
		rules:        perName,
		isSuccessful: isSuccessful,
	}
}

// OnStateChange 状态变更回调(打点用)，需在第一次 Get 之前设置
func (m *Manager) OnStateChange(fn func(name string, from, to gobreaker.State)) {
	m.onState = fn
}

func (m *Manager) Get(name string) *gobreaker.CircuitBreaker[any] {
	// 快路径：读锁
	m.mu.RLock()
	cb := m.m[name]
	m.mu.RUnlock()
	if cb != nil {
		return cb
	}

	// 慢路径：创建
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb = m.m[name]; cb != nil {
		return cb
	}

	rule, ok := m.rules[name]
	if !ok {
		rule = m.defaultRule
	}
	st := gobreaker.Settings{
		Name:         name,
		MaxRequests:  rule.MaxRequests,
		Interval:     rule.Interval,
		BucketPeriod: rule.BucketPeriod,
		Timeout:      rule.Timeout,

		ReadyToTrip: func(c gobreaker.Counts) bool {
			// 1) 连续失败阈值优先
			if rule.TripConsecutiveFailures > 0 && c.ConsecutiveFailures >= rule.TripConsecutiveFailures {
				return true
			}
			// 2) 失败率阈值
			if rule.TripFailureRate > 0 && c.Requests >= rule.TripMinRequests {
				failRate := float64(c.TotalFailures) / float64(c.Requests)
				return failRate >= rule.TripFailureRate
			}
			return false
		},
		IsSuccessful: m.isSuccessful,
	}
	if m.onState != nil {
		st.OnStateChange = m.onState
	}

	cb = gobreaker.NewCircuitBreaker[any](st)
	m.m[name] = cb
	return cb
}

// Execute 通过熔断器执行 fn
func Execute[T any](m *Manager, name string, fn func() (T, error)) (T, error) {
	var zero T
	out, err := m.Get(name).Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if out != nil {
			if v, ok := out.(T); ok {
				return v, err
			}
		}
		return zero, err
	}
	return out.(T), nil
}

// IsOpen 熔断器拒绝的错误
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// DefaultClassifier 调用方主动取消不算依赖故障
func DefaultClassifier(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
