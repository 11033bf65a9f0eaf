package poller

import (
	"errors"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 正常状态，允许轮询
	StateOpen                  // 熔断状态，跳过轮询
	StateHalfOpen              // 半开状态，放行单个试探请求
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen 熔断器打开，跳过本次轮询
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrProbeInFlight 半开状态已有试探请求在途
	ErrProbeInFlight = errors.New("half-open probe already in flight")
)

// Breaker 轮询链路熔断器。
// 与同步调用不同，轮询的成败在请求写出之后才揭晓（响应或超时），
// 所以放行与结果记录拆成 Allow / RecordSuccess / RecordFailure 三步。
// 半开状态同一时刻只放行一个试探请求，由响应关闭熔断、超时重新打开。
type Breaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	probing       bool
	lastFail      time.Time
	lastStateTime time.Time
	tripCount     int64

	threshold int           // 连续失败阈值
	cooldown  time.Duration // Open → HalfOpen 冷却时长

	onStateChange func(from, to State)
}

// NewBreaker 创建熔断器，threshold/cooldown 非正时取默认值
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}
	return &Breaker{
		state:         StateClosed,
		threshold:     threshold,
		cooldown:      cooldown,
		lastStateTime: time.Now(),
	}
}

// Allow 判断当前是否允许发出请求
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(b.lastFail) > b.cooldown {
			b.transitionTo(StateHalfOpen)
			b.probing = true
			return nil
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		if b.probing {
			return ErrProbeInFlight
		}
		b.probing = true
		return nil

	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess 记录一次成功结果（收到响应）
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.probing = false
		b.failures = 0
		b.transitionTo(StateClosed)
	case StateClosed:
		b.failures = 0
	}
	// Open 状态下到达的是熔断前请求的迟到响应，不改变状态
}

// RecordFailure 记录一次失败结果（写失败或超时）
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		b.lastFail = time.Now()
		if b.failures >= b.threshold {
			b.transitionTo(StateOpen)
			b.tripCount++
		}
	case StateHalfOpen:
		b.probing = false
		b.lastFail = time.Now()
		b.transitionTo(StateOpen)
		b.tripCount++
	}
	// Open 状态下的失败来自熔断前的在途请求，忽略以免顺延冷却
}

// transitionTo 状态转换，调用方须持锁
func (b *Breaker) transitionTo(newState State) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState
	b.lastStateTime = time.Now()

	if b.onStateChange != nil {
		// 异步回调，避免阻塞
		go b.onStateChange(oldState, newState)
	}
}

// State 获取当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetStateChangeCallback 设置状态变化回调
func (b *Breaker) SetStateChangeCallback(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Reset 重置熔断器（手动恢复）
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
	b.failures = 0
	b.probing = false
}

// Stats 获取统计信息
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:           b.state.String(),
		Failures:        b.failures,
		TripCount:       b.tripCount,
		LastStateChange: b.lastStateTime,
	}
}

// BreakerStats 熔断器统计信息
type BreakerStats struct {
	State           string    `json:"state"`
	Failures        int       `json:"failures"`
	TripCount       int64     `json:"trip_count"`
	LastStateChange time.Time `json:"last_state_change"`
}
