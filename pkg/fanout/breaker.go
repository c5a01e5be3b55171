package fanout

import (
	"sync"
	"time"
)

// CircuitState 熔断器状态
type CircuitState string

const (
	// StateClosed 正常放行
	StateClosed CircuitState = "closed"
	// StateOpen 连续失败达到阈值后熔断
	StateOpen CircuitState = "open"
	// StateHalfOpen 恢复窗口过后放行试探请求
	StateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker 跟踪单个端点的连续失败情况，
// 失败达到阈值后熔断，恢复窗口过后进入半开状态试探
type CircuitBreaker struct {
	mutex            sync.Mutex
	failureThreshold int
	recoveryTimeout  time.Duration
	failureCount     int
	lastFailureTime  time.Time
	state            CircuitState
	successfulCalls  int64
}

// BreakerSnapshot 熔断器状态快照
type BreakerSnapshot struct {
	State           CircuitState `json:"state"`
	FailureCount    int          `json:"failure_count"`
	SuccessfulCalls int64        `json:"successful_calls"`
}

// NewCircuitBreaker 创建熔断器，参数非正时使用默认值（阈值5，恢复窗口60秒）
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 60 * time.Second
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
	}
}

// CanExecute 判断当前是否放行请求。
// 熔断状态下超过恢复窗口时转入半开状态并放行，计数器不变
func (b *CircuitBreaker) CanExecute() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.lastFailureTime) > b.recoveryTimeout {
			b.state = StateHalfOpen
			return true
		}
		return false
	default: // half_open
		return true
	}
}

// RecordSuccess 记录一次成功调用，重置失败计数；半开状态下恢复为关闭
func (b *CircuitBreaker) RecordSuccess() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failureCount = 0
	b.successfulCalls++
	if b.state == StateHalfOpen {
		b.state = StateClosed
	}
}

// RecordFailure 记录一次失败调用，失败计数达到阈值时熔断
func (b *CircuitBreaker) RecordFailure() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()
	if b.failureCount >= b.failureThreshold {
		b.state = StateOpen
	}
}

// State 返回当前状态
func (b *CircuitBreaker) State() CircuitState {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

// FailureCount 返回当前连续失败计数
func (b *CircuitBreaker) FailureCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.failureCount
}

// SuccessfulCalls 返回累计成功调用次数
func (b *CircuitBreaker) SuccessfulCalls() int64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.successfulCalls
}

// Snapshot 返回状态快照
func (b *CircuitBreaker) Snapshot() BreakerSnapshot {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return BreakerSnapshot{
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessfulCalls: b.successfulCalls,
	}
}

// rewindLastFailure 将最后失败时间回拨，仅用于测试
func (b *CircuitBreaker) rewindLastFailure(d time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.lastFailureTime = b.lastFailureTime.Add(-d)
}
