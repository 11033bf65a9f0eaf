package health

import (
	"context"
	"sync"
	"time"
)

const defaultCheckTimeout = 3 * time.Second

// Aggregator 健康检查聚合器，并发执行全部检查器
type Aggregator struct {
	mu           sync.RWMutex
	checkers     []Checker
	checkTimeout time.Duration
}

// NewAggregator 创建聚合器
// checkTimeout 是单项检查的超时上限，<=0 时取3秒。
func NewAggregator(checkTimeout time.Duration, checkers ...Checker) *Aggregator {
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}
	return &Aggregator{
		checkers:     checkers,
		checkTimeout: checkTimeout,
	}
}

// AddChecker 添加检查器
func (a *Aggregator) AddChecker(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checker)
}

// CheckAll 并发执行所有健康检查，每项独立加超时
func (a *Aggregator) CheckAll(ctx context.Context) map[string]CheckResult {
	a.mu.RLock()
	checkers := make([]Checker, len(a.checkers))
	copy(checkers, a.checkers)
	a.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, a.checkTimeout)
			defer cancel()
			result := c.Check(checkCtx)

			resultsMu.Lock()
			results[c.Name()] = result
			resultsMu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

// OverallFrom 从一组结果归并总体状态
// 任一 Unhealthy 即 Unhealthy；否则任一 Degraded 即 Degraded。
func OverallFrom(results map[string]CheckResult) Status {
	overall := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// OverallStatus 执行全部检查并归并总体状态
func (a *Aggregator) OverallStatus(ctx context.Context) Status {
	return OverallFrom(a.CheckAll(ctx))
}

// Ready 就绪判断（K8s readiness probe）；降级仍视为就绪
func (a *Aggregator) Ready(ctx context.Context) bool {
	return a.OverallStatus(ctx) != StatusUnhealthy
}

// Alive 存活判断（K8s liveness probe）；进程能应答即存活
func (a *Aggregator) Alive() bool {
	return true
}

// HealthReport 健康报告
type HealthReport struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}
