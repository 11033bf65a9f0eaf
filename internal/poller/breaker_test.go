package poller

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker(t *testing.T) {
	t.Run("连续失败触发熔断", func(t *testing.T) {
		b := NewBreaker(3, time.Minute)

		if b.State() != StateClosed {
			t.Fatalf("初始状态应该是Closed，实际: %v", b.State())
		}

		for i := 0; i < 3; i++ {
			if err := b.Allow(); err != nil {
				t.Fatalf("Closed状态应该放行: %v", err)
			}
			b.RecordFailure()
		}

		if b.State() != StateOpen {
			t.Fatalf("3次失败后应该是Open状态，实际: %v", b.State())
		}
		if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("Open状态应该返回ErrCircuitOpen，实际: %v", err)
		}
	})

	t.Run("冷却后半开试探成功恢复", func(t *testing.T) {
		b := NewBreaker(2, 20*time.Millisecond)
		b.RecordFailure()
		b.RecordFailure()
		if b.State() != StateOpen {
			t.Fatalf("应该是Open状态，实际: %v", b.State())
		}

		time.Sleep(30 * time.Millisecond)

		if err := b.Allow(); err != nil {
			t.Fatalf("冷却后应该放行试探: %v", err)
		}
		if b.State() != StateHalfOpen {
			t.Fatalf("应该是HalfOpen状态，实际: %v", b.State())
		}
		if err := b.Allow(); !errors.Is(err, ErrProbeInFlight) {
			t.Fatalf("试探在途时应该拒绝第二个请求，实际: %v", err)
		}

		b.RecordSuccess()
		if b.State() != StateClosed {
			t.Fatalf("试探成功后应该恢复Closed，实际: %v", b.State())
		}
		if err := b.Allow(); err != nil {
			t.Fatalf("恢复后应该放行: %v", err)
		}
	})

	t.Run("半开失败立即重新熔断", func(t *testing.T) {
		b := NewBreaker(2, 20*time.Millisecond)
		b.RecordFailure()
		b.RecordFailure()

		time.Sleep(30 * time.Millisecond)
		if err := b.Allow(); err != nil {
			t.Fatalf("冷却后应该放行试探: %v", err)
		}

		b.RecordFailure()
		if b.State() != StateOpen {
			t.Fatalf("试探失败应该重新Open，实际: %v", b.State())
		}
		if got := b.Stats().TripCount; got != 2 {
			t.Errorf("熔断次数 = %d, want 2", got)
		}
	})

	t.Run("成功清零失败计数", func(t *testing.T) {
		b := NewBreaker(3, time.Minute)
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		b.RecordFailure()

		if b.State() != StateClosed {
			t.Fatalf("非连续失败不应该熔断，实际: %v", b.State())
		}
	})

	t.Run("Open状态下的迟到结果不改变状态", func(t *testing.T) {
		b := NewBreaker(1, time.Minute)
		b.RecordFailure()
		if b.State() != StateOpen {
			t.Fatalf("应该是Open状态，实际: %v", b.State())
		}

		b.RecordSuccess()
		if b.State() != StateOpen {
			t.Fatalf("迟到的成功不应该关闭熔断，实际: %v", b.State())
		}
		b.RecordFailure()
		if b.State() != StateOpen {
			t.Fatalf("Open状态应该保持，实际: %v", b.State())
		}
	})

	t.Run("Reset恢复初始状态", func(t *testing.T) {
		b := NewBreaker(1, time.Minute)
		b.RecordFailure()
		b.Reset()

		if b.State() != StateClosed {
			t.Fatalf("Reset后应该是Closed，实际: %v", b.State())
		}
		if err := b.Allow(); err != nil {
			t.Fatalf("Reset后应该放行: %v", err)
		}
	})
}

func TestBreaker_StateString(t *testing.T) {
	cases := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half_open",
		State(99):     "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
