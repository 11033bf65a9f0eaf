package poller

import (
	"testing"
	"time"

	"github.com/taoyao-code/gnss-gateway/internal/protocol/ubx"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestPendingTracker_TrackAndResolve(t *testing.T) {
	clock := newFakeClock()
	tracker := NewPendingTracker(time.Second, WithNow(clock.Now))
	key := ubx.Key(ubx.ClassNav, ubx.IDNavPosLLH)

	if tracker.Has(key) {
		t.Fatal("empty tracker should not report pending")
	}

	tracker.Track(key)
	if !tracker.Has(key) {
		t.Fatal("tracked key should be pending")
	}
	if got := tracker.Len(); got != 1 {
		t.Fatalf("len = %d, want 1", got)
	}

	clock.Advance(100 * time.Millisecond)
	rtt, ok := tracker.Resolve(key)
	if !ok {
		t.Fatal("resolve should find the pending poll")
	}
	if rtt != 100*time.Millisecond {
		t.Errorf("rtt = %v, want 100ms", rtt)
	}
	if tracker.Has(key) {
		t.Error("resolved key should no longer be pending")
	}
}

func TestPendingTracker_ResolveUnknown(t *testing.T) {
	tracker := NewPendingTracker(time.Second)
	if _, ok := tracker.Resolve(ubx.Key(ubx.ClassNav, ubx.IDNavSat)); ok {
		t.Error("resolving an untracked key should report not found")
	}
}

func TestPendingTracker_SweepExpired(t *testing.T) {
	clock := newFakeClock()
	tracker := NewPendingTracker(50*time.Millisecond, WithNow(clock.Now))

	posllh := ubx.Key(ubx.ClassNav, ubx.IDNavPosLLH)
	svinfo := ubx.Key(ubx.ClassNav, ubx.IDNavSvInfo)
	tracker.Track(posllh)

	clock.Advance(30 * time.Millisecond)
	tracker.Track(svinfo)

	if got := tracker.Sweep(); len(got) != 0 {
		t.Fatalf("nothing should expire yet, got %d", len(got))
	}

	clock.Advance(30 * time.Millisecond) // posllh 已过期，svinfo 未到期
	expired := tracker.Sweep()
	if len(expired) != 1 {
		t.Fatalf("expired = %d, want 1", len(expired))
	}
	if expired[0].Key != posllh {
		t.Errorf("expired key = %#x, want %#x", expired[0].Key, posllh)
	}
	if got := tracker.TimedOut(); got != 1 {
		t.Errorf("timed out = %d, want 1", got)
	}
	if !tracker.Has(svinfo) {
		t.Error("unexpired key should survive the sweep")
	}
}

func TestPendingTracker_DropDoesNotCountTimeout(t *testing.T) {
	clock := newFakeClock()
	tracker := NewPendingTracker(10*time.Millisecond, WithNow(clock.Now))
	key := ubx.Key(ubx.ClassNav, ubx.IDNavPosLLH)

	tracker.Track(key)
	tracker.Drop(key)

	clock.Advance(time.Second)
	if got := tracker.Sweep(); len(got) != 0 {
		t.Fatalf("dropped key should not expire, got %d", len(got))
	}
	if got := tracker.TimedOut(); got != 0 {
		t.Errorf("timed out = %d, want 0", got)
	}
}

func TestPendingTracker_DefaultTimeout(t *testing.T) {
	tracker := NewPendingTracker(0)
	if got := tracker.Timeout(); got != defaultPollTimeout {
		t.Errorf("timeout = %v, want %v", got, defaultPollTimeout)
	}
}
