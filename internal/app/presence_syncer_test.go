package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
	"github.com/taoyao-code/gnss-gateway/internal/presence"
	"github.com/taoyao-code/gnss-gateway/internal/storage"
	"github.com/taoyao-code/gnss-gateway/internal/storage/models"
)

type registeredReceiver struct {
	id, name, transport, device string
}

type fakeCoreRepo struct {
	registered []registeredReceiver
	touched    map[string]time.Time
	touchErr   error
	txErr      error
}

func newFakeCoreRepo() *fakeCoreRepo {
	return &fakeCoreRepo{touched: make(map[string]time.Time)}
}

func (f *fakeCoreRepo) WithTx(_ context.Context, fn func(storage.CoreRepo) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(f)
}

func (f *fakeCoreRepo) RegisterReceiver(_ context.Context, receiverID, name, transport, device string) error {
	f.registered = append(f.registered, registeredReceiver{receiverID, name, transport, device})
	return nil
}

func (f *fakeCoreRepo) TouchReceiverLastSeen(_ context.Context, receiverID string, seenAt time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched[receiverID] = seenAt
	return nil
}

func (f *fakeCoreRepo) EnsureReceiver(context.Context, string) (*models.Receiver, error) {
	return nil, nil
}

func (f *fakeCoreRepo) GetReceiverByID(context.Context, string) (*models.Receiver, error) {
	return nil, nil
}

func (f *fakeCoreRepo) ListReceivers(context.Context, int, int) ([]models.Receiver, error) {
	return nil, nil
}

func (f *fakeCoreRepo) InsertSatSnapshot(context.Context, *models.SatSnapshot) error { return nil }

func (f *fakeCoreRepo) LatestSatSnapshot(context.Context, string) (*models.SatSnapshot, error) {
	return nil, nil
}

func TestPresenceSyncer_RegisterReceivers(t *testing.T) {
	store := newFakeCoreRepo()
	syncer := NewPresenceSyncer(store, presence.NewMemoryTracker(time.Minute), time.Second, zap.NewNop())

	receivers := []cfgpkg.ReceiverConfig{
		{ID: "rx-01", Name: "屋顶天线", Transport: "serial", Device: "/dev/ttyUSB0"},
		{ID: "rx-02", Transport: "tcp"},
	}
	syncer.RegisterReceivers(context.Background(), receivers)

	require.Len(t, store.registered, 2)
	assert.Equal(t, registeredReceiver{"rx-01", "屋顶天线", "serial", "/dev/ttyUSB0"}, store.registered[0])
	assert.Equal(t, registeredReceiver{"rx-02", "", "tcp", ""}, store.registered[1])
}

func TestPresenceSyncer_RegisterReceiversTxFailure(t *testing.T) {
	store := newFakeCoreRepo()
	store.txErr = errors.New("db down")
	syncer := NewPresenceSyncer(store, presence.NewMemoryTracker(time.Minute), time.Second, zap.NewNop())

	syncer.RegisterReceivers(context.Background(), []cfgpkg.ReceiverConfig{{ID: "rx-01"}})

	assert.Empty(t, store.registered)
}

func TestPresenceSyncer_SyncOnce(t *testing.T) {
	store := newFakeCoreRepo()
	tracker := presence.NewMemoryTracker(time.Minute)
	now := time.Now()
	tracker.Touch("rx-01", now)
	tracker.Touch("rx-02", now.Add(-30*time.Second))

	syncer := NewPresenceSyncer(store, tracker, time.Second, zap.NewNop())
	syncer.syncOnce(context.Background())

	require.Len(t, store.touched, 2)
	assert.Equal(t, now, store.touched["rx-01"])
	assert.Equal(t, int64(2), syncer.Stats()["synced"])
	assert.Equal(t, int64(0), syncer.Stats()["errors"])
}

func TestPresenceSyncer_SyncSkipsDynamicSources(t *testing.T) {
	store := newFakeCoreRepo()
	tracker := presence.NewMemoryTracker(time.Minute)
	now := time.Now()
	tracker.Touch("rx-01", now)
	tracker.Touch("tcp:10.0.0.9:53712", now)

	syncer := NewPresenceSyncer(store, tracker, time.Second, zap.NewNop())
	syncer.syncOnce(context.Background())

	require.Len(t, store.touched, 1)
	assert.Contains(t, store.touched, "rx-01")
	assert.Equal(t, int64(1), syncer.Stats()["synced"])
}

func TestPresenceSyncer_SyncErrorsCounted(t *testing.T) {
	store := newFakeCoreRepo()
	store.touchErr = errors.New("db down")
	tracker := presence.NewMemoryTracker(time.Minute)
	tracker.Touch("rx-01", time.Now())

	syncer := NewPresenceSyncer(store, tracker, time.Second, zap.NewNop())
	syncer.syncOnce(context.Background())

	assert.Equal(t, int64(0), syncer.Stats()["synced"])
	assert.Equal(t, int64(1), syncer.Stats()["errors"])
}

func TestPresenceSyncer_StartStopsOnCancel(t *testing.T) {
	store := newFakeCoreRepo()
	tracker := presence.NewMemoryTracker(time.Minute)
	tracker.Touch("rx-01", time.Now())
	syncer := NewPresenceSyncer(store, tracker, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		syncer.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if syncer.Stats()["synced"] > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("syncer never flushed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("syncer did not stop on context cancel")
	}
}
