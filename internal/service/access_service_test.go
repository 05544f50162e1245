package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/palisade-http/palisade/internal/domain/access"
)

// memStore is an in-memory access.Store for testing.
type memStore struct {
	mu      sync.Mutex
	records []access.Record
	flushes int
}

func (m *memStore) Append(_ context.Context, records ...access.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *memStore) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

func (m *memStore) Recent(_ context.Context, n int) ([]access.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.records) {
		n = len(m.records)
	}
	out := make([]access.Record, 0, n)
	for i := len(m.records) - 1; i >= len(m.records)-n; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func TestAccessService_RecordsFlushedOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memStore{}
	svc := NewAccessService(store, slog.Default())
	svc.Start(context.Background())

	for i := 0; i < 10; i++ {
		svc.Record(access.Record{RequestID: "r", Status: 200})
	}
	svc.Stop()

	if got := store.count(); got != 10 {
		t.Errorf("store has %d records, want 10", got)
	}
}

func TestAccessService_BatchFlush(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memStore{}
	svc := NewAccessService(store, slog.Default(),
		WithBatchSize(2),
		WithFlushInterval(time.Hour), // only batch-size flushes
	)
	svc.Start(context.Background())

	svc.Record(access.Record{RequestID: "a"})
	svc.Record(access.Record{RequestID: "b"})

	// The worker flushes once it has collected a full batch.
	deadline := time.Now().Add(2 * time.Second)
	for store.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := store.count(); got != 2 {
		t.Errorf("store has %d records, want 2 (batch flush)", got)
	}

	svc.Stop()
}

func TestAccessService_IntervalFlush(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memStore{}
	svc := NewAccessService(store, slog.Default(),
		WithBatchSize(1000),
		WithFlushInterval(20*time.Millisecond),
	)
	svc.Start(context.Background())

	svc.Record(access.Record{RequestID: "solo"})

	deadline := time.Now().Add(2 * time.Second)
	for store.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := store.count(); got != 1 {
		t.Errorf("store has %d records, want 1 (interval flush)", got)
	}

	svc.Stop()
}

func TestAccessService_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memStore{}
	svc := NewAccessService(store, slog.Default(), WithChannelSize(1))
	// Worker not started: the channel fills and stays full.

	svc.Record(access.Record{RequestID: "kept"})
	svc.Record(access.Record{RequestID: "dropped-1"})
	svc.Record(access.Record{RequestID: "dropped-2"})

	if got := svc.DroppedRecords(); got != 2 {
		t.Errorf("DroppedRecords = %d, want 2", got)
	}
	if got := svc.ChannelDepth(); got != 1 {
		t.Errorf("ChannelDepth = %d, want 1", got)
	}
	if got := svc.ChannelCapacity(); got != 1 {
		t.Errorf("ChannelCapacity = %d, want 1", got)
	}

	// Drain so Stop's close doesn't panic on a full channel reader.
	svc.Start(context.Background())
	svc.Stop()
}

func TestAccessService_ContextCancelDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memStore{}
	svc := NewAccessService(store, slog.Default(), WithFlushInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	svc.Record(access.Record{RequestID: "pending"})
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for store.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := store.count(); got != 1 {
		t.Errorf("store has %d records after cancel, want 1", got)
	}

	// Worker already exited via ctx; close the channel for symmetry.
	close(svc.recordChan)
	svc.wg.Wait()
}
