// Package service contains the orchestration layer between the HTTP
// transport and the outbound stores.
package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/palisade-http/palisade/internal/domain/access"
)

// AccessService provides async access logging with a buffered channel and a
// background worker. Responses are recorded without blocking the serving hot
// path; under sustained backpressure records are dropped and counted rather
// than stalling handlers.
type AccessService struct {
	store         access.Store
	recordChan    chan access.Record
	wg            sync.WaitGroup
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	channelSize int
	dropCount   atomic.Int64

	// warningThreshold is a channel-depth percentage (0-100); crossing it
	// logs a rate-limited warning.
	warningThreshold int
	lastWarning      atomic.Int64
}

// AccessOption configures AccessService.
type AccessOption func(*AccessService)

// WithBatchSize sets the number of records to batch before writing.
func WithBatchSize(size int) AccessOption {
	return func(s *AccessService) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithFlushInterval sets the interval to flush pending records.
func WithFlushInterval(interval time.Duration) AccessOption {
	return func(s *AccessService) {
		if interval > 0 {
			s.flushInterval = interval
		}
	}
}

// WithChannelSize sets the size of the record channel buffer.
func WithChannelSize(size int) AccessOption {
	return func(s *AccessService) {
		if size > 0 {
			s.recordChan = make(chan access.Record, size)
			s.channelSize = size
		}
	}
}

// WithWarningThreshold sets the channel depth warning percentage (0-100).
func WithWarningThreshold(percent int) AccessOption {
	return func(s *AccessService) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		s.warningThreshold = percent
	}
}

// NewAccessService creates an AccessService with the given store and options.
func NewAccessService(store access.Store, logger *slog.Logger, opts ...AccessOption) *AccessService {
	const defaultChannelSize = 1024

	s := &AccessService{
		store:            store,
		recordChan:       make(chan access.Record, defaultChannelSize),
		logger:           logger,
		batchSize:        64,
		flushInterval:    2 * time.Second,
		channelSize:      defaultChannelSize,
		warningThreshold: 80,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins the background worker that batches and writes access records.
func (s *AccessService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Record sends an access record to the background worker. Never blocks: if
// the channel is full the record is dropped and counted.
func (s *AccessService) Record(rec access.Record) {
	if s.warningThreshold > 0 {
		depth := len(s.recordChan)
		if depth >= s.channelSize*s.warningThreshold/100 {
			s.warnChannelDepth(depth)
		}
	}

	select {
	case s.recordChan <- rec:
	default:
		drops := s.dropCount.Add(1)
		s.logger.Warn("access record dropped",
			"request_id", rec.RequestID,
			"total_drops", drops,
		)
	}
}

// warnChannelDepth logs a capacity warning, rate-limited to once per second.
func (s *AccessService) warnChannelDepth(depth int) {
	now := time.Now().UnixNano()
	last := s.lastWarning.Load()

	if now-last < int64(time.Second) {
		return
	}

	if s.lastWarning.CompareAndSwap(last, now) {
		s.logger.Warn("access channel approaching capacity",
			"depth", depth,
			"capacity", s.channelSize,
			"percent", depth*100/s.channelSize,
		)
	}
}

// DroppedRecords returns total dropped records (for health and metrics).
func (s *AccessService) DroppedRecords() int64 {
	return s.dropCount.Load()
}

// ChannelDepth returns current channel usage (for monitoring).
func (s *AccessService) ChannelDepth() int {
	return len(s.recordChan)
}

// ChannelCapacity returns the channel buffer size.
func (s *AccessService) ChannelCapacity() int {
	return s.channelSize
}

// Stop signals the worker to stop and waits for it to finish.
// Pending records are flushed before returning.
func (s *AccessService) Stop() {
	close(s.recordChan)
	s.wg.Wait()
}

// worker collects and flushes access records until the channel closes or the
// context is cancelled.
func (s *AccessService) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]access.Record, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-s.recordChan:
			if !ok {
				// Channel closed: final flush with a bounded deadline.
				s.finalFlush(batch)
				return
			}
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			// Drain whatever was queued before cancellation.
			for {
				select {
				case rec, ok := <-s.recordChan:
					if !ok {
						s.finalFlush(batch)
						return
					}
					batch = append(batch, rec)
				default:
					s.finalFlush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch to the store. Errors are logged but not propagated:
// access logging must not fail request serving.
func (s *AccessService) flush(ctx context.Context, batch []access.Record) {
	if err := s.store.Append(ctx, batch...); err != nil {
		s.logger.Error("failed to write access batch",
			"error", err,
			"count", len(batch),
		)
	}
}

// finalFlush writes remaining records with a fresh bounded context and syncs
// the store.
func (s *AccessService) finalFlush(batch []access.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(batch) > 0 {
		s.flush(ctx, batch)
	}
	if err := s.store.Flush(ctx); err != nil {
		s.logger.Error("failed to flush access store", "error", err)
	}
}
