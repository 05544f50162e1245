// Package stdoutlog provides the JSON-lines access-log store used when
// access_log.output is "stdout". Records are also kept in a small in-memory
// ring so Recent works without re-reading the stream.
package stdoutlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/palisade-http/palisade/internal/domain/access"
)

// defaultCacheSize is the number of recent records retained in memory.
const defaultCacheSize = 1000

// Store implements access.Store by writing one JSON object per line.
type Store struct {
	mu    sync.Mutex
	w     *bufio.Writer
	cache *recordCache
}

// NewStore writes to standard output.
func NewStore() *Store {
	return NewStoreWriter(os.Stdout)
}

// NewStoreWriter writes to the given writer. Used by tests.
func NewStoreWriter(w io.Writer) *Store {
	return &Store{
		w:     bufio.NewWriter(w),
		cache: newRecordCache(defaultCacheSize),
	}
}

// Append encodes each record as a compact JSON line.
func (s *Store) Append(_ context.Context, records ...access.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal access record: %w", err)
		}
		if _, err := s.w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write access record: %w", err)
		}
		s.cache.Add(rec)
	}
	return nil
}

// Flush drains the buffered writer.
func (s *Store) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// Recent returns up to n of the most recent records, newest first.
func (s *Store) Recent(_ context.Context, n int) ([]access.Record, error) {
	return s.cache.Recent(n), nil
}

// Close flushes pending output. The underlying stream is not owned here
// (stdout outlives the store), so it is left open.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// Compile-time interface verification.
var _ access.Store = (*Store)(nil)

// recordCache is a ring buffer of recent access records.
type recordCache struct {
	entries []access.Record
	size    int
	head    int
	count   int
	mu      sync.RWMutex
}

func newRecordCache(size int) *recordCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &recordCache{
		entries: make([]access.Record, size),
		size:    size,
	}
}

// Add appends a record, overwriting the oldest entry when full.
func (c *recordCache) Add(rec access.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.head] = rec
	c.head = (c.head + 1) % c.size
	if c.count < c.size {
		c.count++
	}
}

// Recent returns the last n entries, newest first.
func (c *recordCache) Recent(n int) []access.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 || c.count == 0 {
		return nil
	}
	if n > c.count {
		n = c.count
	}

	result := make([]access.Record, n)
	for i := 0; i < n; i++ {
		// head points to the next write position, so head-1 is most recent.
		idx := (c.head - 1 - i + c.size) % c.size
		result[i] = c.entries[idx]
	}
	return result
}
