// Package filelog provides the rotated JSON-lines access-log store used when
// access_log.output is "file://<dir>". Files rotate daily and when they reach
// the size cap; records older than the retention period are deleted hourly.
package filelog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/palisade-http/palisade/internal/domain/access"
)

// logFilePattern matches access log filenames: access-YYYY-MM-DD.log or
// access-YYYY-MM-DD-N.log (N is the size-rotation suffix).
var logFilePattern = regexp.MustCompile(`^access-(\d{4}-\d{2}-\d{2})(?:-(\d+))?\.log$`)

// StoreConfig configures the file-based access store.
type StoreConfig struct {
	// Dir is where log files are written. Created if missing.
	Dir string
	// RetentionDays is how long rotated files are kept (default 7).
	RetentionDays int
	// MaxFileSizeMB caps a single file before size rotation (default 100).
	MaxFileSizeMB int
	// CacheSize is the number of recent records served from memory (default 1000).
	CacheSize int
}

// Store implements access.Store on rotated JSON-lines files.
type Store struct {
	mu            sync.Mutex
	dir           string
	maxFileSize   int64
	retentionDays int
	file          *os.File
	fileDate      string
	fileSize      int64
	fileSuffix    int
	cache         *recordCache
	logger        *slog.Logger
	cancel        context.CancelFunc
	closed        bool
}

// NewStore opens today's log file in dir, runs retention cleanup, warms the
// Recent cache from the newest existing file, and starts the hourly cleanup
// loop.
func NewStore(cfg StoreConfig, logger *slog.Logger) (*Store, error) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 7
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 100
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}

	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create access log directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		dir:           cfg.Dir,
		maxFileSize:   int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		retentionDays: cfg.RetentionDays,
		cache:         newRecordCache(cfg.CacheSize),
		logger:        logger,
		cancel:        cancel,
	}

	today := time.Now().UTC().Format("2006-01-02")
	if err := s.switchFile(today, s.highestSuffix(today)); err != nil {
		cancel()
		return nil, fmt.Errorf("open access log file: %w", err)
	}

	s.runCleanup()
	s.warmCache()
	go s.cleanupLoop(ctx)

	return s, nil
}

// Append writes records as compact JSON lines, rotating by date and size.
func (s *Store) Append(_ context.Context, records ...access.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		date := rec.Timestamp.UTC().Format("2006-01-02")
		if date != s.fileDate {
			if err := s.switchFile(date, 0); err != nil {
				return fmt.Errorf("date rotation: %w", err)
			}
		}
		if s.fileSize >= s.maxFileSize {
			if err := s.switchFile(s.fileDate, s.fileSuffix+1); err != nil {
				return fmt.Errorf("size rotation: %w", err)
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal access record: %w", err)
		}
		n, err := s.file.Write(append(data, '\n'))
		if err != nil {
			return fmt.Errorf("write access record: %w", err)
		}
		s.fileSize += int64(n)
		s.cache.Add(rec)
	}
	return nil
}

// Flush syncs the current file to disk.
func (s *Store) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		return s.file.Sync()
	}
	return nil
}

// Recent returns up to n of the most recent records, newest first.
func (s *Store) Recent(_ context.Context, n int) ([]access.Record, error) {
	return s.cache.Recent(n), nil
}

// Close stops the cleanup loop and closes the current file. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()

	if s.file != nil {
		_ = s.file.Sync()
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// switchFile closes the current file (if any) and opens the file for the
// given date and suffix, appending if it already exists. Must be called with
// s.mu held (or before the store is shared).
func (s *Store) switchFile(date string, suffix int) error {
	if s.file != nil {
		_ = s.file.Sync()
		_ = s.file.Close()
		s.file = nil
	}

	path := filepath.Join(s.dir, logFilename(date, suffix))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", path, err)
	}

	s.file = f
	s.fileDate = date
	s.fileSize = info.Size()
	s.fileSuffix = suffix
	return nil
}

// logFilename builds the filename for a date and size-rotation suffix.
func logFilename(date string, suffix int) string {
	if suffix == 0 {
		return fmt.Sprintf("access-%s.log", date)
	}
	return fmt.Sprintf("access-%s-%d.log", date, suffix)
}

// parseLogFilename extracts the date and suffix from an access log filename.
func parseLogFilename(name string) (date string, suffix int, ok bool) {
	m := logFilePattern.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return "", 0, false
		}
		suffix = n
	}
	return m[1], suffix, true
}

// highestSuffix returns the largest existing rotation suffix for a date, so
// a restart keeps appending to the newest file instead of an already-rotated
// one.
func (s *Store) highestSuffix(date string) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}

	highest := 0
	for _, e := range entries {
		d, suffix, ok := parseLogFilename(e.Name())
		if ok && d == date && suffix > highest {
			highest = suffix
		}
	}
	return highest
}

// runCleanup deletes log files whose date is past the retention period.
func (s *Store) runCleanup() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("access log cleanup: failed to read directory", "dir", s.dir, "error", err)
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted := 0

	for _, e := range entries {
		date, _, ok := parseLogFilename(e.Name())
		if !ok {
			continue
		}
		fileDate, err := time.Parse("2006-01-02", date)
		if err != nil || !fileDate.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			s.logger.Error("access log cleanup: failed to delete file", "file", e.Name(), "error", err)
		} else {
			deleted++
		}
	}

	if deleted > 0 {
		s.logger.Info("access log cleanup completed", "deleted", deleted)
	}
}

// cleanupLoop runs retention cleanup every hour until the context is cancelled.
func (s *Store) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// warmCache fills the Recent cache from the newest non-empty log file so
// Recent works across a restart.
func (s *Store) warmCache() {
	name := s.newestFile()
	if name == "" {
		return
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		s.logger.Error("access log cache: failed to open file", "file", name, "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	var records []access.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec access.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			s.logger.Warn("access log cache: skipping malformed line", "file", name, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("access log cache: error reading file", "file", name, "error", err)
	}

	// Keep only the newest cacheSize entries, added oldest first so the ring
	// ends up with the newest record on top.
	if len(records) > s.cache.size {
		records = records[len(records)-s.cache.size:]
	}
	for _, rec := range records {
		s.cache.Add(rec)
	}
}

// newestFile returns the name of the most recent non-empty log file, or "".
func (s *Store) newestFile() string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return ""
	}

	type candidate struct {
		name   string
		date   string
		suffix int
	}
	var files []candidate
	for _, e := range entries {
		date, suffix, ok := parseLogFilename(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		files = append(files, candidate{e.Name(), date, suffix})
	}
	if len(files) == 0 {
		return ""
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].date != files[j].date {
			return files[i].date < files[j].date
		}
		return files[i].suffix < files[j].suffix
	})
	return files[len(files)-1].name
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
