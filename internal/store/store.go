// Package store holds the application document in memory and persists it
// asynchronously to a pluggable backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"mesa/internal/metrics"
)

// Backend persists whole documents.
type Backend interface {
	Name() string
	// Load returns the stored document, or nil when nothing was stored yet.
	Load(ctx context.Context) (*Data, error)
	Save(ctx context.Context, data *Data) error
	Close() error
}

// ErrClosed is returned by Update after Close.
var ErrClosed = errors.New("store is closed")

// Store owns the in-memory document. Every mutation runs under the write lock
// and bumps the version; a background flusher persists the latest version.
type Store struct {
	mu      sync.RWMutex
	data    *Data
	version uint64
	closed  bool

	backend Backend
	now     func() time.Time

	idMu   sync.Mutex
	lastID int64

	flushMu  sync.Mutex
	flushed  uint64
	lastErr  error
	degraded atomic.Bool

	notify chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Option is a functional option for configuring the store
type Option func(*Store)

// WithClock replaces the time source used for id generation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open loads the document from backend and starts the flusher.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	data, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s store: %w", backend.Name(), err)
	}
	if data == nil {
		data = NewData()
	}
	data.normalize()

	s := &Store{
		data:    data,
		backend: backend,
		now:     time.Now,
		notify:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastID = maxID(data)

	s.wg.Add(1)
	go s.flushLoop()

	log.Info().
		Str("backend", backend.Name()).
		Int("tables", len(data.Tables)).
		Int("orders", len(data.Orders)).
		Msg("Document store opened")
	return s, nil
}

// Read runs fn with shared access to the document. fn must not retain or
// mutate anything it reads.
func (s *Store) Read(fn func(d *Data)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// Update runs fn with exclusive access to the document. fn must validate
// before mutating: a returned error leaves the version unchanged and nothing
// is flushed, so a partial mutation would only be persisted by a later update.
func (s *Store) Update(fn func(d *Data) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := fn(s.data); err != nil {
		s.mu.Unlock()
		return err
	}
	s.version++
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Version returns the current document version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// NextID returns a creation-time based id, strictly greater than every id
// handed out or loaded before.
func (s *Store) NextID() int64 {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// ObserveID makes later NextID results exceed id. Callers that insert records
// carrying their own ids report them here.
func (s *Store) ObserveID(id int64) {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	s.lastID = max(s.lastID, id)
}

// Flush persists the current version synchronously.
func (s *Store) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	// Snapshot under flushMu so saves land in version order.
	s.mu.RLock()
	version := s.version
	snapshot, err := s.data.Clone()
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if version <= s.flushed && s.lastErr == nil {
		return nil
	}

	start := time.Now()
	err = s.backend.Save(ctx, snapshot)
	metrics.StoreFlushDuration.WithLabelValues(s.backend.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		s.lastErr = err
		s.degraded.Store(true)
		metrics.StoreFlushesTotal.WithLabelValues(s.backend.Name(), "error").Inc()
		metrics.StoreDegraded.Set(1)
		log.Error().Err(err).Uint64("version", version).Str("backend", s.backend.Name()).Msg("Failed to flush document store")
		return fmt.Errorf("failed to flush store: %w", err)
	}

	if version > s.flushed {
		s.flushed = version
	}
	s.lastErr = nil
	if s.degraded.Swap(false) {
		log.Info().Uint64("version", version).Msg("Document store recovered")
	}
	metrics.StoreFlushesTotal.WithLabelValues(s.backend.Name(), "success").Inc()
	metrics.StoreDegraded.Set(0)
	log.Debug().Uint64("version", version).Msg("Document store flushed")
	return nil
}

// Degraded reports whether the last flush failed.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

// LastFlushError returns the error of the last failed flush, or nil.
func (s *Store) LastFlushError() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.lastErr
}

// Close stops the flusher, performs a final flush and closes the backend.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	flushErr := s.Flush(ctx)
	if err := s.backend.Close(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("failed to close backend: %w", err))
	}
	return flushErr
}

func (s *Store) flushLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.notify:
			// Errors are recorded on the store.
			_ = s.Flush(context.Background())
		}
	}
}

func maxID(d *Data) int64 {
	var id int64
	for _, t := range d.Tables {
		id = max(id, t.ID)
	}
	for _, o := range d.Orders {
		id = max(id, o.ID)
	}
	for _, p := range d.Products {
		id = max(id, p.ID)
	}
	for _, c := range d.Categories {
		id = max(id, c.ID)
	}
	for _, u := range d.Users {
		id = max(id, u.ID)
	}
	return id
}
