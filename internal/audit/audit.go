// Package audit keeps an append-only log of state-changing actions.
package audit

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mesa/internal/domain"
	"mesa/internal/metrics"
)

// Action kinds.
const (
	ActionLoginSuccess   = "login_success"
	ActionLoginFailed    = "login_failed"
	ActionLogout         = "logout"
	ActionTableCreate    = "table_create"
	ActionTableStatus    = "table_status"
	ActionTableDelete    = "table_delete"
	ActionTableReissue   = "table_reissue"
	ActionOrderCreate    = "order_create"
	ActionOrderStatus    = "order_status"
	ActionProductCreate  = "product_create"
	ActionProductUpdate  = "product_update"
	ActionProductDelete  = "product_delete"
	ActionCategoryCreate = "category_create"
	ActionCategoryUpdate = "category_update"
	ActionCategoryDelete = "category_delete"
	ActionImport         = "import"
)

// Sink stores audit entries.
type Sink interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	Entries() []domain.AuditLogEntry
}

// Recorder appends entries to a sink. A failed append never fails the
// triggering operation; it is logged and marks the recorder degraded.
type Recorder struct {
	sink Sink
	now  func() time.Time

	mu       sync.Mutex
	lastErr  error
	degraded atomic.Bool
}

// NewRecorder creates a recorder writing to sink.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{
		sink: sink,
		now:  time.Now,
	}
}

// Record appends one entry.
func (r *Recorder) Record(ctx context.Context, actor, action, details string) {
	if actor == "" {
		actor = domain.ActorSystem
	}

	entry := domain.AuditLogEntry{
		ID:        uuid.New().String(),
		Timestamp: r.now().UTC(),
		Actor:     actor,
		Action:    action,
		Details:   details,
	}

	if err := r.sink.Append(ctx, entry); err != nil {
		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		r.degraded.Store(true)
		metrics.AuditRecordsTotal.WithLabelValues("error").Inc()
		log.Error().
			Err(err).
			Str("actor", actor).
			Str("action", action).
			Str("details", details).
			Msg("Failed to record audit entry")
		return
	}

	r.degraded.Store(false)
	metrics.AuditRecordsTotal.WithLabelValues("success").Inc()
	log.Debug().Str("actor", actor).Str("action", action).Msg("Audit entry recorded")
}

// List returns entries newest first, at most limit when limit > 0.
func (r *Recorder) List(limit int) []domain.AuditLogEntry {
	entries := r.sink.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Degraded reports whether the last append failed.
func (r *Recorder) Degraded() bool {
	return r.degraded.Load()
}

// LastError returns the error of the last failed append.
func (r *Recorder) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}
