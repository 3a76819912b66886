package audit

import (
	"context"

	"mesa/internal/domain"
	"mesa/internal/store"
)

// StoreSink appends to the auditLogs collection of the document store.
type StoreSink struct {
	store *store.Store
}

// NewStoreSink creates a sink backed by s.
func NewStoreSink(s *store.Store) *StoreSink {
	return &StoreSink{store: s}
}

func (s *StoreSink) Append(_ context.Context, entry domain.AuditLogEntry) error {
	return s.store.Update(func(d *store.Data) error {
		d.AuditLogs = append(d.AuditLogs, entry)
		return nil
	})
}

// Entries returns a copy of the stored entries in insertion order.
func (s *StoreSink) Entries() []domain.AuditLogEntry {
	var out []domain.AuditLogEntry
	s.store.Read(func(d *store.Data) {
		out = make([]domain.AuditLogEntry, len(d.AuditLogs))
		copy(out, d.AuditLogs)
	})
	return out
}
