package domain

import "time"

// TableStatus is the admin-driven lifecycle state of a table.
type TableStatus string

const (
	TableActive   TableStatus = "active"
	TableInactive TableStatus = "inactive"
)

// Valid reports whether s is a known table status.
func (s TableStatus) Valid() bool {
	return s == TableActive || s == TableInactive
}

// Table is a physical ordering point.
type Table struct {
	ID        int64       `json:"id"`
	Code      string      `json:"code"`
	Status    TableStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt *time.Time  `json:"expiresAt"`
	Token     string      `json:"qrPayload"`
	QRPath    string      `json:"qrPath,omitempty"`
}

// Temporary reports whether the table was registered with an expiry.
func (t *Table) Temporary() bool {
	return t.ExpiresAt != nil
}

// ExpiredAt reports whether the table's expiry has passed at now.
// Tables without an expiry never expire.
func (t *Table) ExpiredAt(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// UsableAt reports whether new orders may be placed against the table.
func (t *Table) UsableAt(now time.Time) bool {
	return t.Status == TableActive && !t.ExpiredAt(now)
}

// PublicTable is the customer-facing view of a table, without its token.
type PublicTable struct {
	Code   string      `json:"code"`
	Status TableStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
}

// Public strips issuance details from the table.
func (t *Table) Public() PublicTable {
	return PublicTable{Code: t.Code, Status: t.Status, Note: t.Note}
}
