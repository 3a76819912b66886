package domain

import "time"

// Sentinel actors for audit entries without a staff principal.
const (
	ActorAnonymous = "anonymous"
	ActorSystem    = "system"
	ActorCustomer  = "customer"
)

// AuditLogEntry is one immutable record of a state-changing action.
type AuditLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"user"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// ActorOf returns the username of p, or fallback when p is nil.
func ActorOf(p *Principal, fallback string) string {
	if p == nil || p.Username == "" {
		return fallback
	}
	return p.Username
}
