package domain

import "time"

// AuditLog records one administrative action taken against a zone:
// zone creation, a status transition, an ACL change, a deletion. It is append-only — nothing in the core ever edits or
// deletes an existing entry.
type AuditLog struct {
	ID         string    `json:"id"`
	ZoneID     string    `json:"zoneId"`
	Account    string    `json:"account"`
	Actor      string    `json:"actor"` // Principal.UserID that performed the action
	Action     string    `json:"action"`
	Details    string    `json:"details"`
	OccurredAt time.Time `json:"occurredAt"`
}
