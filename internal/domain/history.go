package domain

import "time"

// StatusHistoryEntry is the append-only audit record of one accepted status
// transition. Created exactly once per transition; never updated.
type StatusHistoryEntry struct {
	ID         string    `json:"id" db:"id"`
	EntityType string    `json:"entity_type" db:"entity_type"` // "lead", "ad_campaign", "email_campaign", "email_list"
	EntityID   string    `json:"entity_id" db:"entity_id"`
	FromStatus string    `json:"from_status" db:"from_status"`
	ToStatus   string    `json:"to_status" db:"to_status"`
	Reason     string    `json:"reason" db:"reason"`
	ActorID    string    `json:"actor_id" db:"actor_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
