package domain

import "time"

// Subscriber is one recipient on a mailing list. Fields carries the custom
// attributes exposed to campaign templates.
type Subscriber struct {
	ID           string            `json:"id" db:"id"`
	ListID       string            `json:"list_id" db:"list_id"`
	Email        string            `json:"email" db:"email"`
	FirstName    string            `json:"first_name" db:"first_name"`
	LastName     string            `json:"last_name" db:"last_name"`
	Fields       map[string]string `json:"fields,omitempty"`
	SubscribedAt time.Time         `json:"subscribed_at" db:"subscribed_at"`
}
