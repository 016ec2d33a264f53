package domain

import "time"

// Webhook represents an owner's subscription to a match lifecycle event.
type Webhook struct {
	WebhookID string
	OwnerID   string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
