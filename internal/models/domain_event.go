package models

import "time"

const (
	DomainEventUserSignedUp         = "user.signed_up"
	DomainEventUserLoggedIn         = "user.logged_in"
	DomainEventWaitlistJoined       = "waitlist.joined"
	DomainEventSubscriptionVerified = "subscription.verified"
)

// DomainEvent is published to the event stream
type DomainEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Key        string                 `json:"key"`
	OccurredAt time.Time              `json:"occurredAt"`
	Payload    map[string]interface{} `json:"payload"`
}
