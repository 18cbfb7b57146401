package models

import "time"

type SecurityEventType string

const (
	EventLoginSucceeded SecurityEventType = "login_succeeded"
	EventLoginFailed    SecurityEventType = "login_failed"
	EventLoginSuspended SecurityEventType = "login_suspended"
	EventSignup         SecurityEventType = "signup"
)

// SecurityEvent is one row of the audit table
type SecurityEvent struct {
	EventID     string            `db:"event_id"`
	EventBucket int               `db:"event_bucket"`
	UserBucket  int               `db:"user_bucket"`
	UserID      string            `db:"user_id"`
	EventDate   string            `db:"event_date"`
	EventTime   time.Time         `db:"event_time"`
	EventType   SecurityEventType `db:"event_type"`
	IPAddress   string            `db:"ip_address"`
	UserAgent   string            `db:"user_agent"`
	Details     string            `db:"details"`
}
