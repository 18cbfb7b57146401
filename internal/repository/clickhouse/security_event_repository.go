package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lifestyle-api/internal/bucketing"
	"lifestyle-api/internal/models"
)

const insertSecurityEvent = `INSERT INTO security_events (
    event_id, event_bucket, user_bucket, user_id, event_date, event_time,
    event_type, ip_address, user_agent, details
)`

type batchInserter interface {
	BatchInsert(ctx context.Context, query string, rows [][]interface{}) error
}

// SecurityEventRepository appends audit rows partitioned by the
// bucketing manager. Table DDL:
//
//	ENGINE = MergeTree PARTITION BY event_date ORDER BY (event_bucket, event_time)
type SecurityEventRepository struct {
	conn    batchInserter
	buckets *bucketing.BucketingManager
	now     func() time.Time
}

func NewSecurityEventRepository(conn batchInserter, buckets *bucketing.BucketingManager) *SecurityEventRepository {
	return &SecurityEventRepository{conn: conn, buckets: buckets, now: time.Now}
}

// RecordSecurityEvent fills id, buckets and timestamps when unset.
// identifier is the actor key used when there is no user id (email or IP).
func (r *SecurityEventRepository) RecordSecurityEvent(ctx context.Context, event models.SecurityEvent, identifier string) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.EventTime.IsZero() {
		event.EventTime = r.now().UTC()
	}

	assignment := r.buckets.GetBucketAssignment(event.UserID, identifier)
	event.EventBucket = assignment.EventBucket
	event.UserBucket = assignment.UserBucket
	event.EventDate = event.EventTime.UTC().Format("2006-01-02")

	row := []interface{}{
		event.EventID,
		uint16(event.EventBucket),
		uint16(event.UserBucket),
		event.UserID,
		event.EventTime.UTC().Truncate(24 * time.Hour),
		event.EventTime,
		string(event.EventType),
		event.IPAddress,
		event.UserAgent,
		event.Details,
	}

	if err := r.conn.BatchInsert(ctx, insertSecurityEvent, [][]interface{}{row}); err != nil {
		return fmt.Errorf("failed to record security event: %w", err)
	}
	return nil
}
