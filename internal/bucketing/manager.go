package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"lifestyle-api/internal/config"
)

// BucketingManager spreads users and events over fixed partitions
// using murmur3. Assignments are stable for a given bucket count.
type BucketingManager struct {
	userBuckets  int
	eventBuckets int
	hasherPool   sync.Pool
	now          func() time.Time
}

type BucketAssignment struct {
	UserBucket  int    `json:"user_bucket"`
	EventBucket int    `json:"event_bucket"`
	DateBucket  string `json:"date_bucket"`
}

func NewBucketingManager(cfg config.BucketingConfig) *BucketingManager {
	bm := &BucketingManager{
		userBuckets:  cfg.UserBuckets,
		eventBuckets: cfg.EventBuckets,
		now:          time.Now,
	}
	if bm.userBuckets <= 0 {
		bm.userBuckets = 1
	}
	if bm.eventBuckets <= 0 {
		bm.eventBuckets = 1
	}

	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// GetUserBucket returns a bucket in [0, userBuckets)
func (bm *BucketingManager) GetUserBucket(userID string) int {
	return bm.getBucket(userID, bm.userBuckets)
}

// GetEventBucket returns a bucket in [0, eventBuckets)
func (bm *BucketingManager) GetEventBucket(identifier string) int {
	return bm.getBucket(identifier, bm.eventBuckets)
}

func (bm *BucketingManager) GetDateBucket() string {
	return bm.now().UTC().Format("2006-01-02")
}

// GetBucketAssignment keys the event bucket on identifier (email or IP)
// so audit rows for an anonymous actor still land together.
func (bm *BucketingManager) GetBucketAssignment(userID, identifier string) BucketAssignment {
	return BucketAssignment{
		UserBucket:  bm.GetUserBucket(userID),
		EventBucket: bm.GetEventBucket(identifier),
		DateBucket:  bm.GetDateBucket(),
	}
}

func (bm *BucketingManager) UserBuckets() int {
	return bm.userBuckets
}

func (bm *BucketingManager) EventBuckets() int {
	return bm.eventBuckets
}

func (bm *BucketingManager) getBucket(key string, numBuckets int) int {
	return int(bm.getHash(key) % uint64(numBuckets))
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
