package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a held session lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes turn processing for one booking session
// across replicas. A session key (company + call) admits one writer at
// a time, so concurrent webhook deliveries for the same call cannot
// interleave their read-merge-save cycles and drop slot revisions.
type DistributedLocker interface {
	// Lock acquires the lock for a session key, blocking until it is
	// held or ctx is canceled. The ttl bounds how long a crashed holder
	// can wedge the session. The returned UnlockFunc MUST be called to
	// release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
