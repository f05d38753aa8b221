package postgres

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADVISORY LOCKS
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLockWaitTimeout bounds how long a recompute waits for a contended
// row lock before giving up with shared.ErrLockContention.
const DefaultLockWaitTimeout = 3 * time.Second

// AdvisoryLocker implements scoring.RowLocker on top of PostgreSQL
// session-level advisory locks. Each lock pins a dedicated pool connection
// until Unlock; locks are never taken inside a transaction.
type AdvisoryLocker struct {
	conn        *Connection
	waitTimeout time.Duration
}

// NewAdvisoryLocker creates a locker with the default wait timeout.
func NewAdvisoryLocker(conn *Connection) *AdvisoryLocker {
	return &AdvisoryLocker{conn: conn, waitTimeout: DefaultLockWaitTimeout}
}

// NewAdvisoryLockerWithTimeout creates a locker with a custom wait timeout.
func NewAdvisoryLockerWithTimeout(conn *Connection, waitTimeout time.Duration) *AdvisoryLocker {
	if waitTimeout <= 0 {
		waitTimeout = DefaultLockWaitTimeout
	}
	return &AdvisoryLocker{conn: conn, waitTimeout: waitTimeout}
}

// LockScoreRow takes the lock of one score cache row.
func (l *AdvisoryLocker) LockScoreRow(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID, problemID shared.ProblemID) (scoring.Unlocker, error) {
	key := advisoryKey(fmt.Sprintf("scorecache:%d:%d:%d", contestID, teamID, problemID))
	return l.acquire(ctx, key, shared.ErrScoreRowLockTimeout)
}

// LockRankRow takes the lock of one rank cache row.
func (l *AdvisoryLocker) LockRankRow(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID) (scoring.Unlocker, error) {
	key := advisoryKey(fmt.Sprintf("rankcache:%d:%d", contestID, teamID))
	return l.acquire(ctx, key, shared.ErrRankRowLockTimeout)
}

func (l *AdvisoryLocker) acquire(ctx context.Context, key int64, timeoutErr error) (scoring.Unlocker, error) {
	if l.conn.IsClosed() {
		return nil, ErrConnectionClosed
	}

	conn, err := l.conn.Pool().Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to acquire connection for advisory lock: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	// pg_advisory_lock blocks until the lock is granted. Cancelling the
	// statement destroys the session, so a timed-out wait cannot leave
	// the lock held.
	if _, err := conn.Exec(waitCtx, "SELECT pg_advisory_lock($1)", key); err != nil {
		conn.Release()
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("advisory lock %d: %w", key, timeoutErr)
		}
		return nil, fmt.Errorf("postgres: failed to take advisory lock %d: %w", key, err)
	}

	return &advisoryUnlocker{conn: conn, key: key}, nil
}

// advisoryUnlocker releases a session advisory lock and returns its
// connection to the pool.
type advisoryUnlocker struct {
	conn *pgxpool.Conn
	key  int64

	mu   sync.Mutex
	done bool
}

// Unlock releases the lock. Failure to release means the session may still
// hold the lock and is treated as a fatal integrity error.
func (u *advisoryUnlocker) Unlock(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return fmt.Errorf("advisory lock %d already released: %w", u.key, shared.ErrLockRelease)
	}
	u.done = true
	defer u.conn.Release()

	var released bool
	err := u.conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", u.key).Scan(&released)
	if err != nil {
		return fmt.Errorf("advisory lock %d: %v: %w", u.key, err, shared.ErrLockRelease)
	}
	if !released {
		return fmt.Errorf("advisory lock %d was not held: %w", u.key, shared.ErrLockRelease)
	}

	return nil
}

// advisoryKey hashes a lock name into the signed 64-bit key space of
// pg_advisory_lock.
func advisoryKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}
