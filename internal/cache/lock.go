package cache

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// staleAfter is how old a lock record may get before another process is
// allowed to reclaim it: a crashed owner never releases.
const staleAfter = 5 * time.Minute

// acquireRetryInterval is the sleep between create-exclusive attempts.
const acquireRetryInterval = 100 * time.Millisecond

// ErrLockTimeout is returned when the lock could not be acquired within
// the caller's timeout. Callers typically surface it as "cache busy".
var ErrLockTimeout = eris.New("cache: lock acquisition timed out")

// LockRecord is the JSON document written into the lock file.
type LockRecord struct {
	OwnerID    string    `json:"ownerId"`
	Hostname   string    `json:"hostname"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// LockStatus classifies a lock file for diagnostics.
type LockStatus string

const (
	// LockStatusNone means no lock file exists.
	LockStatusNone LockStatus = "none"
	// LockStatusUnlocked means a lock file exists but is unreadable or
	// corrupt; it does not represent a live owner.
	LockStatusUnlocked LockStatus = "unlocked"
	// LockStatusLocked means a live owner holds the lock.
	LockStatusLocked LockStatus = "locked"
	// LockStatusStale means the lock record is older than the staleness
	// cutoff and will be reclaimed by the next acquirer.
	LockStatusStale LockStatus = "stale"
)

// Lock is an advisory cross-process mutex co-located with a cache file.
// It guards the cache file only by convention: every process must go
// through Acquire/Release around its cache writes.
type Lock struct {
	path    string
	ownerID string
	now     func() time.Time
}

// LockOption configures a Lock.
type LockOption func(*Lock)

// WithLockNow sets the clock, for staleness tests.
func WithLockNow(now func() time.Time) LockOption {
	return func(l *Lock) {
		l.now = now
	}
}

// NewLock creates a lock for the given cache file path. The lock file
// lives next to the cache file with a ".lock" extension.
func NewLock(cachePath string, opts ...LockOption) *Lock {
	l := &Lock{
		path:    LockPath(cachePath),
		ownerID: uuid.New().String(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LockPath derives the lock file path from a cache file path by replacing
// its extension.
func LockPath(cachePath string) string {
	if i := strings.LastIndex(cachePath, "."); i > strings.LastIndexByte(cachePath, os.PathSeparator) {
		return cachePath[:i] + ".lock"
	}
	return cachePath + ".lock"
}

// Acquire blocks until the lock is held or timeout elapses. Each attempt
// first clears a stale or unreadable lock file, then tries an atomic
// create-exclusive; on contention it sleeps briefly and retries. I/O
// errors other than "already exists" abort immediately.
func (l *Lock) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline := l.now().Add(timeout)

	for {
		l.reclaimDead()

		ok, err := l.tryAcquire()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if !l.now().Before(deadline) {
			return ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "cache: lock wait interrupted")
		case <-time.After(acquireRetryInterval):
		}
	}
}

// tryAcquire attempts the atomic create-exclusive write of the lock
// record. Returns false with no error when another process holds the lock.
func (l *Lock) tryAcquire() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, eris.Wrap(err, "cache: create lock file")
	}

	rec := LockRecord{
		OwnerID:    l.ownerID,
		Hostname:   hostname(),
		PID:        os.Getpid(),
		AcquiredAt: l.now().UTC(),
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(rec); err != nil {
		f.Close()
		_ = os.Remove(l.path)
		return false, eris.Wrap(err, "cache: write lock record")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(l.path)
		return false, eris.Wrap(err, "cache: close lock file")
	}
	return true, nil
}

// reclaimDead deletes the lock file when its record is stale or cannot be
// read. Best-effort: a concurrent reclaim losing the race is fine, the
// create-exclusive that follows is the real arbiter.
func (l *Lock) reclaimDead() {
	rec, err := readLockRecord(l.path)
	if err != nil {
		if os.IsNotExist(eris.Cause(err)) {
			return
		}
		zap.L().Warn("cache: removing unreadable lock file",
			zap.String("path", l.path),
			zap.Error(err),
		)
		_ = os.Remove(l.path)
		return
	}
	if l.now().UTC().Sub(rec.AcquiredAt) > staleAfter {
		zap.L().Warn("cache: reclaiming stale lock",
			zap.String("path", l.path),
			zap.String("owner", rec.OwnerID),
			zap.Int("pid", rec.PID),
		)
		_ = os.Remove(l.path)
	}
}

// Release deletes the lock file, but only when its recorded owner still
// matches this instance: a lock reclaimed after staleness eviction must
// not be released out from under its new owner. Best-effort, never fails.
func (l *Lock) Release() {
	rec, err := readLockRecord(l.path)
	if err != nil {
		return
	}
	if rec.OwnerID != l.ownerID {
		return
	}
	_ = os.Remove(l.path)
}

// CheckStatus classifies the lock file at path without mutating it. The
// returned record is non-nil for locked and stale states.
func CheckStatus(path string, opts ...LockOption) (LockStatus, *LockRecord) {
	l := &Lock{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	rec, err := readLockRecord(path)
	if err != nil {
		if os.IsNotExist(eris.Cause(err)) {
			return LockStatusNone, nil
		}
		return LockStatusUnlocked, nil
	}
	if l.now().UTC().Sub(rec.AcquiredAt) > staleAfter {
		return LockStatusStale, rec
	}
	return LockStatusLocked, rec
}

func readLockRecord(path string) (*LockRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: read lock file")
	}
	var rec LockRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, eris.Wrap(err, "cache: parse lock record")
	}
	return &rec, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
