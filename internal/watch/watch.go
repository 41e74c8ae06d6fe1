// internal/watch/watch.go
package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"memberdesk/pkg/kvstore"
)

// DefaultInterval is the polling cadence. Not safety-critical.
const DefaultInterval = 5 * time.Second

const lastStatusPrefix = "membership_last_status/"

// LastStatusKey is the store key holding a user's last-observed registration
// status. Persisted so the baseline survives a reload.
func LastStatusKey(userID string) string {
	return lastStatusPrefix + userID
}

// StatusSource reports the current registration status for a user. ok is
// false when the user has no registration at all.
type StatusSource interface {
	StatusForUser(ctx context.Context, userID string) (status string, ok bool, err error)
}

// Transition is a single observed status change.
type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Tracker performs one observation step at a time: it diffs the current
// status against the persisted last-observed value and reports a transition
// at most once per distinct change. The very first observation establishes
// the baseline without reporting anything, so a fresh login never produces a
// spurious notification. A discard-and-resubmit cycle that lands on the same
// status value is not a transition.
type Tracker struct {
	store  kvstore.Store
	source StatusSource
}

func NewTracker(store kvstore.Store, source StatusSource) *Tracker {
	return &Tracker{store: store, source: source}
}

// Observe runs one polling step for userID. It returns a non-nil Transition
// only when the status differs from the last observed value and a baseline
// already existed.
func (t *Tracker) Observe(ctx context.Context, userID string) (*Transition, error) {
	status, ok, err := t.source.StatusForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	if !ok {
		return nil, nil
	}

	key := LastStatusKey(userID)
	last := ""
	data, err := t.store.Get(ctx, key)
	if err != nil && !errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, fmt.Errorf("read last status: %w", err)
	}
	if err == nil {
		last = string(data)
	}

	if last == status {
		return nil, nil
	}

	if err := t.store.Set(ctx, key, []byte(status)); err != nil {
		return nil, fmt.Errorf("save last status: %w", err)
	}

	if last == "" {
		// Baseline established silently.
		return nil, nil
	}
	return &Transition{From: last, To: status}, nil
}

// Watcher drives a Tracker on a fixed interval. One delivery mechanism among
// possible ones; the Tracker contract is what matters.
type Watcher struct {
	tracker  *Tracker
	interval time.Duration
}

func NewWatcher(tracker *Tracker, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{tracker: tracker, interval: interval}
}

// Watch polls until ctx is cancelled, invoking onChange once per observed
// transition. It never invokes onChange after cancellation. Blocks; run it
// in its own goroutine.
func (w *Watcher) Watch(ctx context.Context, userID string, onChange func(Transition)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			transition, err := w.tracker.Observe(ctx, userID)
			if err != nil {
				log.Printf("watch: observe failed for user %s: %v", userID, err)
				continue
			}
			if transition != nil {
				onChange(*transition)
			}
		}
	}
}
