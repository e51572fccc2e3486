package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mertz1999/ai-money-tracker/internal/common"
)

func sourceKey(id int64) string { return fmt.Sprintf("source:%d", id) }
func loanKey(id int64) string   { return fmt.Sprintf("loan:%d", id) }

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// lockTable serializes read-compute-write sequences per entity. Entries exist
// only while someone holds or waits for them.
type lockTable struct {
	entries map[string]*lockEntry
	mu      sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

func (lt *lockTable) ref(key string) *lockEntry {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	e, ok := lt.entries[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		lt.entries[key] = e
	}
	e.refs++
	return e
}

func (lt *lockTable) unref(key string) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	e := lt.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(lt.entries, key)
	}
}

// acquire takes every key in sorted order so that two callers locking the
// same pair cannot deadlock. Each wait is bounded by timeout; running out of
// time yields common.ErrContended and releases whatever was already held.
func (lt *lockTable) acquire(ctx context.Context, timeout time.Duration, keys ...string) (func(), error) {
	keys = dedupe(keys)
	type heldLock struct {
		entry *lockEntry
		key   string
	}
	held := make([]heldLock, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].entry.sem.Release(1)
			lt.unref(held[i].key)
		}
	}

	for _, key := range keys {
		e := lt.ref(key)

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := e.sem.Acquire(waitCtx, 1)
		cancel()

		if err != nil {
			lt.unref(key)
			release()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: waited %s for %s", common.ErrContended, timeout, key)
			}
			return nil, err
		}
		held = append(held, heldLock{entry: e, key: key})
	}

	return release, nil
}

func dedupe(keys []string) []string {
	sort.Strings(keys)
	out := keys[:0]
	for i, k := range keys {
		if i > 0 && k == keys[i-1] {
			continue
		}
		out = append(out, k)
	}
	return out
}
