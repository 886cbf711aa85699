package mastery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/abhisek/skilltrace/internal/store"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHistory is an in-memory attempt log.
type fakeHistory struct {
	mu     sync.Mutex
	events []store.AttemptEvent
	seq    int64
	err    error
}

// add appends an attempt at baseTime + minute.
func (h *fakeHistory) add(learnerID, questionID string, chosen, minute int) store.AttemptEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	ev := store.AttemptEvent{
		ID:           questionID,
		Sequence:     h.seq,
		LearnerID:    learnerID,
		QuestionID:   questionID,
		ChosenOption: chosen,
		Timestamp:    baseTime.Add(time.Duration(minute) * time.Minute),
	}
	h.events = append(h.events, ev)
	return ev
}

func (h *fakeHistory) LearnerAttempts(_ context.Context, learnerID string, opts store.QueryOpts) ([]store.AttemptEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	var out []store.AttemptEvent
	for _, ev := range h.events {
		if ev.LearnerID == learnerID && ev.Sequence > opts.After {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

// memoryCache is an in-memory SnapshotStore.
type memoryCache struct {
	mu      sync.Mutex
	snaps   map[string]*store.Snapshot
	saves   int
	readErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{snaps: make(map[string]*store.Snapshot)}
}

func (c *memoryCache) Latest(_ context.Context, learnerID string) (*store.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.snaps[learnerID], nil
}

func (c *memoryCache) Save(_ context.Context, snap *store.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	c.snaps[snap.LearnerID] = snap
	return nil
}

func (c *memoryCache) Delete(_ context.Context, learnerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, learnerID)
	return nil
}

var errBoom = errors.New("boom")
