package aggregator_test

import (
	"context"
	"sync"
	"time"

	agg "moodweather/internal/aggregator"
)

type fakeEntry struct {
	value    string
	deadline time.Time // zero = no ttl
}

// fakeKV map-backed KVStore with a settable clock and an injectable failure
type fakeKV struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
	now     func() time.Time
	failErr error
	// failWrites applies to Set and Delete only
	failWrites error
}

func newFakeKVStore() *fakeKV {
	return &fakeKV{entries: map[string]fakeEntry{}, now: time.Now}
}

func (f *fakeKV) setFailWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = err
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return "", f.failErr
	}
	e, ok := f.entries[key]
	if !ok || (!e.deadline.IsZero() && !f.now().Before(e.deadline)) {
		return "", agg.ErrCacheMiss
	}
	return e.value, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	if f.failWrites != nil {
		return f.failWrites
	}
	e := fakeEntry{value: value}
	if ttl > 0 {
		e.deadline = f.now().Add(ttl)
	}
	f.entries[key] = e
	return nil
}

func (f *fakeKV) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	if f.failWrites != nil {
		return f.failWrites
	}
	for _, k := range keys {
		delete(f.entries, k)
	}
	return nil
}
