package idempotency

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	rec       Record
	expiresAt time.Time
}

// Memory is a process-local Store. Records are only visible to this instance.
type Memory struct {
	mu    sync.Mutex
	items map[string]memEntry
	now   func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closed    bool
}

func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	m := &Memory{
		items: make(map[string]memEntry),
		now:   o.now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if o.sweepInterval > 0 {
		go m.janitor(o.sweepInterval)
	} else {
		close(m.done)
	}
	return m
}

func (m *Memory) janitor(every time.Duration) {
	defer close(m.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

// Sweep removes expired records and reports how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.items {
		if !now.Before(e.expiresAt) {
			delete(m.items, k)
			n++
		}
	}
	return n
}

// Len reports the number of stored records, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// live returns the unexpired entry for key, evicting it when stale. Caller holds mu.
func (m *Memory) live(key string, now time.Time) (memEntry, bool) {
	e, ok := m.items[key]
	if !ok {
		return memEntry{}, false
	}
	if !now.Before(e.expiresAt) {
		delete(m.items, key)
		return memEntry{}, false
	}
	return e, true
}

func (m *Memory) Claim(ctx context.Context, key string, rec Record, window, ttl time.Duration) (Record, bool, error) {
	if key == "" {
		return Record{}, false, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Record{}, false, ErrClosed
	}
	now := m.now()
	if e, ok := m.live(key, now); ok && now.Sub(e.rec.Timestamp) < window {
		return e.rec, false, nil
	}
	rec.Timestamp = now
	m.items[key] = memEntry{rec: rec, expiresAt: now.Add(ttl)}
	return rec, true, nil
}

func (m *Memory) Get(ctx context.Context, key string) (Record, bool, error) {
	if key == "" {
		return Record{}, false, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Record{}, false, ErrClosed
	}
	e, ok := m.live(key, m.now())
	return e.rec, ok, nil
}

func (m *Memory) Put(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	now := m.now()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	if ttl <= 0 {
		delete(m.items, key)
		return nil
	}
	m.items[key] = memEntry{rec: rec, expiresAt: now.Add(ttl)}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Close stops the janitor and waits for it to exit.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.stop)
	})
	<-m.done
	return nil
}
