package coach

import (
	"context"
	"sync"
)

// keyedSlots hands out per-key turns in reservation order. Reserve is cheap
// and never blocks, so a transport can reserve in arrival order and do the
// actual work on another goroutine.
type keyedSlots struct {
	mu    sync.Mutex
	tails map[string]*slot
}

type slot struct {
	owner *keyedSlots
	key   string
	prev  <-chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newKeyedSlots() *keyedSlots {
	return &keyedSlots{tails: make(map[string]*slot)}
}

func (k *keyedSlots) Reserve(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()

	s := &slot{owner: k, key: key, done: make(chan struct{})}
	if tail, ok := k.tails[key]; ok {
		s.prev = tail.done
	}
	k.tails[key] = s
	return s
}

// Wait blocks until every earlier slot for the key is released. On
// cancellation the slot is released as soon as its predecessor is, so the
// queue behind it keeps moving.
func (s *slot) Wait(ctx context.Context) error {
	if s.prev == nil {
		return nil
	}
	select {
	case <-s.prev:
		return nil
	case <-ctx.Done():
		go func() {
			<-s.prev
			s.Release()
		}()
		return ctx.Err()
	}
}

func (s *slot) Release() {
	s.once.Do(func() {
		s.owner.mu.Lock()
		if s.owner.tails[s.key] == s {
			delete(s.owner.tails, s.key)
		}
		s.owner.mu.Unlock()
		close(s.done)
	})
}
