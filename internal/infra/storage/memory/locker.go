package memory

import (
	"context"
	"sync"

	"spacebook/internal/app/policies"
)

// keyedMutex is a set of context-aware mutexes created on demand per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	kl, ok := k.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = kl
	}
	kl.refs++
	k.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		k.unref(key, kl)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			k.unref(key, kl)
		})
	}, nil
}

func (k *keyedMutex) unref(key string, kl *keyLock) {
	k.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// SpaceLocker serializes writers of a space inside one process.
type SpaceLocker struct {
	locks *keyedMutex
}

func NewSpaceLocker() *SpaceLocker {
	return &SpaceLocker{locks: newKeyedMutex()}
}

func (l *SpaceLocker) Lock(ctx context.Context, spaceID string) (func(), error) {
	return l.locks.lock(ctx, "space:"+spaceID)
}

var _ policies.SpaceLocker = (*SpaceLocker)(nil)
