// Package localcache keeps a JSON-serializable value under a key in a local
// medium and shares every write with the other instances that hold the same key,
// both inside the process and, through the medium, across processes.
package localcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Change is a write to a key made by another process.
type Change struct {
	Key     string
	Payload []byte
}

// Medium persists serialized values by key.
type Medium interface {
	// Load returns nil and no error when the key is absent.
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, payload []byte) error
	// Watch streams writes made by other processes until ctx is done.
	Watch(ctx context.Context) (<-chan Change, error)
}

// Hub coordinates the cache instances of one process. Writes to the same key
// are serialized and delivered to every other instance in write order.
type Hub struct {
	mu   sync.Mutex
	keys map[string]*keyState
}

type keyState struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func([]byte)
}

func NewHub() *Hub {
	return &Hub{keys: make(map[string]*keyState)}
}

func (h *Hub) state(key string) *keyState {
	h.mu.Lock()
	defer h.mu.Unlock()

	ks, ok := h.keys[key]
	if !ok {
		ks = &keyState{subs: make(map[uint64]func([]byte))}
		h.keys[key] = ks
	}

	return ks
}

// register must be called with ks.mu held.
func (ks *keyState) register(fn func([]byte)) uint64 {
	ks.next++
	ks.subs[ks.next] = fn

	return ks.next
}

// broadcast must be called with ks.mu held.
func (ks *keyState) broadcast(from uint64, payload []byte) {
	for id, fn := range ks.subs {
		if id != from {
			fn(payload)
		}
	}
}

// Cache is one instance holding the value of a key.
//
// Get returns the held value itself; callers must treat it as read-only and
// build new values inside Update.
type Cache[T any] struct {
	key    string
	def    T
	medium Medium
	log    *slog.Logger

	ks *keyState
	id uint64

	mu    sync.RWMutex
	value T

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Open reads the persisted value of key, falling back to def when it is absent,
// unreadable or malformed, and starts following writes from other instances.
// It only fails when ctx is already done.
func Open[T any](ctx context.Context, hub *Hub, medium Medium, key string, def T, logger *slog.Logger) (*Cache[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache[T]{
		key:    key,
		def:    def,
		medium: medium,
		log:    logger.With("component", "localcache", "key", key),
		ks:     hub.state(key),
		done:   make(chan struct{}),
	}

	c.ks.mu.Lock()

	c.value = def

	payload, err := medium.Load(ctx, key)
	if err != nil {
		c.log.Warn("reading stored value, using default", "error", err)
	} else if len(payload) > 0 {
		v, err := decode[T](payload)
		if err != nil {
			c.log.Warn("stored value is malformed, using default", "error", err)
		} else {
			c.value = v
		}
	}

	c.id = c.ks.register(c.receive)
	c.ks.mu.Unlock()

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel

	changes, err := medium.Watch(watchCtx)
	if err != nil {
		c.log.Warn("watching medium, writes from other processes will not be seen", "error", err)
		close(c.done)

		return c, nil
	}

	go c.watch(changes)

	return c, nil
}

func decode[T any](payload []byte) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("decoding value: %w", err)
	}

	return v, nil
}

// Get returns the current value.
func (c *Cache[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.value
}

// Set replaces the value.
func (c *Cache[T]) Set(ctx context.Context, v T) error {
	return c.Update(ctx, func(T) (T, bool) {
		return v, true
	})
}

// Update derives the next value from the current one while holding the key, so
// concurrent read-modify-write sequences on the same key never interleave. fn
// reports false to leave the value untouched.
//
// The new value is visible in memory and to the other instances even when
// persisting it fails; the persistence error is returned.
func (c *Cache[T]) Update(ctx context.Context, fn func(T) (T, bool)) error {
	c.ks.mu.Lock()
	defer c.ks.mu.Unlock()

	c.mu.RLock()
	next, changed := fn(c.value)
	c.mu.RUnlock()

	if !changed {
		return nil
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", c.key, err)
	}

	c.mu.Lock()
	c.value = next
	c.mu.Unlock()

	c.ks.broadcast(c.id, payload)

	if err := c.medium.Store(ctx, c.key, payload); err != nil {
		return fmt.Errorf("persisting %q: %w", c.key, err)
	}

	return nil
}

// receive applies a write made by another instance of this process. It runs
// with the key held.
func (c *Cache[T]) receive(payload []byte) {
	v, err := decode[T](payload)
	if err != nil {
		c.log.Warn("ignoring malformed update", "error", err)
		return
	}

	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
}

func (c *Cache[T]) watch(changes <-chan Change) {
	defer close(c.done)

	for ch := range changes {
		if ch.Key != c.key || len(ch.Payload) == 0 {
			continue
		}

		c.ks.mu.Lock()
		c.receive(ch.Payload)
		c.ks.mu.Unlock()
	}
}

// Close stops following other instances. The last value stays readable.
func (c *Cache[T]) Close() {
	c.once.Do(func() {
		c.ks.mu.Lock()
		delete(c.ks.subs, c.id)
		c.ks.mu.Unlock()

		c.cancel()
		<-c.done
	})
}
