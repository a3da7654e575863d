package engine

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vizcore/pkg/types"
)

// poolEntry is one reusable resource owned by a pool.
type poolEntry struct {
	key        string
	payload    any
	size       int64
	lastAccess time.Time
}

// ResourcePool is a bounded store of reusable, expensive-to-build
// resources, evicted LRU on overflow. Capacity is reconfigured on every
// tier transition; a cap below current usage is enforced by the next Put
// or Trim, never by blocking the caller. After every mutating call the
// pool satisfies entries <= maxEntries and bytes <= maxBytes (0 caps mean
// unbounded).
//
// The pool carries its own lock: the host hands resources in and out on
// the render path while the debug server reads Stats.
type ResourcePool struct {
	name  string
	clock Clock
	log   zerolog.Logger

	mu         sync.Mutex
	maxEntries int
	maxBytes   int64
	ll         *list.List // front = most recently used
	items      map[string]*list.Element
	bytes      int64

	hits      uint64
	misses    uint64
	evictions uint64
	clamps    uint64

	// onEvict, when set, disposes the payload of every evicted entry.
	onEvict func(key string, payload any)
}

func newResourcePool(name string, clock Clock, log zerolog.Logger, maxEntries int, maxBytes int64, onEvict func(string, any)) *ResourcePool {
	p := &ResourcePool{
		name:    name,
		clock:   clock,
		log:     log.With().Str("pool", name).Logger(),
		ll:      list.New(),
		items:   make(map[string]*list.Element),
		onEvict: onEvict,
	}
	p.maxEntries, p.maxBytes = p.clamp(maxEntries, maxBytes)
	return p
}

// Get returns the pooled resource for key, marking it most recently used.
func (p *ResourcePool) Get(key string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	elem, ok := p.items[key]
	if !ok {
		p.misses++
		return nil, false
	}
	p.hits++
	ent := elem.Value.(*poolEntry)
	ent.lastAccess = p.clock.Now()
	p.ll.MoveToFront(elem)
	return ent.payload, true
}

// Put stores a resource under key, replacing any previous entry, then
// evicts LRU entries until the pool is back within its caps. A negative
// size is clamped to zero.
func (p *ResourcePool) Put(key string, payload any, sizeBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sizeBytes < 0 {
		p.clamps++
		p.log.Warn().Str("key", key).Int64("size", sizeBytes).Msg("negative resource size clamped to 0")
		sizeBytes = 0
	}
	now := p.clock.Now()
	if elem, ok := p.items[key]; ok {
		ent := elem.Value.(*poolEntry)
		p.bytes += sizeBytes - ent.size
		ent.payload = payload
		ent.size = sizeBytes
		ent.lastAccess = now
		p.ll.MoveToFront(elem)
	} else {
		elem := p.ll.PushFront(&poolEntry{key: key, payload: payload, size: sizeBytes, lastAccess: now})
		p.items[key] = elem
		p.bytes += sizeBytes
	}
	p.evictOverflow()
}

// Configure replaces the pool caps. Negative values are clamped to safe
// minimums and counted. Shrinking below current usage does not evict
// immediately; the next Put or Trim brings the pool within bounds.
func (p *ResourcePool) Configure(maxEntries int, maxBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxEntries, p.maxBytes = p.clamp(maxEntries, maxBytes)
}

// Trim evicts LRU entries until the pool is within its caps and returns
// the number evicted. A second Trim with no intervening Put is a no-op.
func (p *ResourcePool) Trim() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.evictOverflow()
	if n > 0 {
		p.log.Debug().Int("evicted", n).Int("entries", p.ll.Len()).Int64("bytes", p.bytes).Msg("pool trimmed")
	}
	return n
}

// Stats returns a snapshot of pool usage and counters.
func (p *ResourcePool) Stats() types.PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return types.PoolStatus{
		Name:       p.name,
		Entries:    p.ll.Len(),
		Bytes:      p.bytes,
		MaxEntries: p.maxEntries,
		MaxBytes:   p.maxBytes,
		Hits:       p.hits,
		Misses:     p.misses,
		Evictions:  p.evictions,
	}
}

// purge evicts everything, running the disposal hook per entry.
func (p *ResourcePool) purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for back := p.ll.Back(); back != nil; back = p.ll.Back() {
		ent := back.Value.(*poolEntry)
		p.ll.Remove(back)
		delete(p.items, ent.key)
		p.bytes -= ent.size
		p.evictions++
		if p.onEvict != nil {
			p.onEvict(ent.key, ent.payload)
		}
	}
}

func (p *ResourcePool) clampCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clamps
}

func (p *ResourcePool) clamp(maxEntries int, maxBytes int64) (int, int64) {
	if maxEntries < 0 {
		p.clamps++
		p.log.Warn().Int("max_entries", maxEntries).Int("floor", minPoolEntries).Msg("negative entry cap clamped")
		maxEntries = minPoolEntries
	}
	if maxBytes < 0 {
		p.clamps++
		p.log.Warn().Int64("max_bytes", maxBytes).Int64("floor", minPoolBytes).Msg("negative byte cap clamped")
		maxBytes = minPoolBytes
	}
	return maxEntries, maxBytes
}

// evictOverflow removes LRU entries until both caps hold. Caller holds mu.
func (p *ResourcePool) evictOverflow() int {
	n := 0
	for (p.maxEntries > 0 && p.ll.Len() > p.maxEntries) ||
		(p.maxBytes > 0 && p.bytes > p.maxBytes) {
		back := p.ll.Back()
		if back == nil {
			break
		}
		ent := back.Value.(*poolEntry)
		p.ll.Remove(back)
		delete(p.items, ent.key)
		p.bytes -= ent.size
		p.evictions++
		n++
		if p.onEvict != nil {
			p.onEvict(ent.key, ent.payload)
		}
	}
	return n
}
