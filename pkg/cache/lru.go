// Package cache implements the Decision fingerprint cache: a
// byte-budgeted LRU with TTL expiry and single-flight request
// coalescing, optionally mirrored to Redis for cross-instance reuse.
package cache

import (
	"container/list"
	"sync"
)

// lru is a generic, byte-budgeted least-recently-used cache. Eviction
// runs whenever either the entry count or the byte budget is exceeded.
type lru[K comparable, V any] struct {
	mu          sync.Mutex
	ll          *list.List
	entries     map[K]*list.Element
	capEntries  int
	capBytes    int64
	curBytes    int64
	sizeOfValue func(V) int64
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	size  int64
}

func newLRU[K comparable, V any](capEntries int, capBytes int64, sizeOfValue func(V) int64) *lru[K, V] {
	if capEntries <= 0 {
		capEntries = 1
	}
	if capBytes < 0 {
		capBytes = 0
	}
	return &lru[K, V]{
		ll:          list.New(),
		entries:     make(map[K]*list.Element, capEntries),
		capEntries:  capEntries,
		capBytes:    capBytes,
		sizeOfValue: sizeOfValue,
	}
}

func (l *lru[K, V]) get(k K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.entries[k]; ok {
		l.ll.MoveToFront(el)
		en := el.Value.(lruEntry[K, V])
		return en.value, true
	}
	var zero V
	return zero, false
}

func (l *lru[K, V]) put(k K, v V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.entries[k]; ok {
		en := el.Value.(lruEntry[K, V])
		l.curBytes -= en.size
		en.value = v
		en.size = l.sizeOfValue(v)
		el.Value = en
		l.curBytes += en.size
		l.ll.MoveToFront(el)
		l.evict()
		return
	}

	en := lruEntry[K, V]{key: k, value: v, size: l.sizeOfValue(v)}
	el := l.ll.PushFront(en)
	l.entries[k] = el
	l.curBytes += en.size
	l.evict()
}

func (l *lru[K, V]) delete(k K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.entries[k]; ok {
		en := el.Value.(lruEntry[K, V])
		l.curBytes -= en.size
		delete(l.entries, k)
		l.ll.Remove(el)
	}
}

func (l *lru[K, V]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ll.Len()
}

func (l *lru[K, V]) evict() {
	for (l.capEntries > 0 && l.ll.Len() > l.capEntries) || (l.capBytes > 0 && l.curBytes > l.capBytes) {
		el := l.ll.Back()
		if el == nil {
			return
		}
		en := el.Value.(lruEntry[K, V])
		delete(l.entries, en.key)
		l.curBytes -= en.size
		l.ll.Remove(el)
	}
}
