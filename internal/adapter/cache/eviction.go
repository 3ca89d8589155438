package cache

// EvictionPolicy decides which memoised paths to drop. Implementations are
// called with the cache lock held and need no locking of their own.
type EvictionPolicy interface {
	// Added records a new entry and returns the keys to evict.
	Added(key string) []string
	// Accessed records a hit on key.
	Accessed(key string)
	// Removed forgets key.
	Removed(key string)
	// Reset forgets every key.
	Reset()
}

// Unbounded never evicts.
type Unbounded struct{}

func (Unbounded) Added(string) []string { return nil }
func (Unbounded) Accessed(string)       {}
func (Unbounded) Removed(string)        {}
func (Unbounded) Reset()                {}

// LRU keeps at most maxEntries keys, evicting the least recently used.
type LRU struct {
	maxEntries int
	order      []string
}

// NewLRU returns an LRU policy; maxEntries below 1 is treated as 1.
func NewLRU(maxEntries int) *LRU {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &LRU{maxEntries: maxEntries, order: make([]string, 0, maxEntries)}
}

// PolicyFor returns NewLRU(maxEntries), or Unbounded when maxEntries is 0 or
// less.
func PolicyFor(maxEntries int) EvictionPolicy {
	if maxEntries <= 0 {
		return Unbounded{}
	}
	return NewLRU(maxEntries)
}

func (l *LRU) Added(key string) []string {
	l.removeFromOrder(key)
	l.order = append(l.order, key)

	var evicted []string
	for len(l.order) > l.maxEntries {
		evicted = append(evicted, l.order[0])
		l.order = l.order[1:]
	}
	return evicted
}

func (l *LRU) Accessed(key string) {
	if l.removeFromOrder(key) {
		l.order = append(l.order, key)
	}
}

func (l *LRU) Removed(key string) {
	l.removeFromOrder(key)
}

func (l *LRU) Reset() {
	l.order = l.order[:0]
}

func (l *LRU) removeFromOrder(key string) bool {
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return true
		}
	}
	return false
}
