package cache

import (
	"sync"

	"github.com/netspeak-go/netspeak/internal/logger"
)

var log = logger.New("cache")

// SearchOptions is the slice of per-request parameters a cache entry is
// valid under (§4.7.3, §6's phrase_constraints).
type SearchOptions struct {
	MaxPhraseCount     int
	MaxPhraseFrequency uint64
	MinLength          int
	MaxLength          int
	PruningHigh        uint64
	PruningLow         uint64
}

// IsPrunableSupersetOf reports whether o covers everything req asks for:
// same max frequency, at least as many results, an equal-or-wider length
// window, and equal-or-higher pruning thresholds (§4.7.3).
func (o SearchOptions) IsPrunableSupersetOf(req SearchOptions) bool {
	return o.MaxPhraseFrequency == req.MaxPhraseFrequency &&
		o.MaxPhraseCount >= req.MaxPhraseCount &&
		o.MinLength <= req.MinLength &&
		o.MaxLength >= req.MaxLength &&
		o.PruningHigh >= req.PruningHigh &&
		o.PruningLow >= req.PruningLow
}

type entry struct {
	options SearchOptions
	result  RawRefResult
	hits    int64
}

// Cache is a bounded, approximate-LFU result cache keyed by a NormQuery's
// canonical string form (§4.7.3). It generalizes the teacher's HotCache
// (word -> rank, evicted by access recency) to NormQuery key -> RawRefResult,
// evicted by access count instead: admission here favors broad queries over
// recency, so the least-hit entry is the one to go rather than the oldest.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	capacity int
}

// New returns an empty cache bounded at capacity entries.
func New(capacity int) *Cache {
	return &Cache{
		entries:  make(map[string]*entry, capacity),
		capacity: capacity,
	}
}

// Lookup implements the three-way policy of §4.7.3: an exact options
// match returns the cached result outright; a prunable-superset match
// returns a pruned slice; anything else is a cache miss.
func (c *Cache) Lookup(key string, req SearchOptions) (RawRefResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return RawRefResult{}, false
	}
	e.hits++

	if e.options == req {
		return e.result, true
	}
	if e.options.IsPrunableSupersetOf(req) {
		return e.result.Slice(req.MaxPhraseCount, req.MaxPhraseFrequency), true
	}
	return RawRefResult{}, false
}

// Store inserts or updates the entry for key. If an existing entry's
// result is not disjoint with result (both assumed to be slices of the
// same underlying postlist), the two are merged and the wider of the two
// options sets is kept; otherwise the existing entry's result and options
// are replaced by result and opts, and the earlier result is no longer
// cached.
func (c *Cache) Store(key string, opts SearchOptions, result RawRefResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		if !existing.result.DisjointWith(result) {
			merged := existing.result.Merge(result)
			existing.result = merged
			existing.options = widerOptions(existing.options, opts)
			return
		}
		existing.result = result
		existing.options = opts
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictLeastHit()
	}
	c.entries[key] = &entry{options: opts, result: result}
}

func widerOptions(a, b SearchOptions) SearchOptions {
	out := a
	if b.MaxPhraseCount > out.MaxPhraseCount {
		out.MaxPhraseCount = b.MaxPhraseCount
	}
	if b.MinLength < out.MinLength {
		out.MinLength = b.MinLength
	}
	if b.MaxLength > out.MaxLength {
		out.MaxLength = b.MaxLength
	}
	if b.PruningHigh > out.PruningHigh {
		out.PruningHigh = b.PruningHigh
	}
	if b.PruningLow > out.PruningLow {
		out.PruningLow = b.PruningLow
	}
	return out
}

func (c *Cache) evictLeastHit() {
	var victim string
	var minHits int64 = -1
	for k, e := range c.entries {
		if minHits < 0 || e.hits < minHits {
			minHits = e.hits
			victim = k
		}
	}
	if victim != "" {
		delete(c.entries, victim)
		log.Debugf("evicted cache entry %q (hits=%d)", victim, minHits)
	}
}

// Len reports the number of entries currently stored.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
