package materialize

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// payload is what a read produced, independent of which attachment asked.
type payload struct {
	content  string
	binary   []byte
	size     int64
	encoding string
	hash     string
	kind     Kind
}

// Registry de-duplicates reads within a run: the same canonical path loaded in
// the same mode is read once and its payload is shared by every attachment
// that references it.
type Registry struct {
	group   singleflight.Group
	mu      sync.RWMutex
	records map[string]*payload
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*payload)}
}

// load returns the cached payload for key or calls read exactly once across
// concurrent callers. Failed reads are not cached.
func (r *Registry) load(key string, read func() (*payload, error)) (*payload, error) {
	r.mu.RLock()
	rec, ok := r.records[key]
	r.mu.RUnlock()
	if ok {
		return rec, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		rec, err := read()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.records[key] = rec
		r.mu.Unlock()
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*payload), nil
}

// Len returns the number of distinct reads performed.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
