package cache

// recency is an intrusive list of entries ordered by last use. Entries are
// appended at the back when touched, so the front is always the stalest and
// Advance only ever looks at the front. It is not safe for concurrent use.
type recency[K comparable, V any] struct {
	front, back *cacheEntry[K, V]
	n           int
}

// touch moves e to the back, inserting it if it is not linked yet.
func (r *recency[K, V]) touch(e *cacheEntry[K, V]) {
	if r.back == e {
		return
	}
	if e.linked {
		r.unlink(e)
	}
	e.prev, e.next = r.back, nil
	if r.back != nil {
		r.back.next = e
	} else {
		r.front = e
	}
	r.back = e
	e.linked = true
	r.n++
}

// stalest returns the least recently used entry, or nil.
func (r *recency[K, V]) stalest() *cacheEntry[K, V] { return r.front }

func (r *recency[K, V]) unlink(e *cacheEntry[K, V]) {
	if !e.linked {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		r.front = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		r.back = e.prev
	}
	e.prev, e.next, e.linked = nil, nil, false
	r.n--
}

func (r *recency[K, V]) reset() { *r = recency[K, V]{} }
