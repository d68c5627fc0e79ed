package listener

import "sync"

// dedupWindow is the number of recent event ids remembered per source.
const dedupWindow = 128

// dedupIndex remembers the last ids seen from each source so redelivered
// events (transport retries after a lost ack) are dropped idempotently.
type dedupIndex struct {
	mu       sync.Mutex
	bySource map[string]*idRing
}

func newDedupIndex() *dedupIndex {
	return &dedupIndex{bySource: make(map[string]*idRing)}
}

// Seen records the id and reports whether it was already present.
func (d *dedupIndex) Seen(source string, id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ring, ok := d.bySource[source]
	if !ok {
		ring = newIDRing()
		d.bySource[source] = ring
	}
	return ring.add(id)
}

// idRing is a fixed-size ring of ids with O(1) membership.
type idRing struct {
	slots [dedupWindow]int64
	index map[int64]struct{}
	next  int
	size  int
}

func newIDRing() *idRing {
	return &idRing{index: make(map[int64]struct{}, dedupWindow)}
}

// add inserts the id, evicting the oldest entry once full, and reports
// whether the id was already present.
func (r *idRing) add(id int64) bool {
	if _, ok := r.index[id]; ok {
		return true
	}
	if r.size == dedupWindow {
		delete(r.index, r.slots[r.next])
	} else {
		r.size++
	}
	r.slots[r.next] = id
	r.index[id] = struct{}{}
	r.next = (r.next + 1) % dedupWindow
	return false
}
