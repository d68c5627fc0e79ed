package listener

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupIndex_Seen(t *testing.T) {
	d := newDedupIndex()

	assert.False(t, d.Seen("client_a", 1))
	assert.True(t, d.Seen("client_a", 1), "second delivery is a duplicate")

	// Ids are scoped per source.
	assert.False(t, d.Seen("client_b", 1))
}

func TestDedupIndex_WindowEviction(t *testing.T) {
	d := newDedupIndex()

	for id := int64(1); id <= dedupWindow; id++ {
		assert.False(t, d.Seen("src", id))
	}
	assert.True(t, d.Seen("src", 1), "still inside the window")

	// One more unique id evicts the oldest entry. Duplicate checks do
	// not refresh recency, so id 1 is evicted first.
	assert.False(t, d.Seen("src", dedupWindow+1))
	assert.False(t, d.Seen("src", 1), "evicted id is fresh again")
	assert.True(t, d.Seen("src", 3), "younger ids stay in the window")
}

func TestIDRing_Add(t *testing.T) {
	r := newIDRing()
	assert.False(t, r.add(5))
	assert.True(t, r.add(5))
	assert.Equal(t, 1, r.size)
}
