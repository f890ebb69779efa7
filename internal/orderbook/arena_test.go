package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// growingArena exercises the arena across its pre-warmed capacity boundary:
// inserts up to capacity must reuse slots pushed by newArena, and inserts
// beyond it must grow by appending (ported from original_source's
// arena.rs::growing_arena, which specifically targets a bug where orders
// inserted past the pre-allocated capacity ended up with swapped price/qty).
func TestArena_Growing(t *testing.T) {
	for capacity := 0; capacity < 30; capacity++ {
		a := newArena(capacity)

		for i := 0; i < capacity; i++ {
			a.insert(FromUint64(uint64(i)), Price(i*100+i), Quantity(2*i), Bid)
		}
		for i := 0; i < capacity; i++ {
			price, _, h, ok := a.get(FromUint64(uint64(i)))
			assert.True(t, ok)
			assert.EqualValues(t, i*100+i, price)
			assert.EqualValues(t, capacity-i-1, h)
		}
		for i := capacity; i < 2*capacity; i++ {
			_, _, _, ok := a.get(FromUint64(uint64(i)))
			assert.False(t, ok)
		}

		for i := capacity; i < 2*capacity; i++ {
			a.insert(FromUint64(uint64(i)), Price(i*100+i), Quantity(2*i), Bid)
		}
		for i := 0; i < capacity; i++ {
			price, _, h, ok := a.get(FromUint64(uint64(i)))
			assert.True(t, ok)
			assert.EqualValues(t, i*100+i, price)
			assert.EqualValues(t, capacity-i-1, h)
		}
		for i := capacity; i < 2*capacity; i++ {
			price, _, h, ok := a.get(FromUint64(uint64(i)))
			assert.True(t, ok)
			assert.EqualValues(t, i*100+i, price)
			assert.EqualValues(t, i, h)
		}
	}
}

func TestArena_DeleteReusesSlot(t *testing.T) {
	a := newArena(1)
	h0 := a.insert(FromUint64(1), 100, 5, Bid)

	assert.True(t, a.delete(FromUint64(1)))
	assert.False(t, a.delete(FromUint64(1)), "a second delete of the same id must report false")

	_, _, _, ok := a.get(FromUint64(1))
	assert.False(t, ok)

	h1 := a.insert(FromUint64(2), 200, 7, Ask)
	assert.Equal(t, h0, h1, "freed slot must be reused before growing")

	price, side, _, ok := a.get(FromUint64(2))
	assert.True(t, ok)
	assert.EqualValues(t, 200, price)
	assert.Equal(t, Ask, side)
}
