package orderbook

// Handle is a stable integer index into an arena slot. It remains valid
// until the slot is freed (via delete) and reissued by a later insert; the
// engine must never retain a handle across a delete of the same id (spec
// §4.1 contract).
type Handle int

// restingOrder is the dense record stored per arena slot. qty == 0 marks a
// logically dead slot awaiting reuse (spec §3, LimitOrder invariant).
type restingOrder struct {
	id    OrderID
	price Price
	qty   Quantity
	side  Side
}

// arena is a dense, slot-reusing store of resting limit orders: O(1)
// insert, O(1) delete by id, O(1) lookup by id, O(1) indexed access by
// handle. Pre-warmed to its configured capacity so steady-state inserts
// never allocate (spec §4.1, §5 "Allocation discipline").
type arena struct {
	orders []restingOrder
	free   []Handle
	byID   map[OrderID]Handle
}

func newArena(capacity int) *arena {
	a := &arena{
		orders: make([]restingOrder, 0, capacity),
		free:   make([]Handle, 0, capacity),
		byID:   make(map[OrderID]Handle, capacity),
	}
	for i := 0; i < capacity; i++ {
		a.orders = append(a.orders, restingOrder{})
		a.free = append(a.free, Handle(i))
	}
	return a
}

// insert records a new resting order and returns its handle, reusing a free
// slot when one is available.
func (a *arena) insert(id OrderID, price Price, qty Quantity, side Side) Handle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.orders[h] = restingOrder{id: id, price: price, qty: qty, side: side}
		a.byID[id] = h
		return h
	}
	a.orders = append(a.orders, restingOrder{id: id, price: price, qty: qty, side: side})
	h := Handle(len(a.orders) - 1)
	a.byID[id] = h
	return h
}

// get looks up a live order by id, returning its price, side and handle.
func (a *arena) get(id OrderID) (price Price, side Side, h Handle, ok bool) {
	h, ok = a.byID[id]
	if !ok {
		return 0, 0, 0, false
	}
	o := a.orders[h]
	return o.price, o.side, h, true
}

// delete removes the id mapping and marks the slot dead, returning whether
// a mapping existed. Idempotent: deleting an unknown id is a no-op that
// returns false (spec §4.4.3, cancel is idempotent at the façade level).
func (a *arena) delete(id OrderID) bool {
	h, ok := a.byID[id]
	if !ok {
		return false
	}
	delete(a.byID, id)
	a.orders[h].qty = 0
	a.free = append(a.free, h)
	return true
}

// at returns a direct reference to the slot at h for the matcher's inner
// loop; callers must not retain it across an insert/delete that could
// reallocate the backing slice.
func (a *arena) at(h Handle) *restingOrder {
	return &a.orders[h]
}
