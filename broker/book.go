package broker

import (
	"slices"
	"sort"
)

// book is an ordered map of pending orders keyed by increasing id.
// Removing while walking a snapshot of ids is safe.
type book struct {
	ids    []int
	orders map[int]Order
}

func newBook() *book {
	return &book{orders: make(map[int]Order)}
}

func (b *book) len() int { return len(b.ids) }

// insert appends o. id must be greater than every id in the book.
func (b *book) insert(id int, o Order) {
	b.ids = append(b.ids, id)
	b.orders[id] = o
}

func (b *book) get(id int) (Order, bool) {
	o, ok := b.orders[id]
	return o, ok
}

// set replaces an existing order in place.
func (b *book) set(id int, o Order) {
	if _, ok := b.orders[id]; ok {
		b.orders[id] = o
	}
}

func (b *book) remove(id int) {
	if _, ok := b.orders[id]; !ok {
		return
	}
	delete(b.orders, id)
	if i := sort.SearchInts(b.ids, id); i < len(b.ids) && b.ids[i] == id {
		b.ids = slices.Delete(b.ids, i, i+1)
	}
}

func (b *book) removeIf(pred func(Order) bool) int {
	n := 0
	for _, id := range b.snapshot() {
		if pred(b.orders[id]) {
			b.remove(id)
			n++
		}
	}
	return n
}

func (b *book) snapshot() []int {
	return slices.Clone(b.ids)
}

func (b *book) clear() {
	b.ids = nil
	b.orders = make(map[int]Order)
}
