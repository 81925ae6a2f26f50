package signal

// indexDeque is a double-ended queue of slice indices.
// Popped front slots are reclaimed when the backing array is compacted.
type indexDeque struct {
	buf  []int
	head int
}

func newIndexDeque(capacity int) *indexDeque {
	return &indexDeque{buf: make([]int, 0, capacity)}
}

func (d *indexDeque) empty() bool { return d.head == len(d.buf) }

func (d *indexDeque) front() int { return d.buf[d.head] }

func (d *indexDeque) back() int { return d.buf[len(d.buf)-1] }

func (d *indexDeque) pushBack(i int) {
	if d.head > 0 && len(d.buf) == cap(d.buf) {
		n := copy(d.buf, d.buf[d.head:])
		d.buf = d.buf[:n]
		d.head = 0
	}
	d.buf = append(d.buf, i)
}

func (d *indexDeque) popBack() { d.buf = d.buf[:len(d.buf)-1] }

func (d *indexDeque) popFront() { d.head++ }
