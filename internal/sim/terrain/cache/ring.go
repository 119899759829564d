package cache

// ring is a fixed-capacity FIFO of slot indices.
type ring struct {
	buf  []int
	head int
	n    int
}

func newRing(capacity int) ring {
	return ring{buf: make([]int, capacity)}
}

func (r *ring) push(v int) {
	if r.n == len(r.buf) {
		panic("cache: fifo overflow")
	}
	r.buf[(r.head+r.n)%len(r.buf)] = v
	r.n++
}

func (r *ring) pop() int {
	if r.n == 0 {
		panic("cache: fifo underflow")
	}
	v := r.buf[r.head]
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return v
}

func (r *ring) len() int { return r.n }

func (r *ring) each(fn func(int)) {
	for k := 0; k < r.n; k++ {
		fn(r.buf[(r.head+k)%len(r.buf)])
	}
}
