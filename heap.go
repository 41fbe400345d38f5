package evloop

// Heap is an intrusive binary min-heap. Elements embed a Node and carry their
// own links; the heap itself allocates nothing and holds only the root and a
// count. The tree is always complete: every level full except the last, which
// fills left to right.
//
// The node accessor is fixed at construction, the ordering is supplied per
// call. The comparator must define a strict weak ordering over all enqueued
// elements for as long as they stay enqueued; an inconsistent comparator
// corrupts the heap silently.
type Heap[T any] struct {
	noCopy

	min   *T
	nelts uint
	node  func(*T) *Node[T]
}

// Node is the linkage embedded in every heap element. It stores no value;
// ordering is decided on the enclosing element.
type Node[T any] struct {
	left   *T
	right  *T
	parent *T
}

// LessFunc reports whether a must sort before b.
type LessFunc[T any] func(a, b *T) bool

// NewHeap returns an empty heap whose elements expose their Node via node.
func NewHeap[T any](node func(*T) *Node[T]) *Heap[T] {
	h := &Heap[T]{}
	h.Init(node)
	return h
}

// Init (re)initializes h as an empty heap. Must be called before first use
// when the heap is embedded by value.
func (h *Heap[T]) Init(node func(*T) *Node[T]) {
	h.min = nil
	h.nelts = 0
	h.node = node
}

// Min returns the smallest element, or nil if the heap is empty.
func (h *Heap[T]) Min() *T {
	return h.min
}

// Len returns the number of elements.
func (h *Heap[T]) Len() int {
	return int(h.nelts)
}

// swap exchanges parent with one of its children. The child moves toward the
// root, the parent away from it. This is the only place cross-references are
// rewritten: the two link triples are swapped wholesale, then the grandparent
// slot (or h.min), the sibling's parent link and both demoted-side child
// parent links are repaired.
func (h *Heap[T]) swap(parent, child *T) {
	pn := h.node(parent)
	cn := h.node(child)

	t := *pn
	*pn = *cn
	*cn = t

	var sibling *T
	pn.parent = child
	if cn.left == child {
		cn.left = parent
		sibling = cn.right
	} else {
		cn.right = parent
		sibling = cn.left
	}
	if sibling != nil {
		h.node(sibling).parent = child
	}

	if pn.left != nil {
		h.node(pn.left).parent = parent
	}
	if pn.right != nil {
		h.node(pn.right).parent = parent
	}

	if cn.parent == nil {
		h.min = child
	} else if gn := h.node(cn.parent); gn.left == parent {
		gn.left = child
	} else {
		gn.right = child
	}
}

// Insert adds x at the left-most free slot of the bottom row, then walks it
// up until its parent sorts before it.
//
// The root-to-slot path needs no stored indices: writing 1+nelts in binary
// and reading its bits from the highest one downward spells out the
// left/right turns, so the path is collected by repeatedly taking the low
// bit and halving, then consumed in reverse.
func (h *Heap[T]) Insert(x *T, less LessFunc[T]) {
	xn := h.node(x)
	xn.left = nil
	xn.right = nil
	xn.parent = nil

	path := uint(0)
	k := 0
	for n := 1 + h.nelts; n >= 2; n /= 2 {
		path = (path << 1) | (n & 1)
		k++
	}

	parent := &h.min
	child := &h.min
	for ; k > 0; k-- {
		parent = child
		if path&1 != 0 {
			child = &h.node(*child).right
		} else {
			child = &h.node(*child).left
		}
		path >>= 1
	}

	xn.parent = *parent
	*child = x
	h.nelts++

	for xn.parent != nil && less(x, xn.parent) {
		h.swap(xn.parent, x)
	}
}

// Remove unlinks x from the heap. x must be a current member; removing an
// element that is not enqueued corrupts the tree (the caller tracks
// membership, see Timer's active flag).
//
// The last node of the bottom row is located by the same path-bit walk as
// Insert (over nelts this time) and unlinked. If it was x itself we are
// done. Otherwise it is spliced into x's old position and repaired in both
// directions: sifted down against its children, then sifted up against its
// parent, because coming from the bottom row it may be out of order either
// way.
func (h *Heap[T]) Remove(x *T, less LessFunc[T]) {
	if h.nelts == 0 {
		return
	}

	path := uint(0)
	k := 0
	for n := h.nelts; n >= 2; n /= 2 {
		path = (path << 1) | (n & 1)
		k++
	}

	max := &h.min
	for ; k > 0; k-- {
		if path&1 != 0 {
			max = &h.node(*max).right
		} else {
			max = &h.node(*max).left
		}
		path >>= 1
	}

	h.nelts--

	last := *max
	*max = nil

	if last == x {
		// x was the bottom-right node, or the only node.
		if last == h.min {
			h.min = nil
		}
		return
	}

	ln := h.node(last)
	*ln = *h.node(x)

	if ln.left != nil {
		h.node(ln.left).parent = last
	}
	if ln.right != nil {
		h.node(ln.right).parent = last
	}

	if ln.parent == nil {
		h.min = last
	} else if pn := h.node(ln.parent); pn.left == x {
		pn.left = last
	} else {
		pn.right = last
	}

	for {
		smallest := last
		if ln.left != nil && less(ln.left, smallest) {
			smallest = ln.left
		}
		if ln.right != nil && less(ln.right, smallest) {
			smallest = ln.right
		}
		if smallest == last {
			break
		}
		h.swap(last, smallest)
	}

	for ln.parent != nil && less(last, ln.parent) {
		h.swap(ln.parent, last)
	}
}

// Dequeue removes the minimum element.
func (h *Heap[T]) Dequeue(less LessFunc[T]) {
	h.Remove(h.min, less)
}
