package proto

// trie is the compressed radix trie of spec §4.11's SUB subscription
// matching: sparse (≤8 children) nodes promote to dense past 8, with up to
// a 10-byte absorbed prefix per node. Grounded on no single pack file (none
// of the examples carry a subscription trie); built from spec.md's
// structural invariants directly since this is gridmq's own domain
// algorithm, not an ambient concern borrowed from the teacher.
const (
	maxPrefix       = 10
	denseThreshold  = 8
)

type trieNode struct {
	prefix   []byte
	refcount int

	// sparse representation
	sparseKeys []byte
	sparseKids []*trieNode

	// dense representation, used once len(children) > denseThreshold
	dense    bool
	minByte  byte
	maxByte  byte
	kids     []*trieNode // len == maxByte-minByte+1 when dense
}

type trie struct {
	root *trieNode
}

func newTrie() *trie { return &trie{root: &trieNode{}} }

func (n *trieNode) childCount() int {
	if n.dense {
		c := 0
		for _, k := range n.kids {
			if k != nil {
				c++
			}
		}
		return c
	}
	return len(n.sparseKids)
}

func (n *trieNode) getChild(b byte) *trieNode {
	if n.dense {
		if b < n.minByte || b > n.maxByte {
			return nil
		}
		return n.kids[b-n.minByte]
	}
	for i, k := range n.sparseKeys {
		if k == b {
			return n.sparseKids[i]
		}
	}
	return nil
}

func (n *trieNode) setChild(b byte, child *trieNode) {
	if n.dense {
		if b < n.minByte || b > n.maxByte {
			n.redense(b)
		}
		n.kids[b-n.minByte] = child
		return
	}
	for i, k := range n.sparseKeys {
		if k == b {
			n.sparseKids[i] = child
			return
		}
	}
	n.sparseKeys = append(n.sparseKeys, b)
	n.sparseKids = append(n.sparseKids, child)
	if len(n.sparseKids) > denseThreshold {
		n.toDense()
	}
}

func (n *trieNode) delChild(b byte) {
	if n.dense {
		if b >= n.minByte && b <= n.maxByte {
			n.kids[b-n.minByte] = nil
		}
		if n.childCount() <= denseThreshold {
			n.toSparse()
		}
		return
	}
	for i, k := range n.sparseKeys {
		if k == b {
			n.sparseKeys = append(n.sparseKeys[:i], n.sparseKeys[i+1:]...)
			n.sparseKids = append(n.sparseKids[:i], n.sparseKids[i+1:]...)
			return
		}
	}
}

func (n *trieNode) toDense() {
	lo, hi := n.sparseKeys[0], n.sparseKeys[0]
	for _, k := range n.sparseKeys {
		if k < lo {
			lo = k
		}
		if k > hi {
			hi = k
		}
	}
	kids := make([]*trieNode, int(hi-lo)+1)
	for i, k := range n.sparseKeys {
		kids[k-lo] = n.sparseKids[i]
	}
	n.dense, n.minByte, n.maxByte, n.kids = true, lo, hi, kids
	n.sparseKeys, n.sparseKids = nil, nil
}

func (n *trieNode) toSparse() {
	var keys []byte
	var kids []*trieNode
	for b := int(n.minByte); b <= int(n.maxByte); b++ {
		if k := n.kids[b-int(n.minByte)]; k != nil {
			keys = append(keys, byte(b))
			kids = append(kids, k)
		}
	}
	n.dense = false
	n.sparseKeys, n.sparseKids = keys, kids
	n.kids = nil
}

func (n *trieNode) redense(b byte) {
	lo, hi := n.minByte, n.maxByte
	if b < lo {
		lo = b
	}
	if b > hi {
		hi = b
	}
	kids := make([]*trieNode, int(hi-lo)+1)
	for ob := int(n.minByte); ob <= int(n.maxByte); ob++ {
		kids[ob-int(lo)] = n.kids[ob-int(n.minByte)]
	}
	n.minByte, n.maxByte, n.kids = lo, hi, kids
}

// Subscribe inserts topic, returning true on a fresh insertion and false on
// a refcount increment of an existing subscription.
func (t *trie) Subscribe(topic []byte) bool {
	node := t.root
	rest := topic
	for {
		if len(rest) == 0 {
			fresh := node.refcount == 0
			node.refcount++
			return fresh
		}
		if len(node.prefix) == 0 && node.childCount() == 0 && node.refcount == 0 {
			n := maxPrefix
			if len(rest) < n {
				n = len(rest)
			}
			node.prefix = append([]byte{}, rest[:n]...)
			rest = rest[n:]
			if len(rest) == 0 {
				node.refcount++
				return true
			}
		}
		if matchesPrefix(node.prefix, rest) {
			rest = rest[len(node.prefix):]
			if len(rest) == 0 {
				fresh := node.refcount == 0
				node.refcount++
				return fresh
			}
			b := rest[0]
			child := node.getChild(b)
			if child == nil {
				child = &trieNode{}
				node.setChild(b, child)
			}
			node = child
			rest = rest[1:]
			continue
		}
		// split node.prefix at the common point with rest; the split leaves
		// node.prefix holding exactly those cp bytes, so the remainder is
		// processed the same way as a successful match above rather than
		// re-checking matchesPrefix (which would try to match node.prefix a
		// second time against a rest that's already had it stripped off).
		cp := commonPrefixLen(node.prefix, rest)
		t.splitNode(node, cp)
		rest = rest[cp:]
		if len(rest) == 0 {
			fresh := node.refcount == 0
			node.refcount++
			return fresh
		}
		b := rest[0]
		child := node.getChild(b)
		if child == nil {
			child = &trieNode{}
			node.setChild(b, child)
		}
		node = child
		rest = rest[1:]
	}
}

func matchesPrefix(prefix, rest []byte) bool {
	if len(rest) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if rest[i] != b {
			return false
		}
	}
	return true
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// splitNode breaks node.prefix at offset cp, inserting a new intermediate
// node that owns [0:cp) while node keeps [cp:) under a single-byte edge.
func (t *trie) splitNode(node *trieNode, cp int) {
	tail := append([]byte{}, node.prefix[cp:]...)
	head := append([]byte{}, node.prefix[:cp]...)

	moved := &trieNode{
		prefix:     tail[1:],
		refcount:   node.refcount,
		sparseKeys: node.sparseKeys,
		sparseKids: node.sparseKids,
		dense:      node.dense,
		minByte:    node.minByte,
		maxByte:    node.maxByte,
		kids:       node.kids,
	}
	node.prefix = head
	node.refcount = 0
	node.sparseKeys, node.sparseKids = nil, nil
	node.dense, node.kids = false, nil
	node.setChild(tail[0], moved)
}

// Unsubscribe removes one reference to topic; returns (removed, found).
// removed is true when the reference count reaches zero, whether or not the
// node itself is pruned (a node with children stays in the tree); found is
// false for an unknown topic (EINVAL per spec).
func (t *trie) Unsubscribe(topic []byte) (removed bool, found bool) {
	path, ok := t.find(topic)
	if !ok {
		return false, false
	}
	node := path[len(path)-1]
	if node.refcount == 0 {
		return false, false
	}
	node.refcount--
	if node.refcount > 0 {
		return false, true
	}
	t.pruneFrom(path)
	return true, true
}

func (t *trie) find(topic []byte) ([]*trieNode, bool) {
	node := t.root
	rest := topic
	path := []*trieNode{node}
	for {
		if !matchesPrefix(node.prefix, rest) {
			return nil, false
		}
		rest = rest[len(node.prefix):]
		if len(rest) == 0 {
			return path, true
		}
		child := node.getChild(rest[0])
		if child == nil {
			return nil, false
		}
		rest = rest[1:]
		node = child
		path = append(path, node)
	}
}

// pruneFrom removes dead leaves bottom-up and attempts single-child
// compaction per spec §4.11.
func (t *trie) pruneFrom(path []*trieNode) {
	for i := len(path) - 1; i >= 0; i-- {
		node := path[i]
		if i > 0 && node.childCount() == 0 && node.refcount == 0 {
			removeEdge(path[i-1], node)
			continue
		}
		tryCompact(node)
		break
	}
}

func removeEdge(parent, child *trieNode) {
	if parent.dense {
		for b := int(parent.minByte); b <= int(parent.maxByte); b++ {
			if parent.kids[b-int(parent.minByte)] == child {
				parent.delChild(byte(b))
				return
			}
		}
		return
	}
	for _, k := range parent.sparseKeys {
		if parent.getChild(k) == child {
			parent.delChild(k)
			return
		}
	}
}

// tryCompact merges node with its single surviving child if the combined
// prefix still fits within maxPrefix bytes (spec §4.11).
func tryCompact(node *trieNode) {
	if node.childCount() != 1 || node.refcount != 0 {
		return
	}
	var onlyByte byte
	var onlyChild *trieNode
	if node.dense {
		for b := int(node.minByte); b <= int(node.maxByte); b++ {
			if k := node.kids[b-int(node.minByte)]; k != nil {
				onlyByte, onlyChild = byte(b), k
				break
			}
		}
	} else {
		onlyByte, onlyChild = node.sparseKeys[0], node.sparseKids[0]
	}
	combined := append(append(append([]byte{}, node.prefix...), onlyByte), onlyChild.prefix...)
	if len(combined) > maxPrefix {
		return
	}
	node.prefix = combined
	node.refcount = onlyChild.refcount
	node.sparseKeys, node.sparseKids = onlyChild.sparseKeys, onlyChild.sparseKids
	node.dense, node.minByte, node.maxByte, node.kids = onlyChild.dense, onlyChild.minByte, onlyChild.maxByte, onlyChild.kids
}

// MatchAny reports whether body matches (has-prefix) any subscribed topic.
func (t *trie) MatchAny(body []byte) bool {
	return matchWalk(t.root, body)
}

func matchWalk(node *trieNode, rest []byte) bool {
	if !matchesPrefix(node.prefix, rest) {
		return false
	}
	rest = rest[len(node.prefix):]
	if node.refcount > 0 {
		return true
	}
	if len(rest) == 0 {
		return false
	}
	child := node.getChild(rest[0])
	if child == nil {
		return false
	}
	return matchWalk(child, rest[1:])
}
