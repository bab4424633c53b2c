// Package tree tracks the current node tree and memoizes the canonical
// serialization of its subtrees.
package tree

import (
	"crypto/sha256"
	"errors"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/lathe/pkg/graph"
)

var log = commonlog.GetLogger("lathe.tree")

var (
	// ErrNoRoot is returned when a string is requested before a root is set.
	ErrNoRoot = errors.New("tree: no root node")

	// ErrNodeNotInTree is returned for nodes unreachable from the root.
	ErrNodeNotInTree = errors.New("tree: node is not reachable from the root")

	// ErrCacheInconsistent signals a defect in the serializer: after a full
	// rebuild the root itself has no entry.
	ErrCacheInconsistent = errors.New("tree: cache rebuild did not produce the root")
)

// Tree holds the current root and the per-node string caches. Entries are
// keyed by node identity and are only valid while the node is reachable
// from the current root. Tree is not safe for concurrent use.
type Tree struct {
	root    *graph.Node
	cache   map[*graph.Node]string
	idcache map[*graph.Node]string

	rebuilds int
}

// New returns a tree with the given root, which may be nil.
func New(root *graph.Node) *Tree {
	t := &Tree{}
	t.SetRoot(root)
	return t
}

// Root returns the current root.
func (t *Tree) Root() *graph.Node {
	return t.root
}

// SetRoot replaces the root and drops every cached entry.
func (t *Tree) SetRoot(root *graph.Node) {
	t.root = root
	t.cache = make(map[*graph.Node]string)
	t.idcache = make(map[*graph.Node]string)
}

// Rebuilds returns how many full traversals the cache has performed.
func (t *Tree) Rebuilds() int {
	return t.rebuilds
}

// String returns the canonical serialization of the subtree rooted at n.
// On a miss the whole tree is re-serialized in one pass.
func (t *Tree) String(n *graph.Node) (string, error) {
	if t.root == nil {
		return "", ErrNoRoot
	}
	if s, ok := t.cache[n]; ok {
		return s, nil
	}

	t.cache = make(map[*graph.Node]string)
	t.idcache = make(map[*graph.Node]string)
	graph.Walk(t.root, &dumper{cache: t.cache})
	t.rebuilds++
	log.Debugf("rebuilt cache: %d entries", len(t.cache))

	if _, ok := t.cache[t.root]; !ok {
		return "", ErrCacheInconsistent
	}
	s, ok := t.cache[n]
	if !ok {
		return "", ErrNodeNotInTree
	}
	return s, nil
}

// IDString returns String(n) with spaces, tabs, newlines and carriage
// returns removed. Equal subtrees at different depths share an ID string.
func (t *Tree) IDString(n *graph.Node) (string, error) {
	if s, ok := t.idcache[n]; ok {
		return s, nil
	}
	s, err := t.String(n)
	if err != nil {
		return "", err
	}
	id := StripWhitespace(s)
	t.idcache[n] = id
	return id, nil
}

// Key returns the SHA-256 content address of the subtree rooted at n.
func (t *Tree) Key(n *graph.Node) ([32]byte, error) {
	id, err := t.IDString(n)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256([]byte(id)), nil
}

// StripWhitespace removes ' ', '\t', '\n' and '\r' from s.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
