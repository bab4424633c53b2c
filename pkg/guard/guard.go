// Package guard provides a cooperative reentrancy fence for compilation
// actions. It does not protect memory; the orchestrator is single
// threaded and only uses it to refuse overlapping requests.
package guard

import "sync/atomic"

// Guard counts active holders. The zero value is unlocked.
type Guard struct {
	count atomic.Int32
}

// Token is held for the duration of one action.
type Token struct {
	g        *Guard
	released atomic.Bool
}

// TryEnter takes a token if the guard is unlocked.
func (g *Guard) TryEnter() (*Token, bool) {
	if !g.count.CompareAndSwap(0, 1) {
		return nil, false
	}
	return &Token{g: g}, true
}

// Release returns the token. Calling it more than once has no effect.
func (t *Token) Release() {
	if t == nil || !t.released.CompareAndSwap(false, true) {
		return
	}
	t.g.count.Add(-1)
}

// Locked reports whether any token is outstanding.
func (g *Guard) Locked() bool {
	return g.count.Load() > 0
}
