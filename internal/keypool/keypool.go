// Package keypool implements a round-robin selector over an ordered set of
// interchangeable API credentials. A rate-limited caller advances the pool to
// the next key; the rotation index is process-wide for the lifetime of a run,
// so a rotation triggered by one scene carries into the next.
package keypool

import "sync"

type Pool struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

func New(keys []string) *Pool {
	return &Pool{keys: keys}
}

// Current returns the key at the current rotation index. The second return is
// false when the pool is empty.
func (p *Pool) Current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", false
	}
	return p.keys[p.idx%len(p.keys)], true
}

// Advance rotates to the next key and returns it. Wraps modulo pool size.
func (p *Pool) Advance() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", false
	}
	p.idx++
	return p.keys[p.idx%len(p.keys)], true
}

// Index returns the current rotation index modulo pool size (0 for an empty
// pool). Used for log lines like "Using key #2".
func (p *Pool) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return 0
	}
	return p.idx % len(p.keys)
}

func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
