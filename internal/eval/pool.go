package eval

import (
	"sync"

	"symevo/internal/symbol"
)

// VarsPool hands out scratch variable maps for parallel row evaluation. It is
// owned by one evaluator and never shared through package state.
type VarsPool struct {
	mu    sync.Mutex
	free  []symbol.Vars
	size  int
	limit int

	acquired int
	released int
}

func NewVarsPool(size, limit int) *VarsPool {
	if limit <= 0 {
		limit = 64
	}
	return &VarsPool{size: size, limit: limit}
}

func (p *VarsPool) acquire() symbol.Vars {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.acquired++
	if n := len(p.free); n > 0 {
		vars := p.free[n-1]
		p.free = p.free[:n-1]
		return vars
	}
	return make(symbol.Vars, p.size)
}

func (p *VarsPool) release(vars symbol.Vars) {
	clear(vars)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.released++
	if len(p.free) < p.limit {
		p.free = append(p.free, vars)
	}
}

// With lends a cleared map to fn and takes it back on every exit path.
func (p *VarsPool) With(fn func(vars symbol.Vars) error) error {
	vars := p.acquire()
	defer p.release(vars)
	return fn(vars)
}

// Balance returns acquisitions minus releases; zero when nothing is on loan.
func (p *VarsPool) Balance() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired - p.released
}
