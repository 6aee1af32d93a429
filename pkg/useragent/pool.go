package useragent

import "sync/atomic"

// Default is the User-Agent sent when none are configured.
const Default = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Pool rotates through a fixed set of User-Agent strings. A pool of one
// behaves as a static session header.
type Pool struct {
	agents  []string
	counter atomic.Uint64
}

// NewPool creates a pool from agents, skipping empty strings. If nothing
// remains, the pool holds only Default.
func NewPool(agents []string) *Pool {
	kept := make([]string, 0, len(agents))
	for _, a := range agents {
		if a != "" {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, Default)
	}
	return &Pool{agents: kept}
}

// Next returns the next User-Agent in round-robin order. It is safe for
// concurrent use. A nil pool returns Default.
func (p *Pool) Next() string {
	if p == nil {
		return Default
	}
	idx := p.counter.Add(1) - 1
	return p.agents[idx%uint64(len(p.agents))]
}

// Len returns the number of agents in the pool.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.agents)
}
