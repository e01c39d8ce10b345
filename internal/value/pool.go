package value

import (
	"errors"
	"fmt"
)

// Tier says who owns a String.
type Tier int

const (
	// TierAuto strings belong to the statement arena and are reclaimed in
	// bulk at the next statement boundary.
	TierAuto Tier = iota
	// TierFinal strings are reference counted and live until their last
	// reference is released.
	TierFinal
)

func (t Tier) String() string {
	if t == TierFinal {
		return "final"
	}
	return "auto"
}

var ErrDoubleFree = errors.New("string released after it was freed")

// String is a pooled string object.
type String struct {
	Text string

	count int
	tier  Tier
	freed bool
}

func (s *String) Count() int { return s.count }
func (s *String) Tier() Tier { return s.tier }
func (s *String) Freed() bool { return s.freed }

// Pool tracks every live String of one machine.
type Pool struct {
	auto  []*String
	final map[*String]struct{}
	freed int
}

func NewPool() *Pool {
	return &Pool{final: make(map[*String]struct{})}
}

// NewAuto creates a statement-scoped string with count 1.
func (p *Pool) NewAuto(text string) *String {
	s := &String{Text: text, count: 1, tier: TierAuto}
	p.auto = append(p.auto, s)
	return s
}

// NewFinal creates a reference-counted string with count 1, owned by
// whoever stores it.
func (p *Pool) NewFinal(text string) *String {
	s := &String{Text: text, count: 1, tier: TierFinal}
	p.final[s] = struct{}{}
	return s
}

// Promote makes s reachable from a place that outlives the statement.
// A Final string gains a reference; an Auto string moves to the Final
// tier with count 1.
func (p *Pool) Promote(s *String) {
	if s == nil || s.freed {
		return
	}
	if s.tier == TierFinal {
		s.count++
		return
	}
	s.tier = TierFinal
	s.count = 1
	p.final[s] = struct{}{}
}

// Retain adds a reference to a Final string. Auto strings are owned by the
// arena and need no count.
func (p *Pool) Retain(s *String) {
	if s == nil || s.freed || s.tier != TierFinal {
		return
	}
	s.count++
}

// Release drops one reference to a Final string, freeing it when the
// count reaches zero. Releasing an Auto string is a no-op.
func (p *Pool) Release(s *String) error {
	if s == nil {
		return nil
	}
	if s.freed {
		return fmt.Errorf("%w: %q", ErrDoubleFree, s.Text)
	}
	if s.tier != TierFinal {
		return nil
	}
	s.count--
	if s.count <= 0 {
		p.free(s)
		delete(p.final, s)
	}
	return nil
}

func (p *Pool) free(s *String) {
	s.freed = true
	s.count = 0
	p.freed++
}

// Reset frees every string still in the Auto tier and returns how many
// were reclaimed.
func (p *Pool) Reset() int {
	n := 0
	for _, s := range p.auto {
		if s.tier == TierAuto && !s.freed {
			p.free(s)
			n++
		}
	}
	clear(p.auto)
	p.auto = p.auto[:0]
	return n
}

// Drain frees every string in both tiers.
func (p *Pool) Drain() int {
	n := p.Reset()
	for s := range p.final {
		p.free(s)
		n++
	}
	clear(p.final)
	return n
}

// AutoLen returns the number of live Auto strings.
func (p *Pool) AutoLen() int {
	n := 0
	for _, s := range p.auto {
		if s.tier == TierAuto && !s.freed {
			n++
		}
	}
	return n
}

// FinalLen returns the number of live Final strings.
func (p *Pool) FinalLen() int {
	return len(p.final)
}

// Live returns the number of strings not yet freed.
func (p *Pool) Live() int {
	return p.AutoLen() + p.FinalLen()
}

// Freed returns the number of strings freed over the pool's lifetime.
func (p *Pool) Freed() int {
	return p.freed
}

// References sums the counts of all Final strings.
func (p *Pool) References() int {
	n := 0
	for s := range p.final {
		n += s.count
	}
	return n
}
