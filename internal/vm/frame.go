package vm

import (
	"hoc/internal/symbol"
	"hoc/internal/value"
)

// Frame represents one active function or procedure call.
type Frame struct {
	Name   *symbol.Name  // callee
	RetPC  int           // caller's program counter
	Caller *symbol.Scope // caller's locals
	Locals symbol.Scope

	callerName *symbol.Name
	args       []value.Value // reused for argument binding
}

// framePool recycles frames so deep recursion does not allocate a new
// frame per call once the pool has grown.
type framePool struct {
	free   []*Frame
	active int
	total  int
}

func (p *framePool) acquire() *Frame {
	p.active++
	if n := len(p.free); n > 0 {
		f := p.free[n-1]
		p.free = p.free[:n-1]
		return f
	}
	p.total++
	return &Frame{}
}

// release returns f to the pool after its locals have been torn down.
func (p *framePool) release(f *Frame) {
	f.Name = nil
	f.Caller = nil
	f.callerName = nil
	clear(f.args)
	f.args = f.args[:0]
	p.active--
	p.free = append(p.free, f)
}

func (p *framePool) reset() {
	clear(p.free)
	p.free = p.free[:0]
	p.active = 0
	p.total = 0
}

// retire releases the locals of f and gives it back to the pool.
func (vm *VM) retire(f *Frame) {
	f.Locals.Reset(func(b *symbol.Binding) {
		vm.drop(b.Value)
	})
	vm.frames.release(f)
}
