// Package frontend translates Go programs in SSA form into pointer
// subgraphs. The translation is deliberately coarse: the core analysis is
// untyped and flow-insensitive, so instructions are chained linearly and all
// field and element accesses become byte-offset adjustments.
package frontend

import (
	"go/token"
	"go/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/tools/go/ssa"

	"github.com/kvasek/pointsto"
	"github.com/kvasek/pointsto/internal/slices"
)

// Builder constructs a pointer subgraph from a built ssa.Program.
type Builder struct {
	prog  *ssa.Program
	sizes types.Sizes

	values map[ssa.Value]*pointsto.PSNode
	funcs  map[*ssa.Function]*funcGraph
	objs   map[*pointsto.PSNode]*funcGraph

	// dynamic call sites by their CallFuncPtr node, for splicing and for
	// call graph construction
	sites map[*pointsto.PSNode]*callSite

	// static call edges recorded during building
	static []staticCall

	unknown *pointsto.PSNode
	nilPtr  *pointsto.PSNode
}

// funcGraph is the translated body of one function: the Function object that
// pointers to it denote, its Entry node, one Phi per formal parameter and the
// Return node gathering its results.
type funcGraph struct {
	fun    *ssa.Function
	obj    *pointsto.PSNode
	entry  *pointsto.PSNode
	params []*pointsto.PSNode
	ret    *pointsto.PSNode
}

type callSite struct {
	call ssa.CallInstruction
	node *pointsto.PSNode // the CallFuncPtr node
	args []*pointsto.PSNode
}

type staticCall struct {
	call   ssa.CallInstruction
	callee *ssa.Function
}

// NewBuilder creates a builder for the given program. sizes may be nil, in
// which case the standard 64-bit layout is assumed.
func NewBuilder(prog *ssa.Program, sizes types.Sizes) *Builder {
	if sizes == nil {
		sizes = &types.StdSizes{WordSize: 8, MaxAlign: 8}
	}
	return &Builder{
		prog:    prog,
		sizes:   sizes,
		values:  make(map[ssa.Value]*pointsto.PSNode),
		funcs:   make(map[*ssa.Function]*funcGraph),
		objs:    make(map[*pointsto.PSNode]*funcGraph),
		sites:   make(map[*pointsto.PSNode]*callSite),
		unknown: pointsto.NewConstant(pointsto.UnknownMemory, pointsto.UnknownOffset),
		nilPtr:  pointsto.NewConstant(pointsto.Null, 0),
	}
}

// Build translates the program starting at entry and returns an analysis
// result whose solver has already run to a fixpoint.
func (b *Builder) Build(entry *ssa.Function) *Result {
	fg := b.buildFunc(entry)

	policy := newPolicy(b)
	solver := pointsto.NewSolver(fg.entry, policy)

	logrus.WithFields(logrus.Fields{
		"entry":     entry.String(),
		"functions": len(b.funcs),
	}).Info("pointer subgraph built, solving")

	solver.Run()

	logrus.WithField("steps", solver.Steps()).Info("points-to fixpoint reached")

	return &Result{builder: b, Solver: solver, Entry: entry}
}

// buildFunc translates fun on first use and memoizes the result so that
// recursion (direct or through function pointers) terminates.
func (b *Builder) buildFunc(fun *ssa.Function) *funcGraph {
	if fg, ok := b.funcs[fun]; ok {
		return fg
	}

	obj := pointsto.NewFunction()
	obj.SetName(fun.String())

	fg := &funcGraph{
		fun:   fun,
		obj:   obj,
		entry: pointsto.NewEntry(),
		ret:   pointsto.NewReturn(),
	}
	fg.entry.SetName("entry:" + fun.Name())
	fg.ret.SetName("ret:" + fun.Name())
	fg.entry.SetPairedNode(fg.ret)
	obj.SetPairedNode(fg.entry)

	// Memoize before translating the body: the body may refer back to fun.
	b.funcs[fun] = fg
	b.objs[obj] = fg

	cursor := fg.entry
	chain := func(n *pointsto.PSNode) {
		cursor.AddSuccessor(n)
		cursor = n
	}

	for _, param := range fun.Params {
		p := pointsto.NewPhi()
		p.SetName("arg:" + param.Name())
		b.values[param] = p
		fg.params = append(fg.params, p)
		chain(p)
	}

	// Phi operands can reference values from later blocks; create all value
	// nodes first, wire Phi operands after.
	var phis []*ssa.Phi

	for _, block := range fun.Blocks {
		for _, insn := range block.Instrs {
			nodes := b.translate(fun, insn)
			if phi, ok := insn.(*ssa.Phi); ok {
				phis = append(phis, phi)
			}
			for _, n := range nodes {
				chain(n)
			}
		}
	}

	for _, phi := range phis {
		n := b.values[phi]
		for _, edge := range phi.Edges {
			n.AddOperand(b.valueNode(edge))
		}
	}

	chain(fg.ret)
	return fg
}

// valueNode returns the node bearing the pointers of v, creating leaf nodes
// (globals, functions, constants) on demand.
func (b *Builder) valueNode(v ssa.Value) *pointsto.PSNode {
	if n, ok := b.values[v]; ok {
		return n
	}

	var n *pointsto.PSNode
	switch v := v.(type) {
	case *ssa.Global:
		n = pointsto.NewAlloc()
		n.SetName(v.String())
		n.SetZeroInitialized()
		if sz := b.sizeof(deref(v.Type())); sz > 0 {
			n.SetSize(sz)
		}

	case *ssa.Function:
		n = b.buildFunc(v).obj

	case *ssa.Const:
		if v.IsNil() {
			n = b.nilPtr
		} else {
			// Non-pointer constant; carries nothing.
			n = pointsto.NewNoop()
		}

	case *ssa.FreeVar, *ssa.Builtin:
		// Free variables are not tracked through closures; treat them as
		// pointing anywhere.
		n = b.unknown

	default:
		// A register that no instruction produced a node for: a value of a
		// kind the translation does not track. Untracked pointers may point
		// anywhere.
		if pointerLike(v.Type()) {
			n = b.unknown
		} else {
			n = pointsto.NewNoop()
		}
	}

	b.values[v] = n
	return n
}

// translate produces the subgraph nodes of one instruction, in the order
// they should be chained into the function body.
func (b *Builder) translate(fun *ssa.Function, insn ssa.Instruction) []*pointsto.PSNode {
	switch t := insn.(type) {
	case *ssa.Alloc:
		var n *pointsto.PSNode
		if t.Heap {
			n = pointsto.NewDynAlloc()
		} else {
			n = pointsto.NewAlloc()
		}
		n.SetName(fun.Name() + "." + t.Name())
		// Go memory is always zeroed at allocation.
		n.SetZeroInitialized()
		if sz := b.sizeof(deref(t.Type())); sz > 0 {
			n.SetSize(sz)
		}
		b.values[t] = n
		return []*pointsto.PSNode{n}

	case *ssa.MakeMap, *ssa.MakeChan, *ssa.MakeSlice:
		// Summarized like any other heap allocation site. No size is
		// recorded for them, so offsets into them are never saturated
		// against a size.
		v := t.(ssa.Value)
		n := pointsto.NewDynAlloc()
		n.SetName(fun.Name() + "." + v.Name())
		n.SetZeroInitialized()
		b.values[v] = n
		return []*pointsto.PSNode{n}

	case *ssa.MakeClosure:
		// The closure value points to the function object. Bindings are
		// handled as untracked free variables on the callee side.
		b.values[t] = b.valueNode(t.Fn)
		return nil

	case *ssa.UnOp:
		if t.Op == token.MUL {
			n := pointsto.NewLoad(b.valueNode(t.X))
			n.SetName(fun.Name() + "." + t.Name())
			b.values[t] = n
			return []*pointsto.PSNode{n}
		}
		return nil

	case *ssa.Store:
		n := pointsto.NewStore(b.valueNode(t.Val), b.valueNode(t.Addr))
		return []*pointsto.PSNode{n}

	case *ssa.FieldAddr:
		base := b.valueNode(t.X)
		n := pointsto.NewGEP(base, b.fieldOffset(t))
		n.SetName(fun.Name() + "." + t.Name())
		b.values[t] = n
		return []*pointsto.PSNode{n}

	case *ssa.IndexAddr:
		base := b.valueNode(t.X)
		n := pointsto.NewGEP(base, b.indexOffset(t))
		n.SetName(fun.Name() + "." + t.Name())
		b.values[t] = n
		return []*pointsto.PSNode{n}

	case *ssa.ChangeType, *ssa.Convert, *ssa.ChangeInterface,
		*ssa.SliceToArrayPointer, *ssa.MakeInterface:
		v := t.(ssa.Value)
		var x ssa.Value
		switch t := t.(type) {
		case *ssa.ChangeType:
			x = t.X
		case *ssa.Convert:
			x = t.X
		case *ssa.ChangeInterface:
			x = t.X
		case *ssa.SliceToArrayPointer:
			x = t.X
		case *ssa.MakeInterface:
			x = t.X
		}
		n := pointsto.NewCast(b.valueNode(x))
		n.SetName(fun.Name() + "." + v.Name())
		b.values[v] = n
		return []*pointsto.PSNode{n}

	case *ssa.Slice:
		n := pointsto.NewCast(b.valueNode(t.X))
		n.SetName(fun.Name() + "." + t.Name())
		b.values[t] = n
		return []*pointsto.PSNode{n}

	case *ssa.Phi:
		// Operands are wired after the whole body is translated.
		n := pointsto.NewPhi()
		n.SetName(fun.Name() + "." + t.Name())
		b.values[t] = n
		return []*pointsto.PSNode{n}

	case ssa.CallInstruction:
		return b.translateCall(fun, t)

	case *ssa.Return:
		fg := b.funcs[fun]
		for _, res := range t.Results {
			if pointerLike(res.Type()) {
				fg.ret.AddOperand(b.valueNode(res))
			}
		}
		return nil

	default:
		return nil
	}
}

func (b *Builder) translateCall(fun *ssa.Function, call ssa.CallInstruction) []*pointsto.PSNode {
	common := call.Common()

	if common.IsInvoke() {
		// Interface method dispatch is not resolved; the result may point
		// anywhere.
		if v := call.Value(); v != nil && pointerLike(v.Type()) {
			b.values[v] = b.unknown
		}
		return nil
	}

	if blt, ok := common.Value.(*ssa.Builtin); ok {
		return b.translateBuiltin(fun, call, blt)
	}

	if callee := common.StaticCallee(); callee != nil {
		fg := b.buildFunc(callee)

		for i, arg := range common.Args {
			if i < len(fg.params) {
				fg.params[i].AddOperand(b.valueNode(arg))
			}
		}

		c := pointsto.NewCall(fg.obj)
		cr := pointsto.NewCallReturn(fg.ret)
		c.SetPairedNode(cr)
		cr.SetPairedNode(c)
		c.SetName(fun.Name() + ".call:" + callee.Name())

		c.AddSuccessor(fg.entry)
		fg.ret.AddSuccessor(cr)

		if v := call.Value(); v != nil {
			b.values[v] = cr
		}
		b.static = append(b.static, staticCall{call, callee})

		// The chain continues after the call return. The call reaches the
		// call return both directly and through the callee body.
		return []*pointsto.PSNode{c, cr}
	}

	// Call through a function pointer; callees are discovered and spliced in
	// during solving.
	fp := b.valueNode(common.Value)
	c := pointsto.NewCallFuncPtr(fp)
	cr := pointsto.NewCallReturn()
	c.SetPairedNode(cr)
	cr.SetPairedNode(c)
	c.SetName(fun.Name() + ".icall:" + common.Value.Name())

	c.AddSuccessor(cr)

	b.sites[c] = &callSite{
		call: call,
		node: c,
		args: slices.Map(common.Args, b.valueNode),
	}

	if v := call.Value(); v != nil {
		b.values[v] = cr
	}

	return []*pointsto.PSNode{c, cr}
}

func (b *Builder) translateBuiltin(fun *ssa.Function, call ssa.CallInstruction,
	blt *ssa.Builtin) []*pointsto.PSNode {

	switch blt.Name() {
	case "append":
		// The result aliases both operands; a Phi over them is the closest
		// untyped rendition.
		common := call.Common()
		n := pointsto.NewPhi(b.valueNode(common.Args[0]), b.valueNode(common.Args[1]))
		n.SetName(fun.Name() + ".append")
		if v := call.Value(); v != nil {
			b.values[v] = n
		}
		return []*pointsto.PSNode{n}

	case "copy":
		common := call.Common()
		n := pointsto.NewMemcpy(
			b.valueNode(common.Args[1]), b.valueNode(common.Args[0]),
			0, pointsto.UnknownOffset)
		n.SetName(fun.Name() + ".copy")
		return []*pointsto.PSNode{n}

	default:
		if v := call.Value(); v != nil && pointerLike(v.Type()) {
			b.values[v] = b.unknown
		}
		return nil
	}
}
