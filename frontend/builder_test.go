package frontend_test

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"

	"github.com/kvasek/pointsto"
	"github.com/kvasek/pointsto/frontend"
	"github.com/kvasek/pointsto/pkgutil"
)

// buildFromSource loads a synthetic main package, builds its SSA form and
// runs the analysis from its main function.
func buildFromSource(t *testing.T, source string) (*frontend.Result, *ssa.Package) {
	t.Helper()

	pkgs, err := pkgutil.LoadPackagesFromSource(source)
	require.NoError(t, err)

	prog, spkgs := pkgutil.BuildSSA(pkgs)
	entry := pkgutil.MainFunction(spkgs, "main")
	require.NotNil(t, entry)

	res := frontend.NewBuilder(prog, nil).Build(entry)
	return res, entry.Pkg
}

func allocs(fun *ssa.Function) []*ssa.Alloc {
	var res []*ssa.Alloc
	for _, block := range fun.Blocks {
		for _, insn := range block.Instrs {
			if alloc, ok := insn.(*ssa.Alloc); ok {
				res = append(res, alloc)
			}
		}
	}
	return res
}

func loads(fun *ssa.Function) []*ssa.UnOp {
	var res []*ssa.UnOp
	for _, block := range fun.Blocks {
		for _, insn := range block.Instrs {
			if u, ok := insn.(*ssa.UnOp); ok && u.Op == token.MUL {
				res = append(res, u)
			}
		}
	}
	return res
}

func TestStoreLoad(t *testing.T) {
	res, pkg := buildFromSource(t, `
		package main

		func main() {
			x := new(*int)
			y := new(int)
			*x = y
			z := *x
			println(z)
		}`)

	main := pkg.Func("main")
	as := allocs(main)
	require.Len(t, as, 2)
	x, y := as[0], as[1]

	lds := loads(main)
	require.Len(t, lds, 1)

	yNode := res.Node(y)
	require.NotNil(t, yNode)
	assert.True(t, yNode.DoesPointsTo(yNode, 0),
		"an allocation's node points to itself")

	pts := res.PointsTo(lds[0])
	require.Len(t, pts, 1)
	assert.Same(t, yNode, pts[0].Target,
		"loading *x must yield the allocation stored into x")
	assert.Equal(t, pointsto.Offset(0), pts[0].Offset)

	_ = res.Node(x)
}

func TestFieldOffsets(t *testing.T) {
	res, pkg := buildFromSource(t, `
		package main

		type pair struct {
			a *int
			b *int
		}

		func main() {
			p := new(pair)
			x := new(int)
			p.b = x
			q := p.b
			println(q)
		}`)

	main := pkg.Func("main")
	as := allocs(main)
	require.Len(t, as, 2)
	p, x := as[0], as[1]

	var fieldAddrs []*ssa.FieldAddr
	for _, block := range main.Blocks {
		for _, insn := range block.Instrs {
			if fa, ok := insn.(*ssa.FieldAddr); ok {
				fieldAddrs = append(fieldAddrs, fa)
			}
		}
	}
	require.NotEmpty(t, fieldAddrs)

	pNode := res.Node(p)
	require.NotNil(t, pNode)
	assert.Equal(t, uint64(16), pNode.Size(),
		"two 64-bit pointers take 16 bytes")

	for _, fa := range fieldAddrs {
		pts := res.PointsTo(fa)
		require.Len(t, pts, 1)
		assert.Same(t, pNode, pts[0].Target)
		assert.Equal(t, pointsto.Offset(8), pts[0].Offset,
			"field b sits 8 bytes into the pair")
	}

	lds := loads(main)
	require.Len(t, lds, 1)
	pts := res.PointsTo(lds[0])
	require.Len(t, pts, 1)
	assert.Same(t, res.Node(x), pts[0].Target)
}

func TestFunctionPointers(t *testing.T) {
	res, pkg := buildFromSource(t, `
		package main

		func ubool() bool

		func mk1() *int { return new(int) }
		func mk2() *int { return new(int) }

		func pick() func() *int {
			if ubool() {
				return mk1
			}
			return mk2
		}

		func main() {
			f := pick()
			p := f()
			println(p)
		}`)

	main := pkg.Func("main")

	var dynCall *ssa.Call
	for _, block := range main.Blocks {
		for _, insn := range block.Instrs {
			if call, ok := insn.(*ssa.Call); ok &&
				call.Common().StaticCallee() == nil {
				if _, builtin := call.Common().Value.(*ssa.Builtin); !builtin {
					dynCall = call
				}
			}
		}
	}
	require.NotNil(t, dynCall, "the call through f must be dynamic")

	pts := res.PointsTo(dynCall)
	assert.Len(t, pts, 2,
		"the result gathers the allocations of both possible callees")

	funs := res.Functions()
	mk1, mk2 := pkg.Func("mk1"), pkg.Func("mk2")
	assert.Contains(t, funs, mk1)
	assert.Contains(t, funs, mk2)

	cg := res.CallGraph()
	callees := map[*ssa.Function]bool{}
	for _, edge := range cg.Nodes[main].Out {
		if edge.Site == dynCall {
			callees[edge.Callee.Func] = true
		}
	}
	assert.True(t, callees[mk1], "call graph must resolve f to mk1")
	assert.True(t, callees[mk2], "call graph must resolve f to mk2")
}

func TestStaticCall(t *testing.T) {
	res, pkg := buildFromSource(t, `
		package main

		func alloc() *int { return new(int) }

		func main() {
			p := alloc()
			println(p)
		}`)

	main := pkg.Func("main")

	var call *ssa.Call
	for _, block := range main.Blocks {
		for _, insn := range block.Instrs {
			if c, ok := insn.(*ssa.Call); ok && c.Common().StaticCallee() != nil {
				call = c
			}
		}
	}
	require.NotNil(t, call)

	pts := res.PointsTo(call)
	require.Len(t, pts, 1)
	assert.Equal(t, pointsto.DynAlloc, pts[0].Target.Kind(),
		"new(int) escaping through a return is a heap allocation site")

	cg := res.CallGraph()
	var found bool
	for _, edge := range cg.Nodes[main].Out {
		found = found || edge.Callee.Func == pkg.Func("alloc")
	}
	assert.True(t, found)
}
