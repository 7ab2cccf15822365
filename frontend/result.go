package frontend

import (
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"

	"github.com/kvasek/pointsto"
	"github.com/kvasek/pointsto/internal/maps"
)

// Result gives access to the computed points-to solution in terms of the
// original SSA program.
type Result struct {
	builder *Builder
	Solver  *pointsto.Solver
	Entry   *ssa.Function

	cg *callgraph.Graph
}

// Node returns the subgraph node bearing the pointers of v, or nil when the
// builder created none for it.
func (r *Result) Node(v ssa.Value) *pointsto.PSNode {
	return r.builder.values[v]
}

// PointsTo returns the pointers v may denote.
func (r *Result) PointsTo(v ssa.Value) []pointsto.Pointer {
	n := r.Node(v)
	if n == nil {
		return nil
	}
	return n.PointsTo().Pointers()
}

// Functions returns every function translated into the subgraph. A function
// appears here when translated code calls it statically or refers to it as a
// value; splicing function pointer calls during solving adds no functions.
func (r *Result) Functions() []*ssa.Function {
	return maps.Keys(r.builder.funcs)
}

// CallGraph returns a call graph of the program with dynamic calls resolved
// using the points-to solution.
func (r *Result) CallGraph() *callgraph.Graph {
	if r.cg != nil {
		return r.cg
	}

	cg := callgraph.New(r.Entry)

	for _, sc := range r.builder.static {
		callgraph.AddEdge(
			cg.CreateNode(sc.call.Parent()), sc.call, cg.CreateNode(sc.callee))
	}

	for _, site := range r.builder.sites {
		caller := cg.CreateNode(site.call.Parent())
		site.node.Operand(0).PointsTo().ForEach(func(p pointsto.Pointer) {
			if fg, ok := r.builder.objs[p.Target]; ok {
				callgraph.AddEdge(caller, site.call, cg.CreateNode(fg.fun))
			}
		})
	}

	r.cg = cg
	return cg
}
