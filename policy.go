package pointsto

// Policy carries the per-analysis capabilities of the solver: the memory
// model consulted on loads and stores, the interprocedural splicing of
// function pointer calls, error policy and queueing discipline. A
// flow-insensitive analysis uses FlowInsensitive below; flow-sensitive
// variants supply their own implementation.
type Policy interface {
	// GetMemoryObjects appends to out the memory objects that are valid for
	// the allocation site what at the program point where.
	GetMemoryObjects(where, what *PSNode, out *[]*MemoryObject)

	// FunctionPointerCall adjusts the subgraph when the call at where
	// discovers the callee what. It reports whether it changed anything the
	// solver should revisit.
	FunctionPointerCall(where, what *PSNode) bool

	// Error reports a generic analysis error at the given node. The return
	// value tells the solver whether a points-to set was changed in
	// response.
	Error(at *PSNode, msg string) bool

	// ErrorEmptyPointsTo is invoked when a dereference at from found no
	// memory object through the pointers of to.
	ErrorEmptyPointsTo(from, to *PSNode) bool

	// Enqueue schedules re-processing after the transfer of n changed
	// state.
	Enqueue(s *Solver, n *PSNode)

	// Instrumentation hooks around each processed node. Intermediate
	// observations are not ordered and carry no semantics.
	BeforeProcessed(n *PSNode)
	AfterProcessed(n *PSNode)
}

// BasePolicy provides the default hook behavior for embedding: no memory
// model, no interprocedural splicing, errors change nothing, and enqueueing
// schedules every node reachable from the changed one.
type BasePolicy struct{}

func (BasePolicy) GetMemoryObjects(where, what *PSNode, out *[]*MemoryObject) {}

func (BasePolicy) FunctionPointerCall(where, what *PSNode) bool { return false }

func (BasePolicy) Error(at *PSNode, msg string) bool {
	log.WithField("at", at).Debug(msg)
	return false
}

func (BasePolicy) ErrorEmptyPointsTo(from, to *PSNode) bool { return false }

func (BasePolicy) Enqueue(s *Solver, n *PSNode) { s.EnqueueReachable(n) }

func (BasePolicy) BeforeProcessed(n *PSNode) {}
func (BasePolicy) AfterProcessed(n *PSNode)  {}

// FlowInsensitive is the memory model for a flow-insensitive analysis: one
// memory object per allocation site, regardless of program point, created on
// demand. Empty dereferences are benign; the analysis is conservative
// elsewhere, and staying silent keeps the solution independent of the queue
// order.
type FlowInsensitive struct {
	BasePolicy
	objects map[*PSNode]*MemoryObject
}

func NewFlowInsensitive() *FlowInsensitive {
	return &FlowInsensitive{objects: make(map[*PSNode]*MemoryObject)}
}

// Object returns the memory object summarizing the given allocation site,
// creating it on first use.
func (p *FlowInsensitive) Object(target *PSNode) *MemoryObject {
	mo, ok := p.objects[target]
	if !ok {
		mo = NewMemoryObject(target)
		p.objects[target] = mo
	}
	return mo
}

func (p *FlowInsensitive) GetMemoryObjects(where, what *PSNode, out *[]*MemoryObject) {
	*out = append(*out, p.Object(what))
}
