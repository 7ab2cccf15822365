package pointsto

import "fmt"

// NodeKind discriminates pointer-subgraph nodes. The set is closed; the
// solver's transfer function switches over it.
type NodeKind uint8

const (
	// Nodes that represent memory allocation sites.
	Alloc NodeKind = iota + 1
	// A heap-allocation site, summarized per site: one abstract object no
	// matter how many times the site executes.
	DynAlloc
	Load
	Store
	// Get element pointer: adjust a pointer by a byte offset.
	GEP
	Phi
	Cast
	// The FUNCTION node is the same as Alloc, but keeping it as a separate
	// kind lets the solver type-check callees of function pointer calls.
	Function
	// Marker for a call of a subprocedure. The operands are user-defined and
	// not interpreted by the analysis.
	Call
	// Call via function pointer. The operand bears the pointers.
	CallFuncPtr
	// Site where a call returns; gathers the pointers returned from the
	// subprocedure. Works like Phi.
	CallReturn
	// Entry of a subprocedure, a no-op for the builder's convenience.
	Entry
	// Exit of a subprocedure returning a value; works like Phi.
	Return
	// A node with a single points-to relation that never changes.
	Constant
	// No-op branch/join node for convenient subgraph generation.
	Noop
	// Copy a whole block of memory.
	Memcpy
	NullAddr
	UnknownMem
)

func (k NodeKind) String() string {
	switch k {
	case Alloc:
		return "ALLOC"
	case DynAlloc:
		return "DYN_ALLOC"
	case Load:
		return "LOAD"
	case Store:
		return "STORE"
	case GEP:
		return "GEP"
	case Phi:
		return "PHI"
	case Cast:
		return "CAST"
	case Function:
		return "FUNCTION"
	case Call:
		return "CALL"
	case CallFuncPtr:
		return "CALL_FUNCPTR"
	case CallReturn:
		return "CALL_RETURN"
	case Entry:
		return "ENTRY"
	case Return:
		return "RETURN"
	case Constant:
		return "CONSTANT"
	case Noop:
		return "NOOP"
	case Memcpy:
		return "MEMCPY"
	case NullAddr:
		return "NULL_ADDR"
	case UnknownMem:
		return "UNKNOWN_MEM"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// IsAllocation reports whether the kind is an allocation-site-like kind, i.e.
// whether nodes of this kind may appear as pointer targets.
func (k NodeKind) IsAllocation() bool {
	switch k {
	case Alloc, DynAlloc, Function, NullAddr, UnknownMem:
		return true
	default:
		return false
	}
}

// PSNode is a node of the pointer subgraph. Nodes are connected by successor
// edges mirroring the program's control flow and carry the points-to set the
// solver computes for them. Operand references carry the dataflow; their
// arity and meaning are fixed by the kind and encoded in the per-kind
// constructors below.
type PSNode struct {
	kind         NodeKind
	operands     []*PSNode
	successors   []*PSNode
	predecessors []*PSNode

	pointsTo PointsToSet

	offset Offset // GEP and Memcpy displacement, Constant target offset
	length Offset // Memcpy length

	// Some nodes are paired, like formal and actual parameters or call and
	// call-return nodes. The builder can store the sibling here; the base
	// analysis does not interpret it.
	paired *PSNode

	zeroInitialized bool
	heap            bool
	size            uint64

	name string

	// Visitation epoch of the last traversal that saw this node.
	dfsid uint64

	// Data is free for the analysis to use, UserData for the client.
	Data     any
	UserData any
}

func newNode(kind NodeKind, operands ...*PSNode) *PSNode {
	for _, op := range operands {
		if op == nil {
			log.Panicf("nil operand for %s node", kind)
		}
	}
	return &PSNode{kind: kind, operands: operands}
}

func newAllocation(kind NodeKind) *PSNode {
	n := newNode(kind)
	n.pointsTo.Add(Pointer{n, 0})
	return n
}

// NewAlloc creates a node representing a statically allocated object. The
// node points to itself at offset 0.
func NewAlloc() *PSNode { return newAllocation(Alloc) }

// NewDynAlloc creates a node summarizing a heap allocation site.
func NewDynAlloc() *PSNode {
	n := newAllocation(DynAlloc)
	n.heap = true
	return n
}

// NewFunction creates a node representing a function object in memory, so
// that it can be pointed to and called through a function pointer.
func NewFunction() *PSNode { return newAllocation(Function) }

func NewNoop() *PSNode  { return newNode(Noop) }
func NewEntry() *PSNode { return newNode(Entry) }

// NewLoad creates a node loading the value (a pointer) from the memory
// pointed to by addr.
func NewLoad(addr *PSNode) *PSNode { return newNode(Load, addr) }

// NewStore creates a node storing the value of val into the memory pointed to
// by addr.
func NewStore(val, addr *PSNode) *PSNode { return newNode(Store, val, addr) }

// NewGEP creates a node computing a pointer displaced by off bytes from the
// pointers of base.
func NewGEP(base *PSNode, off Offset) *PSNode {
	n := newNode(GEP, base)
	n.offset = off
	return n
}

// NewCast creates a node that passes pointers through unchanged (the analysis
// does not care about types; such nodes can be optimized away later).
func NewCast(op *PSNode) *PSNode { return newNode(Cast, op) }

// NewMemcpy creates a node copying len bytes between the objects pointed to
// by from and to, starting off bytes past the source pointers. Unknown off or
// len copies everything.
func NewMemcpy(from, to *PSNode, off, len Offset) *PSNode {
	n := newNode(Memcpy, from, to)
	n.offset = off
	n.length = len
	return n
}

// NewConstant creates a node with a single, fixed points-to relation. No
// transfer ever mutates its set.
func NewConstant(target *PSNode, off Offset) *PSNode {
	n := newNode(Constant)
	n.offset = off
	n.pointsTo.Add(Pointer{target, off})
	return n
}

// NewPhi creates a node gathering pointers from different paths in the
// control flow.
func NewPhi(ops ...*PSNode) *PSNode { return newNode(Phi, ops...) }

// NewCall creates a marker node for a subprocedure call. The operands are for
// the builder's book-keeping only.
func NewCall(ops ...*PSNode) *PSNode { return newNode(Call, ops...) }

// NewCallFuncPtr creates a node calling through the function pointers of fp.
func NewCallFuncPtr(fp *PSNode) *PSNode { return newNode(CallFuncPtr, fp) }

// NewCallReturn creates the node at which a call returns; it gathers the
// pointers returned from the callee like a Phi.
func NewCallReturn(ops ...*PSNode) *PSNode { return newNode(CallReturn, ops...) }

// NewReturn creates the exit node of a subprocedure returning a value.
func NewReturn(ops ...*PSNode) *PSNode { return newNode(Return, ops...) }

// Process-wide sentinel nodes. Both are constant by construction: their
// points-to sets are fixed points of every transfer.
var (
	// Null is the target of the null pointer.
	Null = func() *PSNode {
		n := newNode(NullAddr)
		n.pointsTo.Add(Pointer{n, 0})
		return n
	}()

	// UnknownMemory stands for any memory; it points to itself at the
	// unknown offset.
	UnknownMemory = func() *PSNode {
		n := newNode(UnknownMem)
		n.pointsTo.Add(Pointer{n, UnknownOffset})
		return n
	}()
)

func (n *PSNode) Kind() NodeKind { return n.kind }

func (n *PSNode) IsNull() bool          { return n.kind == NullAddr }
func (n *PSNode) IsUnknownMemory() bool { return n.kind == UnknownMem }

func (n *PSNode) Operand(idx int) *PSNode {
	if idx < 0 || idx >= len(n.operands) {
		log.Panicf("operand index %d out of range for %s", idx, n)
	}
	return n.operands[idx]
}

func (n *PSNode) Operands() []*PSNode { return n.operands }

// AddOperand appends an operand and returns the new operand count. Used by
// interprocedural splicing to feed additional producers into Phi-like nodes.
func (n *PSNode) AddOperand(op *PSNode) int {
	if op == nil {
		log.Panicf("nil operand for %s node", n.kind)
	}
	n.operands = append(n.operands, op)
	return len(n.operands)
}

// HasOperand reports whether op is already among n's operands.
func (n *PSNode) HasOperand(op *PSNode) bool {
	for _, o := range n.operands {
		if o == op {
			return true
		}
	}
	return false
}

func (n *PSNode) SetZeroInitialized()     { n.zeroInitialized = true }
func (n *PSNode) IsZeroInitialized() bool { return n.zeroInitialized }

func (n *PSNode) SetIsHeap()   { n.heap = true }
func (n *PSNode) IsHeap() bool { return n.heap }

// SetSize records the allocation size in bytes; 0 means unknown.
func (n *PSNode) SetSize(s uint64) { n.size = s }
func (n *PSNode) Size() uint64     { return n.size }

func (n *PSNode) Offset() Offset { return n.offset }
func (n *PSNode) Length() Offset { return n.length }

func (n *PSNode) PairedNode() *PSNode     { return n.paired }
func (n *PSNode) SetPairedNode(p *PSNode) { n.paired = p }

func (n *PSNode) SetName(name string) { n.name = name }
func (n *PSNode) Name() string        { return n.name }

func (n *PSNode) String() string {
	if n.name != "" {
		return n.name
	}
	return fmt.Sprintf("%s@%p", n.kind, n)
}

// PointsTo exposes the node's points-to set. This is basically the only
// reason the node exists, so it is not hidden.
func (n *PSNode) PointsTo() *PointsToSet { return &n.pointsTo }

// AddPointsTo adds (target, off) to the node's points-to set and reports
// whether the set grew.
func (n *PSNode) AddPointsTo(target *PSNode, off Offset) bool {
	return n.pointsTo.Add(Pointer{target, off})
}

// DoesPointsTo reports whether the node's set contains the given pointer,
// honoring the unknown-offset subsumption.
func (n *PSNode) DoesPointsTo(target *PSNode, off Offset) bool {
	return n.pointsTo.Contains(Pointer{target, off})
}
