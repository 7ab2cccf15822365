package pointsto

import (
	"sync/atomic"

	"github.com/kvasek/pointsto/internal/queue"
)

// Visitation epochs are process-wide so that independent traversals (and
// independent solvers over the same nodes) never confuse each other's marks.
// The whole analysis is single-threaded, see the package documentation.
var dfsEpoch uint64

// Solver computes the points-to sets of a pointer subgraph by monotone
// fixpoint iteration over a FIFO worklist. All transfers only ever grow
// points-to sets; together with the finite offset lattice this guarantees
// termination.
type Solver struct {
	root   *PSNode
	policy Policy

	queue queue.Queue[*PSNode]
	steps int

	// SelfCheck makes Run perform one extra pass over the subgraph and
	// report through the policy's Error hook if it still observes changes.
	SelfCheck bool

	// scratch buffer for memory object lookups
	objs []*MemoryObject
}

// NewSolver creates a solver for the subgraph reachable from root.
func NewSolver(root *PSNode, policy Policy) *Solver {
	if root == nil {
		log.Panic("cannot create a solver without a root")
	}
	if policy == nil {
		policy = NewFlowInsensitive()
	}
	return &Solver{root: root, policy: policy}
}

func (s *Solver) Root() *PSNode  { return s.root }
func (s *Solver) Policy() Policy { return s.policy }

// Pending returns the number of queued nodes. Steps returns the number of
// nodes processed so far. Callers that need to bound the work can check
// either between iterations of their own driver loop; the solver itself
// never suspends.
func (s *Solver) Pending() int { return s.queue.Len() }
func (s *Solver) Steps() int   { return s.steps }

// ReachableNodes returns every node reachable from start over successor
// edges, including start itself, in BFS order.
func (s *Solver) ReachableNodes(start *PSNode) []*PSNode {
	var nodes []*PSNode
	forEachReachable(start, func(n *PSNode) { nodes = append(nodes, n) })
	return nodes
}

// EnqueueReachable pushes start and everything reachable from it onto the
// work queue in BFS order. This is the default enqueueing discipline; nodes
// are de-duplicated within one traversal by a fresh visitation epoch.
func (s *Solver) EnqueueReachable(start *PSNode) {
	forEachReachable(start, func(n *PSNode) { s.queue.Push(n) })
}

func forEachReachable(start *PSNode, f func(*PSNode)) {
	epoch := atomic.AddUint64(&dfsEpoch, 1)

	var fifo queue.Queue[*PSNode]
	start.dfsid = epoch
	fifo.Push(start)

	for !fifo.Empty() {
		cur := fifo.Pop()
		f(cur)

		for _, succ := range cur.Successors() {
			if succ.dfsid != epoch {
				succ.dfsid = epoch
				fifo.Push(succ)
			}
		}
	}
}

// Run iterates to a fixpoint. On return every node's points-to set is final;
// re-running on the same subgraph changes nothing.
func (s *Solver) Run() {
	s.EnqueueReachable(s.root)
	s.processQueue()

	// A flow-sensitive policy may read from operands that the first pass has
	// not processed yet, so the queue can drain while the solution is still
	// growing. A second full pass settles such stragglers.
	s.EnqueueReachable(s.root)
	s.processQueue()

	if s.SelfCheck {
		s.EnqueueReachable(s.root)
		for !s.queue.Empty() {
			cur := s.queue.Pop()
			s.policy.BeforeProcessed(cur)
			if s.processNode(cur) {
				s.policy.Error(cur, "solver did not reach a fixpoint")
			}
			s.policy.AfterProcessed(cur)
		}
	}
}

func (s *Solver) processQueue() {
	for !s.queue.Empty() {
		cur := s.queue.Pop()
		s.steps++

		s.policy.BeforeProcessed(cur)

		if s.processNode(cur) {
			log.WithField("node", cur).Debug("points-to state changed")
			s.policy.Enqueue(s, cur)
		}

		s.policy.AfterProcessed(cur)
	}
}

// processNode applies the transfer function of cur's kind and reports
// whether any points-to state changed.
func (s *Solver) processNode(cur *PSNode) bool {
	switch cur.Kind() {
	case Alloc, DynAlloc, Function, NullAddr, UnknownMem:
		// Self-pointer assigned at construction; nothing flows in.
		return false

	case Constant, Noop, Entry, Call:
		return false

	case Cast:
		return cur.pointsTo.AddAll(cur.Operand(0).PointsTo())

	case Phi, CallReturn, Return:
		changed := false
		for _, op := range cur.Operands() {
			changed = cur.pointsTo.AddAll(op.PointsTo()) || changed
		}
		return changed

	case GEP:
		return s.processGEP(cur)

	case Load:
		return s.processLoad(cur)

	case Store:
		return s.processStore(cur)

	case Memcpy:
		return s.processMemcpy(cur)

	case CallFuncPtr:
		changed := false
		cur.Operand(0).PointsTo().ForEach(func(p Pointer) {
			// Pointers to non-functions would be called here; they are
			// silently ignored, conservative clients see them through the
			// operand's set.
			if p.Target.Kind() == Function {
				changed = s.policy.FunctionPointerCall(cur, p.Target) || changed
			}
		})
		return changed

	default:
		log.Panicf("unknown node kind %s", cur.Kind())
		return false
	}
}

// gepOffset adjusts off by the node displacement and saturates to the
// unknown offset when the result is outside the target's known size.
func gepOffset(target *PSNode, off, displacement Offset) Offset {
	res := off.Add(displacement)
	if !res.IsUnknown() && !res.InBounds(target.Size()) {
		return UnknownOffset
	}
	return res
}

func (s *Solver) processGEP(cur *PSNode) bool {
	changed := false
	cur.Operand(0).PointsTo().ForEach(func(p Pointer) {
		off := gepOffset(p.Target, p.Offset, cur.Offset())
		changed = cur.AddPointsTo(p.Target, off) || changed
	})
	return changed
}

func (s *Solver) processLoad(cur *PSNode) bool {
	addr := cur.Operand(0)
	if addr.PointsTo().Empty() {
		return s.policy.ErrorEmptyPointsTo(cur, addr)
	}

	changed := false
	for _, p := range addr.PointsTo().Pointers() {
		switch {
		case p.IsNull():
			changed = s.policy.Error(cur, "dereference of null pointer") || changed

		case p.IsUnknownMem():
			// Reading unknown memory yields unknown memory.
			changed = cur.AddPointsTo(UnknownMemory, UnknownOffset) || changed

		default:
			s.objs = s.objs[:0]
			s.policy.GetMemoryObjects(cur, p.Target, &s.objs)

			found := false
			for _, mo := range s.objs {
				ch, f := mo.Load(p.Offset, cur.PointsTo())
				changed = ch || changed
				found = found || f
			}

			switch {
			case found:
			case p.Target.IsZeroInitialized():
				// Untouched zeroed memory reads as the null pointer.
				changed = cur.AddPointsTo(Null, 0) || changed
			default:
				changed = s.policy.ErrorEmptyPointsTo(cur, addr) || changed
			}
		}
	}
	return changed
}

func (s *Solver) processStore(cur *PSNode) bool {
	val, addr := cur.Operand(0), cur.Operand(1)

	changed := false
	for _, p := range addr.PointsTo().Pointers() {
		switch {
		case p.IsNull():
			changed = s.policy.Error(cur, "write through null pointer") || changed

		case p.IsUnknownMem():
			// Unknown memory already points anywhere; the write cannot be
			// observed.

		default:
			s.objs = s.objs[:0]
			s.policy.GetMemoryObjects(cur, p.Target, &s.objs)
			for _, mo := range s.objs {
				changed = mo.AddPointsTo(p.Offset, val.PointsTo()) || changed
			}
		}
	}
	return changed
}

// memEntry is a snapshot of one source bin of a memcpy. Snapshotting keeps
// self-copies (overlapping source and destination objects) well defined.
type memEntry struct {
	off  Offset
	ptrs []Pointer
}

func (s *Solver) processMemcpy(cur *PSNode) bool {
	from, to := cur.Operand(0), cur.Operand(1)
	length := cur.Length()

	changed := false
	for _, pd := range to.PointsTo().Pointers() {
		switch {
		case pd.IsNull():
			changed = s.policy.Error(cur, "memcpy into null pointer") || changed
			continue
		case pd.IsUnknownMem():
			continue
		}

		s.objs = s.objs[:0]
		s.policy.GetMemoryObjects(cur, pd.Target, &s.objs)
		dobjs := append([]*MemoryObject(nil), s.objs...)

		for _, ps := range from.PointsTo().Pointers() {
			if ps.IsNull() {
				changed = s.policy.Error(cur, "memcpy from null pointer") || changed
				continue
			}

			if ps.IsUnknownMem() {
				for _, dobj := range dobjs {
					changed = dobj.AddPointer(UnknownOffset,
						Pointer{UnknownMemory, UnknownOffset}) || changed
				}
				continue
			}

			srcLow := ps.Offset.Add(cur.Offset())

			s.objs = s.objs[:0]
			s.policy.GetMemoryObjects(cur, ps.Target, &s.objs)

			var entries []memEntry
			for _, sobj := range s.objs {
				sobj.ForEach(func(off Offset, set *PointsToSet) {
					if !inCopyWindow(off, srcLow, length) {
						return
					}
					entries = append(entries, memEntry{off, set.Pointers()})
				})
			}

			for _, e := range entries {
				dstOff := UnknownOffset
				if !e.off.IsUnknown() && !srcLow.IsUnknown() && !pd.Offset.IsUnknown() {
					dstOff = gepOffset(pd.Target, pd.Offset, e.off-srcLow)
				}

				for _, dobj := range dobjs {
					for _, ptr := range e.ptrs {
						changed = dobj.AddPointer(dstOff, ptr) || changed
					}
				}
			}
		}
	}
	return changed
}

// inCopyWindow reports whether a source bin at off is covered by a copy of
// length bytes starting at low. Unknown components cover everything.
func inCopyWindow(off, low, length Offset) bool {
	if off.IsUnknown() || low.IsUnknown() || length.IsUnknown() {
		return true
	}
	high := low.Add(length)
	if high.IsUnknown() {
		return off >= low
	}
	return off >= low && off < high
}
