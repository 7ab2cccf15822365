package pointsto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireConsistentEdges checks the bidirectional edge invariant over the
// given nodes.
func requireConsistentEdges(t *testing.T, nodes ...*PSNode) {
	t.Helper()
	for _, n := range nodes {
		for _, succ := range n.Successors() {
			require.Contains(t, succ.Predecessors(), n,
				"%s is a successor of %s but lacks the back-edge", succ, n)
		}
		for _, pred := range n.Predecessors() {
			require.Contains(t, pred.Successors(), n,
				"%s is a predecessor of %s but lacks the forward edge", pred, n)
		}
	}
}

func TestNodeConstruction(t *testing.T) {
	t.Run("SelfPointer", func(t *testing.T) {
		for _, n := range []*PSNode{NewAlloc(), NewDynAlloc(), NewFunction()} {
			assert.True(t, n.DoesPointsTo(n, 0), "%s must point to itself", n.Kind())
			assert.Equal(t, 1, n.PointsTo().Len())
		}
		assert.True(t, NewDynAlloc().IsHeap())
	})

	t.Run("Sentinels", func(t *testing.T) {
		assert.True(t, Null.DoesPointsTo(Null, 0))
		assert.Equal(t, 1, Null.PointsTo().Len())

		assert.True(t, UnknownMemory.DoesPointsTo(UnknownMemory, UnknownOffset))
		assert.True(t, UnknownMemory.DoesPointsTo(UnknownMemory, 1234),
			"unknown memory stands for any offset")
		assert.Equal(t, 1, UnknownMemory.PointsTo().Len())
	})

	t.Run("Constant", func(t *testing.T) {
		a := NewAlloc()
		c := NewConstant(a, 8)
		assert.True(t, c.DoesPointsTo(a, 8))
		assert.Equal(t, 1, c.PointsTo().Len())
	})

	t.Run("Operands", func(t *testing.T) {
		val, addr := NewAlloc(), NewAlloc()
		s := NewStore(val, addr)
		require.Len(t, s.Operands(), 2)
		assert.Same(t, val, s.Operand(0))
		assert.Same(t, addr, s.Operand(1))

		g := NewGEP(addr, 16)
		assert.Equal(t, Offset(16), g.Offset())

		m := NewMemcpy(val, addr, 4, 32)
		assert.Equal(t, Offset(4), m.Offset())
		assert.Equal(t, Offset(32), m.Length())

		assert.Panics(t, func() { s.Operand(2) })
		assert.Panics(t, func() { NewLoad(nil) })
	})
}

func TestEdges(t *testing.T) {
	t.Run("NoParallelEdges", func(t *testing.T) {
		a, b := NewNoop(), NewNoop()
		a.AddSuccessor(b)
		a.AddSuccessor(b)

		assert.Len(t, a.Successors(), 1)
		assert.Len(t, b.Predecessors(), 1)
		requireConsistentEdges(t, a, b)
	})

	t.Run("SingleSuccessor", func(t *testing.T) {
		a, b := NewNoop(), NewNoop()
		a.AddSuccessor(b)
		assert.Same(t, b, a.SingleSuccessor())
		assert.Same(t, a, b.SinglePredecessor())

		a.AddSuccessor(NewNoop())
		assert.Panics(t, func() { a.SingleSuccessor() })
	})
}

func TestInsertAfter(t *testing.T) {
	a, b, c := NewNoop(), NewNoop(), NewNoop()
	a.AddSuccessor(b)
	a.AddSuccessor(c)

	n := NewNoop()
	n.InsertAfter(a)

	assert.Same(t, n, a.SingleSuccessor())
	assert.ElementsMatch(t, []*PSNode{b, c}, n.Successors())
	assert.Same(t, n, b.SinglePredecessor())
	assert.Same(t, n, c.SinglePredecessor())
	requireConsistentEdges(t, a, b, c, n)

	assert.Panics(t, func() { n.InsertAfter(a) },
		"a node already in a subgraph cannot be spliced in again")
}

func TestInsertBefore(t *testing.T) {
	a, b, c := NewNoop(), NewNoop(), NewNoop()
	a.AddSuccessor(c)
	b.AddSuccessor(c)

	n := NewNoop()
	n.InsertBefore(c)

	assert.ElementsMatch(t, []*PSNode{a, b}, n.Predecessors())
	assert.Same(t, c, n.SingleSuccessor())
	assert.Same(t, n, a.SingleSuccessor())
	assert.Same(t, n, b.SingleSuccessor())
	assert.Same(t, n, c.SinglePredecessor())
	requireConsistentEdges(t, a, b, c, n)
}

func TestInsertSequenceBefore(t *testing.T) {
	a, target := NewNoop(), NewNoop()
	a.AddSuccessor(target)

	first, last := NewNoop(), NewNoop()
	first.AddSuccessor(last)

	target.InsertSequenceBefore(first, last)

	assert.Same(t, first, a.SingleSuccessor())
	assert.Same(t, a, first.SinglePredecessor())
	assert.Same(t, target, last.SingleSuccessor())
	assert.Same(t, last, target.SinglePredecessor())
	requireConsistentEdges(t, a, target, first, last)
}

func TestReplaceSingleSuccessor(t *testing.T) {
	a, old, repl := NewNoop(), NewNoop(), NewNoop()
	other := NewNoop()
	a.AddSuccessor(old)
	other.AddSuccessor(old)

	a.ReplaceSingleSuccessor(repl)

	assert.Same(t, repl, a.SingleSuccessor())
	assert.Same(t, a, repl.SinglePredecessor())
	assert.Same(t, other, old.SinglePredecessor(),
		"only the edge from a is removed")
	requireConsistentEdges(t, a, old, repl, other)
}
