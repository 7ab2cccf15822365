package pointsto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffset(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		assert.Equal(t, Offset(12), Offset(8).Add(4))
		assert.Equal(t, UnknownOffset, UnknownOffset.Add(4))
		assert.Equal(t, UnknownOffset, Offset(8).Add(UnknownOffset))
		assert.Equal(t, UnknownOffset, UnknownOffset.Add(UnknownOffset))
	})

	t.Run("Overflow", func(t *testing.T) {
		big := Offset(^uint64(0) - 1)
		assert.Equal(t, UnknownOffset, big.Add(big))
	})

	t.Run("InBounds", func(t *testing.T) {
		assert.True(t, Offset(15).InBounds(16))
		assert.False(t, Offset(16).InBounds(16))
		assert.True(t, Offset(1000).InBounds(0), "size 0 means unknown size")
		assert.False(t, UnknownOffset.InBounds(0))
	})
}

func TestPointsToSet(t *testing.T) {
	a, b := NewAlloc(), NewAlloc()

	t.Run("Insert", func(t *testing.T) {
		var s PointsToSet
		assert.True(t, s.Add(Pointer{a, 0}))
		assert.False(t, s.Add(Pointer{a, 0}), "duplicate insert must not grow the set")
		assert.True(t, s.Add(Pointer{a, 8}))
		assert.True(t, s.Add(Pointer{b, 0}))
		assert.Equal(t, 3, s.Len())
	})

	t.Run("UnknownOffsetSubsumes", func(t *testing.T) {
		var s PointsToSet
		require.True(t, s.Add(Pointer{a, UnknownOffset}))

		assert.False(t, s.Add(Pointer{a, 4}),
			"concrete offset subsumed by the unknown offset")
		assert.True(t, s.Contains(Pointer{a, 4}))
		assert.True(t, s.Contains(Pointer{a, UnknownOffset}))
		assert.Equal(t, 1, s.Len())

		assert.True(t, s.Add(Pointer{b, 4}), "other targets are unaffected")
	})

	t.Run("UnknownOffsetCollapses", func(t *testing.T) {
		var s PointsToSet
		require.True(t, s.Add(Pointer{a, 0}))
		require.True(t, s.Add(Pointer{a, 8}))
		require.Equal(t, 2, s.Len())

		assert.True(t, s.Add(Pointer{a, UnknownOffset}))
		assert.Equal(t, 1, s.Len(), "concrete offsets collapse into the unknown one")
		assert.True(t, s.Contains(Pointer{a, 0}))
		assert.True(t, s.Contains(Pointer{a, 12345}))
		assert.False(t, s.Contains(Pointer{b, 0}))
	})

	t.Run("AddAll", func(t *testing.T) {
		var s, o PointsToSet
		s.Add(Pointer{a, 0})
		o.Add(Pointer{a, 0})
		o.Add(Pointer{b, 4})

		assert.True(t, s.AddAll(&o))
		assert.False(t, s.AddAll(&o), "second union is a no-op")
		assert.Equal(t, 2, s.Len())
	})
}

func TestMemoryObject(t *testing.T) {
	a := NewAlloc()
	target := NewAlloc()

	t.Run("LoadReadsUnknownBin", func(t *testing.T) {
		mo := NewMemoryObject(a)
		var stored PointsToSet
		stored.Add(Pointer{target, 0})

		require.True(t, mo.AddPointsTo(8, &stored))
		require.True(t, mo.AddPointsTo(UnknownOffset, &stored))

		var dst PointsToSet
		_, found := mo.Load(8, &dst)
		assert.True(t, found)
		assert.True(t, dst.Contains(Pointer{target, 0}))

		dst = PointsToSet{}
		_, found = mo.Load(16, &dst)
		assert.True(t, found, "the unknown bin is read at every offset")
	})

	t.Run("UnknownLoadReadsEverything", func(t *testing.T) {
		mo := NewMemoryObject(a)
		var s1, s2 PointsToSet
		s1.Add(Pointer{target, 0})
		s2.Add(Pointer{target, 8})
		mo.AddPointsTo(0, &s1)
		mo.AddPointsTo(24, &s2)

		var dst PointsToSet
		changed, found := mo.Load(UnknownOffset, &dst)
		assert.True(t, changed)
		assert.True(t, found)
		assert.Equal(t, 2, dst.Len())
	})

	t.Run("EmptyStoreChangesNothing", func(t *testing.T) {
		mo := NewMemoryObject(a)
		assert.False(t, mo.AddPointsTo(0, new(PointsToSet)))
		assert.True(t, mo.Empty())
	})
}
