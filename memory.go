package pointsto

// MemoryObject summarizes the memory allocated at one allocation site. It
// maps byte offsets within the object to the points-to sets stored there.
// Stores at the unknown offset land in a dedicated bin that every load reads.
type MemoryObject struct {
	node   *PSNode
	values map[Offset]*PointsToSet
}

// NewMemoryObject creates an empty memory object for the given allocation
// site.
func NewMemoryObject(node *PSNode) *MemoryObject {
	if !node.Kind().IsAllocation() {
		log.Panicf("memory object for non-allocation node %s", node)
	}
	return &MemoryObject{node: node}
}

// Node returns the allocation site this object summarizes.
func (mo *MemoryObject) Node() *PSNode { return mo.node }

func (mo *MemoryObject) bin(off Offset) *PointsToSet {
	if mo.values == nil {
		mo.values = make(map[Offset]*PointsToSet)
	}
	set, ok := mo.values[off]
	if !ok {
		set = new(PointsToSet)
		mo.values[off] = set
	}
	return set
}

// AddPointsTo unions set into the bin at off and reports whether the object
// changed.
func (mo *MemoryObject) AddPointsTo(off Offset, set *PointsToSet) bool {
	if set.Empty() {
		return false
	}
	return mo.bin(off).AddAll(set)
}

// AddPointer adds a single pointer to the bin at off.
func (mo *MemoryObject) AddPointer(off Offset, p Pointer) bool {
	return mo.bin(off).Add(p)
}

// Load unions into dst everything readable at off: the bin at off and the
// unknown-offset bin; a load at the unknown offset reads every bin. It
// returns whether dst grew and whether any stored pointer was found at all.
func (mo *MemoryObject) Load(off Offset, dst *PointsToSet) (changed, found bool) {
	for o, set := range mo.values {
		if set.Empty() {
			continue
		}
		if off.IsUnknown() || o.IsUnknown() || o == off {
			found = true
			changed = dst.AddAll(set) || changed
		}
	}
	return changed, found
}

// ForEach calls f for every non-empty (offset, set) bin.
func (mo *MemoryObject) ForEach(f func(off Offset, set *PointsToSet)) {
	for off, set := range mo.values {
		if !set.Empty() {
			f(off, set)
		}
	}
}

// Empty reports whether the object holds no pointers.
func (mo *MemoryObject) Empty() bool {
	for _, set := range mo.values {
		if !set.Empty() {
			return false
		}
	}
	return true
}
