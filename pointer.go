package pointsto

import "fmt"

// Pointer is one element of a points-to relation: it denotes the memory at
// the given byte offset of the abstract object allocated at Target. Target is
// always an allocation-site-like node (Alloc, DynAlloc, Function or one of
// the sentinels). Pointers are compared by value.
type Pointer struct {
	Target *PSNode
	Offset Offset
}

func (p Pointer) IsNull() bool       { return p.Target != nil && p.Target.Kind() == NullAddr }
func (p Pointer) IsUnknownMem() bool { return p.Target != nil && p.Target.Kind() == UnknownMem }

func (p Pointer) String() string {
	return fmt.Sprintf("(%s+%s)", p.Target, p.Offset)
}

type offsetSet map[Offset]struct{}

// PointsToSet is a set of Pointers kept canonical with respect to the unknown
// offset: when (t, UnknownOffset) is a member, it subsumes every concrete
// (t, k) and no concrete offset for t is stored.
type PointsToSet struct {
	targets map[*PSNode]offsetSet
}

// Add inserts a pointer and reports whether the observable content of the set
// grew. Inserting a concrete offset subsumed by an unknown one is a no-op;
// inserting an unknown offset collapses the concrete offsets stored for the
// same target.
func (s *PointsToSet) Add(p Pointer) bool {
	if s.targets == nil {
		s.targets = make(map[*PSNode]offsetSet)
	}

	offs, ok := s.targets[p.Target]
	if !ok {
		s.targets[p.Target] = offsetSet{p.Offset: {}}
		return true
	}

	if _, unknown := offs[UnknownOffset]; unknown {
		return false
	}

	if p.Offset.IsUnknown() {
		s.targets[p.Target] = offsetSet{UnknownOffset: {}}
		return true
	}

	if _, found := offs[p.Offset]; found {
		return false
	}

	offs[p.Offset] = struct{}{}
	return true
}

// AddAll unions other into s and reports whether s grew.
func (s *PointsToSet) AddAll(other *PointsToSet) bool {
	changed := false
	other.ForEach(func(p Pointer) {
		changed = s.Add(p) || changed
	})
	return changed
}

// Contains reports set membership under canonicalization: a concrete pointer
// is contained when either it or the unknown-offset pointer for the same
// target is stored.
func (s *PointsToSet) Contains(p Pointer) bool {
	offs, ok := s.targets[p.Target]
	if !ok {
		return false
	}

	if _, unknown := offs[UnknownOffset]; unknown {
		return true
	}

	_, found := offs[p.Offset]
	return found
}

// Len returns the number of stored pointers. An unknown-offset entry counts
// as one regardless of how many concrete offsets it collapsed.
func (s *PointsToSet) Len() int {
	n := 0
	for _, offs := range s.targets {
		n += len(offs)
	}
	return n
}

func (s *PointsToSet) Empty() bool { return s.Len() == 0 }

// ForEach calls f for every stored pointer. The iteration order is
// unspecified; the solver's result does not depend on it.
func (s *PointsToSet) ForEach(f func(Pointer)) {
	for target, offs := range s.targets {
		for off := range offs {
			f(Pointer{target, off})
		}
	}
}

// Pointers returns the stored pointers as a slice.
func (s *PointsToSet) Pointers() []Pointer {
	res := make([]Pointer, 0, s.Len())
	s.ForEach(func(p Pointer) { res = append(res, p) })
	return res
}

func (s *PointsToSet) String() string {
	str := "{"
	first := true
	s.ForEach(func(p Pointer) {
		if !first {
			str += ", "
		}
		first = false
		str += p.String()
	})
	return str + "}"
}
