package pointsto

import "fmt"

// Offset is a byte offset into an abstract memory object. The analysis is
// untyped; all field and element accesses are expressed as byte offsets.
type Offset uint64

// UnknownOffset stands for any offset. It is the top element of the offset
// lattice: adding anything to it yields it again.
const UnknownOffset Offset = ^Offset(0)

func (o Offset) IsUnknown() bool { return o == UnknownOffset }

// Add sums two offsets. The sum saturates to UnknownOffset when either
// operand is unknown or when the numeric sum would wrap around.
func (o Offset) Add(o2 Offset) Offset {
	if o.IsUnknown() || o2.IsUnknown() {
		return UnknownOffset
	}

	if r := o + o2; r >= o {
		return r
	}
	return UnknownOffset
}

// InBounds reports whether the offset is a concrete offset within an
// allocation of the given size. A size of 0 means the allocation size is
// unknown, in which case every concrete offset is in bounds.
func (o Offset) InBounds(size uint64) bool {
	if o.IsUnknown() {
		return false
	}
	return size == 0 || uint64(o) < size
}

func (o Offset) String() string {
	if o.IsUnknown() {
		return "?"
	}
	return fmt.Sprintf("%d", uint64(o))
}
