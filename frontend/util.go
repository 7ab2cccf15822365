package frontend

import (
	"go/constant"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/kvasek/pointsto"
)

// pointerLike reports whether values of the type can carry pointers the
// analysis tracks.
func pointerLike(t types.Type) bool {
	switch t := t.(type) {
	case *types.Pointer,
		*types.Map,
		*types.Chan,
		*types.Slice,
		*types.Interface,
		*types.Signature:
		return true
	case *types.Named:
		return pointerLike(t.Underlying())
	default:
		return false
	}
}

func deref(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

func (b *Builder) sizeof(t types.Type) uint64 {
	sz := b.sizes.Sizeof(t)
	if sz < 0 {
		return 0
	}
	return uint64(sz)
}

// fieldOffset computes the byte offset of the field addressed by t.
func (b *Builder) fieldOffset(t *ssa.FieldAddr) pointsto.Offset {
	st := deref(t.X.Type()).Underlying().(*types.Struct)
	fields := make([]*types.Var, st.NumFields())
	for i := range fields {
		fields[i] = st.Field(i)
	}
	return pointsto.Offset(b.sizes.Offsetsof(fields)[t.Field])
}

// indexOffset computes the byte offset of the element addressed by t, which
// is known only for constant indices into types with a known element size.
func (b *Builder) indexOffset(t *ssa.IndexAddr) pointsto.Offset {
	c, ok := t.Index.(*ssa.Const)
	if !ok || c.Value == nil {
		return pointsto.UnknownOffset
	}
	idx, exact := constant.Int64Val(constant.ToInt(c.Value))
	if !exact || idx < 0 {
		return pointsto.UnknownOffset
	}

	var elem types.Type
	switch bt := t.X.Type().Underlying().(type) {
	case *types.Pointer:
		arr, ok := bt.Elem().Underlying().(*types.Array)
		if !ok {
			return pointsto.UnknownOffset
		}
		elem = arr.Elem()
	case *types.Slice:
		elem = bt.Elem()
	default:
		return pointsto.UnknownOffset
	}

	esz := b.sizeof(elem)
	if esz == 0 {
		return pointsto.UnknownOffset
	}
	return pointsto.Offset(uint64(idx) * esz)
}
