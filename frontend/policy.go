package frontend

import (
	"github.com/sirupsen/logrus"

	"github.com/kvasek/pointsto"
)

type spliceKey struct {
	where *pointsto.PSNode
	what  *pointsto.PSNode
}

// policy extends the flow-insensitive memory model with interprocedural
// splicing: when the solver discovers a callee of a function pointer call, it
// wires the call into the callee's entry, the callee's return into the
// call-return node, and the actual arguments into the formal parameters.
// Each (site, callee) pair is spliced exactly once.
type policy struct {
	*pointsto.FlowInsensitive
	builder *Builder
	spliced map[spliceKey]bool
}

func newPolicy(b *Builder) *policy {
	return &policy{
		FlowInsensitive: pointsto.NewFlowInsensitive(),
		builder:         b,
		spliced:         make(map[spliceKey]bool),
	}
}

func (p *policy) FunctionPointerCall(where, what *pointsto.PSNode) bool {
	key := spliceKey{where, what}
	if p.spliced[key] {
		return false
	}
	p.spliced[key] = true

	fg, ok := p.builder.objs[what]
	if !ok {
		// A Function node the builder did not create; nothing to splice.
		return false
	}

	logrus.WithFields(logrus.Fields{
		"site":   where.String(),
		"callee": fg.fun.String(),
	}).Debug("resolved function pointer call")

	if site, ok := p.builder.sites[where]; ok {
		for i, arg := range site.args {
			if i < len(fg.params) {
				fg.params[i].AddOperand(arg)
			}
		}
	}

	where.AddSuccessor(fg.entry)

	cr := where.PairedNode()
	if cr != nil {
		fg.ret.AddSuccessor(cr)
		if !cr.HasOperand(fg.ret) {
			cr.AddOperand(fg.ret)
		}
	}

	return true
}
