package pointsto

// Structural editing of the pointer subgraph. Every operation either
// completes with the bidirectional edge invariant restored (s is a successor
// of n iff n is a predecessor of s, with multiplicity one) or panics on a
// violated precondition.

// AddSuccessor wires an edge n → succ and the matching back-edge. Adding an
// edge that already exists is a no-op: the graph has no parallel edges.
func (n *PSNode) AddSuccessor(succ *PSNode) {
	if succ == nil {
		log.Panicf("nil successor for %s", n)
	}
	for _, s := range n.successors {
		if s == succ {
			return
		}
	}
	n.successors = append(n.successors, succ)
	succ.predecessors = append(succ.predecessors, n)
}

func (n *PSNode) Successors() []*PSNode   { return n.successors }
func (n *PSNode) Predecessors() []*PSNode { return n.predecessors }

func (n *PSNode) SuccessorsNum() int   { return len(n.successors) }
func (n *PSNode) PredecessorsNum() int { return len(n.predecessors) }

// SingleSuccessor returns the successor of a node known to have exactly one.
func (n *PSNode) SingleSuccessor() *PSNode {
	if len(n.successors) != 1 {
		log.Panicf("%s has %d successors, expected one", n, len(n.successors))
	}
	return n.successors[0]
}

// SinglePredecessor returns the predecessor of a node known to have exactly
// one.
func (n *PSNode) SinglePredecessor() *PSNode {
	if len(n.predecessors) != 1 {
		log.Panicf("%s has %d predecessors, expected one", n, len(n.predecessors))
	}
	return n.predecessors[0]
}

func (n *PSNode) assertEdgeFree() {
	if len(n.predecessors) != 0 || len(n.successors) != 0 {
		log.Panicf("%s is already part of a subgraph", n)
	}
}

// InsertAfter splices the edge-free node n into the subgraph right after
// target: n takes over target's successors and becomes its only successor.
func (n *PSNode) InsertAfter(target *PSNode) {
	n.assertEdgeFree()

	n.successors, target.successors = target.successors, nil
	target.AddSuccessor(n)

	for _, succ := range n.successors {
		for i, pred := range succ.predecessors {
			if pred == target {
				succ.predecessors[i] = n
			}
		}
	}
}

// InsertBefore splices the edge-free node n into the subgraph right before
// target: n takes over target's predecessors and target becomes its only
// successor.
func (n *PSNode) InsertBefore(target *PSNode) {
	n.assertEdgeFree()

	n.predecessors, target.predecessors = target.predecessors, nil
	n.AddSuccessor(target)

	for _, pred := range n.predecessors {
		for i, succ := range pred.successors {
			if succ == target {
				pred.successors[i] = n
			}
		}
	}
}

// InsertSequenceBefore splices the linear sequence first…last before n.
// The sequence must not be part of any subgraph yet: first must have no
// predecessors and last no successors.
func (n *PSNode) InsertSequenceBefore(first, last *PSNode) {
	if len(first.predecessors) != 0 {
		log.Panicf("sequence head %s already has predecessors", first)
	}
	if len(last.successors) != 0 {
		log.Panicf("sequence tail %s already has successors", last)
	}

	first.predecessors, n.predecessors = n.predecessors, nil

	for _, pred := range first.predecessors {
		for i, succ := range pred.successors {
			if succ == n {
				pred.successors[i] = first
			}
		}
	}

	last.AddSuccessor(n)
}

// ReplaceSingleSuccessor redirects the single outgoing edge of n to succ,
// removing the back-edge from the old successor.
func (n *PSNode) ReplaceSingleSuccessor(succ *PSNode) {
	old := n.SingleSuccessor()

	preds := old.predecessors[:0]
	for _, pred := range old.predecessors {
		if pred != n {
			preds = append(preds, pred)
		}
	}
	old.predecessors = preds

	n.successors = nil
	n.AddSuccessor(succ)
}
