package pointsto_test

import (
	"fmt"
	"testing"

	"github.com/kvasek/pointsto"
)

var blackHole any

// buildLadder creates a subgraph of n store/load pairs over distinct slots,
// with a single Phi merging all loaded pointers at the end.
func buildLadder(n int) (root, last *pointsto.PSNode) {
	root = pointsto.NewEntry()
	cur := root

	step := func(next *pointsto.PSNode) {
		cur.AddSuccessor(next)
		cur = next
	}

	merge := pointsto.NewPhi()
	for i := 0; i < n; i++ {
		target := pointsto.NewAlloc()
		slot := pointsto.NewAlloc()
		step(target)
		step(slot)
		step(pointsto.NewStore(pointsto.NewConstant(target, 0), slot))

		ld := pointsto.NewLoad(slot)
		step(ld)
		merge.AddOperand(ld)
	}
	step(merge)

	return root, merge
}

// Benchmark fixpoint solving over synthetic subgraphs of growing size.
func BenchmarkSolver(b *testing.B) {
	for _, size := range [...]int{16, 256, 1024} {
		b.Run(fmt.Sprintf("ladder-%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				root, merge := buildLadder(size)
				b.StartTimer()

				s := pointsto.NewSolver(root, nil)
				s.Run()
				blackHole = merge.PointsTo().Len()
			}
		})
	}
}
