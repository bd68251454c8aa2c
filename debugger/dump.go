package debugger

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

func robTree(s *pipeline.State) treeprint.Tree {
	tree := treeprint.NewWithRoot(fmt.Sprintf("rob tail: %d, head: %d", s.ROBTail, s.ROBHead))
	for _, e := range s.LiveROB() {
		tree.AddNode(e.String())
	}
	return tree
}

func regTree(s *pipeline.State) treeprint.Tree {
	tree := treeprint.NewWithRoot("registers")
	for r := uint8(0); r < insts.NumRegs; r++ {
		reg := s.ARF[r]
		node := fmt.Sprintf("%-4s %08x", insts.RegName(r), reg.Value)
		if reg.Tag != pipeline.NoTag {
			node += fmt.Sprintf(" (rob #%d)", reg.Tag)
		}
		tree.AddNode(node)
	}
	return tree
}

func rsTree(s *pipeline.State) treeprint.Tree {
	tree := treeprint.NewWithRoot("reservation stations")

	rs := tree.AddBranch("rs")
	for _, e := range s.BusyRS() {
		rs.AddNode(e.String())
	}

	ldb := tree.AddBranch(fmt.Sprintf("ldb tail: %d, head: %d", s.LDBTail, s.LDBHead))
	for _, e := range s.LiveLDB() {
		ldb.AddNode(e.String())
	}
	return tree
}

func bhtTree(s *pipeline.State) treeprint.Tree {
	tree := treeprint.NewWithRoot(fmt.Sprintf("bht history: %b", s.GlobalHistory))
	for i, e := range s.BHT {
		if e.Valid {
			tree.AddNode(fmt.Sprintf("[%d] %x: %d", i, e.LastPC, e.Counter))
		}
	}
	return tree
}

func btacTree(s *pipeline.State) treeprint.Tree {
	tree := treeprint.NewWithRoot("btac")
	for i, e := range s.BTAC {
		if e.BranchPC != 0 {
			tree.AddNode(fmt.Sprintf("[%d] %x -> %x", i, e.BranchPC, e.Target))
		}
	}
	return tree
}

// rasTree lists the stack from the head downwards.
func rasTree(s *pipeline.State) treeprint.Tree {
	r := s.RAS
	tree := treeprint.NewWithRoot(fmt.Sprintf("ras head: %d, %x", r.HeadPtr, r.Head))

	mask := len(r.Buffer) - 1
	for n, i := 0, r.HeadPtr; n < len(r.Buffer); n, i = n+1, (i-1)&mask {
		tree.AddNode(fmt.Sprintf("%d - %x", i, r.Buffer[i]))
	}
	return tree
}

func cdbTree(s *pipeline.State) treeprint.Tree {
	tree := treeprint.NewWithRoot("cdb")
	for i, slot := range s.CDB {
		if slot.Tag == pipeline.NoTag {
			tree.AddNode(fmt.Sprintf("[%d] free", i))
			continue
		}
		tree.AddNode(fmt.Sprintf("[%d] #%d = %x", i, slot.Tag, slot.Value))
	}
	return tree
}
