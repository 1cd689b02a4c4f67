package matpath

import (
	"fmt"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
)

// Encoded is a flattened tree: node rows and path rows in the same
// depth-first pre-order.
type Encoded struct {
	Nodes []types.NodeData
	Paths []types.TreeData
}

// Encode flattens the tree rooted at root. root is treated as the true root
// and gets a single-segment path even if it has an in-memory parent.
func Encode(root *types.TreeNode) (Encoded, error) {
	if root == nil {
		return Encoded{}, fmt.Errorf("%w: nil root", ports.ErrInvalidNodeID)
	}

	type frame struct {
		node       *types.TreeNode
		parentPath string
	}

	var out Encoded
	seen := make(map[int64]struct{})
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node.ID <= 0 {
			return Encoded{}, fmt.Errorf("%w: %d", ports.ErrInvalidNodeID, f.node.ID)
		}
		if _, dup := seen[f.node.ID]; dup {
			return Encoded{}, fmt.Errorf("%w: %d", ports.ErrDuplicateNodeID, f.node.ID)
		}
		seen[f.node.ID] = struct{}{}

		path := Join(f.parentPath, f.node.ID)
		out.Nodes = append(out.Nodes, f.node.Data())
		out.Paths = append(out.Paths, types.TreeData{NodeID: f.node.ID, Path: path})

		children := f.node.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], parentPath: path})
		}
	}
	return out, nil
}
