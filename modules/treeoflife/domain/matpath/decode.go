package matpath

import (
	"fmt"
	"strconv"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
)

// DecodeTree links rows into a tree rooted at the row with a single-segment
// path.
func DecodeTree(rows []types.TreeRow) (*types.TreeNode, error) {
	return decode(rows, 0)
}

// DecodeSubTree links rows into a tree rooted at rootID. The root row's
// path still names its real ancestors; they are ignored.
func DecodeSubTree(rows []types.TreeRow, rootID int64) (*types.TreeNode, error) {
	if rootID <= 0 {
		return nil, fmt.Errorf("%w: %d", ports.ErrInvalidNodeID, rootID)
	}
	return decode(rows, rootID)
}

// decode attaches children in row order, so rows ordered by id produce
// siblings in ascending id order.
func decode(rows []types.TreeRow, rootID int64) (*types.TreeNode, error) {
	nodes := make(map[int64]*types.TreeNode, len(rows))
	for _, r := range rows {
		last, err := NodeID(r.Path)
		if err != nil {
			return nil, err
		}
		if last != r.Node.ID {
			return nil, ports.NewMalformedPath(r.Path, "last segment does not match node "+strconv.FormatInt(r.Node.ID, 10))
		}
		if _, dup := nodes[r.Node.ID]; dup {
			return nil, ports.NewMalformedPath(r.Path, "node "+strconv.FormatInt(r.Node.ID, 10)+" appears twice")
		}
		nodes[r.Node.ID] = types.NewTreeNode(r.Node)
	}

	var root *types.TreeNode
	for _, r := range rows {
		node := nodes[r.Node.ID]

		parentID, hasParent, err := ParentID(r.Path)
		if err != nil {
			return nil, err
		}
		if r.Node.ID == rootID || !hasParent {
			if root != nil {
				return nil, ports.NewMalformedPath(r.Path, "more than one root")
			}
			root = node
			continue
		}

		parent, ok := nodes[parentID]
		if !ok {
			return nil, ports.NewMalformedPath(r.Path, "parent "+strconv.FormatInt(parentID, 10)+" is missing")
		}
		if err := parent.AddChild(node); err != nil {
			return nil, ports.NewMalformedPath(r.Path, err.Error())
		}
	}

	if root == nil {
		return nil, ports.NewMalformedPath("", "no root among "+strconv.Itoa(len(rows))+" rows")
	}
	if rootID != 0 && root.ID != rootID {
		return nil, ports.NewMalformedPath("", "subtree root "+strconv.FormatInt(rootID, 10)+" is missing")
	}
	return root, nil
}
