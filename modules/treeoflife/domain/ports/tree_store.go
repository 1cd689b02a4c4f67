package ports

import (
	"context"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
)

type TreeStore interface {
	SaveTree(ctx context.Context, root *types.TreeNode) error
	GetNode(ctx context.Context, id int64) (*types.NodeData, error)
	GetTree(ctx context.Context) (*types.TreeNode, error)
	GetSubTree(ctx context.Context, id int64) (*types.TreeNode, error)
	GetNodePath(ctx context.Context, id int64) ([]types.NodeData, error)
	GetParentNode(ctx context.Context, id int64) (*types.NodeData, error)
	GetChildren(ctx context.Context, id int64) ([]types.NodeData, error)
	AddNode(ctx context.Context, node types.NodeData, parentID int64) error
	MoveSubTree(ctx context.Context, id int64, newParentID int64) error
	DeleteSubTree(ctx context.Context, id int64) error
}
