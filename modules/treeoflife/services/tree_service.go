package services

import (
	"context"
	"fmt"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
	"github.com/jacksonlee411/tree-of-life/pkg/nodefilter"
)

type TreeOfLifeService interface {
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
	FindInSubTree(ctx context.Context, id int64, expr string) ([]types.NodeData, error)
}

// TreeFacade validates ids before they reach the store.
type TreeFacade struct {
	store ports.TreeStore
}

var _ TreeOfLifeService = TreeFacade{}

func NewTreeFacade(store ports.TreeStore) TreeFacade {
	return TreeFacade{store: store}
}

func (f TreeFacade) SaveTree(ctx context.Context, root *types.TreeNode) error {
	if root == nil {
		return fmt.Errorf("%w: root is required", ports.ErrInvalidNodeID)
	}
	return f.store.SaveTree(ctx, root)
}

func (f TreeFacade) GetNode(ctx context.Context, id int64) (*types.NodeData, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return f.store.GetNode(ctx, id)
}

func (f TreeFacade) GetTree(ctx context.Context) (*types.TreeNode, error) {
	return f.store.GetTree(ctx)
}

func (f TreeFacade) GetSubTree(ctx context.Context, id int64) (*types.TreeNode, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return f.store.GetSubTree(ctx, id)
}

func (f TreeFacade) GetNodePath(ctx context.Context, id int64) ([]types.NodeData, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return f.store.GetNodePath(ctx, id)
}

func (f TreeFacade) GetParentNode(ctx context.Context, id int64) (*types.NodeData, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return f.store.GetParentNode(ctx, id)
}

func (f TreeFacade) GetChildren(ctx context.Context, id int64) ([]types.NodeData, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return f.store.GetChildren(ctx, id)
}

func (f TreeFacade) AddNode(ctx context.Context, node types.NodeData, parentID int64) error {
	if err := validateID(node.ID); err != nil {
		return err
	}
	if err := validateID(parentID); err != nil {
		return err
	}
	if node.Confidence < 0 {
		return fmt.Errorf("%w: confidence must be non-negative", ports.ErrInvalidNodeID)
	}
	return f.store.AddNode(ctx, node, parentID)
}

func (f TreeFacade) MoveSubTree(ctx context.Context, id int64, newParentID int64) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := validateID(newParentID); err != nil {
		return err
	}
	return f.store.MoveSubTree(ctx, id, newParentID)
}

func (f TreeFacade) DeleteSubTree(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}
	return f.store.DeleteSubTree(ctx, id)
}

// FindInSubTree returns the nodes under id, id included, that satisfy the
// CEL expression. An empty expression selects the whole subtree.
func (f TreeFacade) FindInSubTree(ctx context.Context, id int64, expr string) ([]types.NodeData, error) {
	filter, err := nodefilter.Compile(expr)
	if err != nil {
		return nil, err
	}
	root, err := f.GetSubTree(ctx, id)
	if err != nil {
		return nil, err
	}
	return filter.Select(root)
}

func validateID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ports.ErrInvalidNodeID, id)
	}
	return nil
}
