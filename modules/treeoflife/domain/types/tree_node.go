package types

import (
	"errors"
	"slices"
)

// ErrCyclicLink is returned when a node would become its own ancestor.
var ErrCyclicLink = errors.New("cyclic_link")

// TreeNode owns its children in insertion order. The parent pointer is a
// back-reference for upward traversal only.
type TreeNode struct {
	NodeData

	parent   *TreeNode
	children []*TreeNode
}

func NewTreeNode(data NodeData) *TreeNode {
	return &TreeNode{NodeData: data}
}

// AddChild appends child as the last child of n. A child that is already
// attached elsewhere is detached from its previous parent first. Adding n
// itself or one of its ancestors fails with ErrCyclicLink and leaves both
// nodes untouched.
func (n *TreeNode) AddChild(child *TreeNode) error {
	if child == nil {
		return errors.New("types: nil child")
	}
	for a := n; a != nil; a = a.parent {
		if a == child {
			return ErrCyclicLink
		}
	}
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// removeChild replaces the children slice rather than shifting it in place,
// so slices handed out by Children keep their contents.
func (n *TreeNode) removeChild(child *TreeNode) {
	if i := slices.Index(n.children, child); i >= 0 {
		n.children = slices.Delete(slices.Clone(n.children), i, i+1)
		child.parent = nil
	}
}

func (n *TreeNode) Parent() *TreeNode { return n.parent }

func (n *TreeNode) Children() []*TreeNode { return n.children }

func (n *TreeNode) Data() NodeData { return n.NodeData }

// Walk visits n and its descendants depth-first in pre-order. Returning
// false from fn skips the visited node's descendants.
func (n *TreeNode) Walk(fn func(node *TreeNode) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Find returns the node with the given id in the subtree rooted at n.
func (n *TreeNode) Find(id int64) *TreeNode {
	var found *TreeNode
	n.Walk(func(node *TreeNode) bool {
		if found != nil {
			return false
		}
		if node.ID == id {
			found = node
			return false
		}
		return true
	})
	return found
}

// Size reports the number of nodes in the subtree rooted at n.
func (n *TreeNode) Size() int {
	count := 0
	n.Walk(func(*TreeNode) bool {
		count++
		return true
	})
	return count
}
