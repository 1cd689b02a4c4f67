package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
)

type treeJSON struct {
	types.NodeData
	Children []treeJSON `json:"children,omitempty"`
}

func toTreeJSON(n *types.TreeNode) treeJSON {
	out := treeJSON{NodeData: n.Data()}
	for _, c := range n.Children() {
		out.Children = append(out.Children, toTreeJSON(c))
	}
	return out
}

func printNodes(w io.Writer, asJSON bool, nodes []types.NodeData) error {
	if asJSON {
		if nodes == nil {
			nodes = []types.NodeData{}
		}
		return writeJSON(w, nodes)
	}
	for _, n := range nodes {
		if _, err := fmt.Fprintln(w, formatNode(n)); err != nil {
			return err
		}
	}
	return nil
}

// printTree renders one node per line, indented two spaces per level.
func printTree(w io.Writer, asJSON bool, root *types.TreeNode) error {
	if root == nil {
		if asJSON {
			return writeJSON(w, nil)
		}
		return nil
	}
	if asJSON {
		return writeJSON(w, toTreeJSON(root))
	}
	var err error
	var walk func(n *types.TreeNode, depth int)
	walk = func(n *types.TreeNode, depth int) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), formatNode(n.Data()))
		for _, c := range n.Children() {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return err
}

func formatNode(n types.NodeData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", n.ID, n.Name)
	if n.Extinct {
		b.WriteString(" [extinct]")
	}
	if n.Confidence > 0 {
		fmt.Fprintf(&b, " (confidence=%d)", n.Confidence)
	}
	return b.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
