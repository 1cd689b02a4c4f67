// Package csvload builds a tree from the Tree of Life Web Project CSV
// export: a nodes file and a links file.
package csvload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
)

var (
	ErrMissingColumn   = errors.New("csvload: missing column")
	ErrUnknownNode     = errors.New("csvload: unknown node")
	ErrMultipleParents = errors.New("csvload: node has more than one parent")
	ErrCycle           = errors.New("csvload: link creates a cycle")
	ErrNoSingleRoot    = errors.New("csvload: tree must have exactly one root")
)

const (
	colNodeID     = "node_id"
	colNodeName   = "node_name"
	colExtinct    = "extinct"
	colConfidence = "confidence"
	colSource     = "source_node_id"
	colTarget     = "target_node_id"
)

// Loader accumulates nodes and links. Children keep the order in which
// their links appear.
type Loader struct {
	nodes map[int64]*types.TreeNode
	order []int64
}

func NewLoader() *Loader {
	return &Loader{nodes: make(map[int64]*types.TreeNode)}
}

func (l *Loader) LoadNodesFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return l.LoadNodes(f)
}

func (l *Loader) LoadLinksFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return l.LoadLinks(f)
}

// LoadNodes reads rows with at least node_id, node_name, extinct and
// confidence columns. Other columns are ignored.
func (l *Loader) LoadNodes(r io.Reader) error {
	return readCSV(r, []string{colNodeID, colNodeName, colExtinct, colConfidence}, func(line int, get func(string) string) error {
		id, err := parseID(get(colNodeID))
		if err != nil {
			return fmt.Errorf("csvload: line %d: %w", line, err)
		}
		if _, dup := l.nodes[id]; dup {
			return fmt.Errorf("csvload: line %d: duplicate node %d", line, id)
		}
		extinct, err := parseFlag(get(colExtinct))
		if err != nil {
			return fmt.Errorf("csvload: line %d: extinct: %w", line, err)
		}
		confidence, err := strconv.Atoi(strings.TrimSpace(get(colConfidence)))
		if err != nil || confidence < 0 {
			return fmt.Errorf("csvload: line %d: invalid confidence %q", line, get(colConfidence))
		}
		l.nodes[id] = types.NewTreeNode(types.NodeData{
			ID:         id,
			Name:       get(colNodeName),
			Extinct:    extinct,
			Confidence: confidence,
		})
		l.order = append(l.order, id)
		return nil
	})
}

// LoadLinks reads parent→child rows (source_node_id, target_node_id). Both
// nodes must already be loaded.
func (l *Loader) LoadLinks(r io.Reader) error {
	return readCSV(r, []string{colSource, colTarget}, func(line int, get func(string) string) error {
		parentID, err := parseID(get(colSource))
		if err != nil {
			return fmt.Errorf("csvload: line %d: %w", line, err)
		}
		childID, err := parseID(get(colTarget))
		if err != nil {
			return fmt.Errorf("csvload: line %d: %w", line, err)
		}
		parent, ok := l.nodes[parentID]
		if !ok {
			return fmt.Errorf("%w: %d (line %d)", ErrUnknownNode, parentID, line)
		}
		child, ok := l.nodes[childID]
		if !ok {
			return fmt.Errorf("%w: %d (line %d)", ErrUnknownNode, childID, line)
		}
		if child.Parent() != nil {
			return fmt.Errorf("%w: %d (line %d)", ErrMultipleParents, childID, line)
		}
		if err := parent.AddChild(child); err != nil {
			if errors.Is(err, types.ErrCyclicLink) {
				return fmt.Errorf("%w: %d -> %d (line %d)", ErrCycle, parentID, childID, line)
			}
			return fmt.Errorf("csvload: line %d: %w", line, err)
		}
		return nil
	})
}

// Root returns the single node without a parent.
func (l *Loader) Root() (*types.TreeNode, error) {
	var root *types.TreeNode
	for _, id := range l.order {
		n := l.nodes[id]
		if n.Parent() != nil {
			continue
		}
		if root != nil {
			return nil, fmt.Errorf("%w: found %d and %d", ErrNoSingleRoot, root.ID, n.ID)
		}
		root = n
	}
	if root == nil {
		return nil, ErrNoSingleRoot
	}
	return root, nil
}

// Len reports the number of loaded nodes.
func (l *Loader) Len() int { return len(l.order) }

func readCSV(r io.Reader, required []string, fn func(line int, get func(string) string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("csvload: header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("csvload: line %d: %w", line, err)
		}
		get := func(col string) string {
			i := index[col]
			if i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		if err := fn(line, get); err != nil {
			return err
		}
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid node id %q", s)
	}
	return id, nil
}

func parseFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
