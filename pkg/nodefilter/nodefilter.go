// Package nodefilter compiles CEL predicates over tree nodes, e.g.
//
//	extinct && confidence >= 1
//	name.startsWith("Homo")
package nodefilter

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
)

var newEnv = func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("id", cel.IntType),
		cel.Variable("name", cel.StringType),
		cel.Variable("extinct", cel.BoolType),
		cel.Variable("confidence", cel.IntType),
	)
}

var programCache sync.Map

// Filter is a compiled predicate. The zero value matches every node.
type Filter struct {
	expr    string
	program cel.Program
}

// Compile parses expr into a boolean predicate. An empty expression yields
// a filter that matches everything.
func Compile(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	if cached, ok := programCache.Load(expr); ok {
		return Filter{expr: expr, program: cached.(cel.Program)}, nil
	}
	env, err := newEnv()
	if err != nil {
		return Filter{}, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return Filter{}, fmt.Errorf("%w: %v", ports.ErrInvalidFilter, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return Filter{}, fmt.Errorf("%w: expression must be boolean, got %s", ports.ErrInvalidFilter, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %v", ports.ErrInvalidFilter, err)
	}
	programCache.Store(expr, program)
	return Filter{expr: expr, program: program}, nil
}

func (f Filter) String() string { return f.expr }

// Match evaluates the predicate against n.
func (f Filter) Match(n types.NodeData) (bool, error) {
	if f.program == nil {
		return true, nil
	}
	out, _, err := f.program.Eval(map[string]any{
		"id":         n.ID,
		"name":       n.Name,
		"extinct":    n.Extinct,
		"confidence": int64(n.Confidence),
	})
	if err != nil {
		return false, err
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, errors.New("nodefilter: non-boolean result")
	}
	return v, nil
}

// Select returns the nodes of the tree rooted at root that match, in
// depth-first pre-order.
func (f Filter) Select(root *types.TreeNode) ([]types.NodeData, error) {
	if root == nil {
		return nil, nil
	}
	var out []types.NodeData
	var evalErr error
	root.Walk(func(n *types.TreeNode) bool {
		if evalErr != nil {
			return false
		}
		ok, err := f.Match(n.Data())
		if err != nil {
			evalErr = err
			return false
		}
		if ok {
			out = append(out, n.Data())
		}
		return true
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return out, nil
}
