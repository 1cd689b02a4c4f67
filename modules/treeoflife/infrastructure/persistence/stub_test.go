package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/matpath"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
)

type execCall struct {
	sql  string
	args []any
}

type stubRow struct {
	vals []any
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.vals {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		case *bool:
			*d = v.(bool)
		case *int:
			*d = v.(int)
		}
	}
	return nil
}

type stubRows struct {
	rows []stubRow
	idx  int
	err  error
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error { return r.rows[r.idx-1].Scan(dest...) }
func (r *stubRows) Err() error             { return r.err }
func (r *stubRows) Close()                 {}

type stubTx struct {
	execs      []execCall
	execErr    error
	execErrAt  int
	queryRow   func(sql string, args []any) ports.Row
	query      func(sql string, args []any) (ports.Rows, error)
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *stubTx) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	t.execs = append(t.execs, execCall{sql: sql, args: args})
	if t.execErr != nil && len(t.execs) == t.execErrAt {
		return 0, t.execErr
	}
	return int64(len(args)), nil
}

func (t *stubTx) Query(_ context.Context, sql string, args ...any) (ports.Rows, error) {
	if t.query == nil {
		return &stubRows{}, nil
	}
	return t.query(sql, args)
}

func (t *stubTx) QueryRow(_ context.Context, sql string, args ...any) ports.Row {
	if t.queryRow == nil {
		return stubRow{err: ports.ErrNoRows}
	}
	return t.queryRow(sql, args)
}

func (t *stubTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type stubBeginner struct {
	tx       *stubTx
	beginErr error
}

func (b *stubBeginner) Begin(context.Context) (ports.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return b.tx, nil
}

func newStubStore(t *testing.T, tx *stubTx, batchSize int) *TreeStore {
	t.Helper()
	s, err := NewTreeStore(&stubBeginner{tx: tx}, Config{BatchSize: batchSize}, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	return s
}

func chain(n int) *types.TreeNode {
	root := types.NewTreeNode(types.NodeData{ID: 1, Name: "root"})
	for i := 2; i <= n; i++ {
		root.AddChild(types.NewTreeNode(types.NodeData{ID: int64(i), Name: "n"}))
	}
	return root
}

func TestNewTreeStore_Validation(t *testing.T) {
	if _, err := NewTreeStore(nil, Config{}, nil); err == nil {
		t.Fatal("expected nil backend error")
	}
	if _, err := NewTreeStore(&stubBeginner{}, Config{NodeTable: "bad-name"}, nil); err == nil {
		t.Fatal("expected invalid table error")
	}
	if _, err := NewTreeStore(&stubBeginner{}, Config{NodeTable: "same", PathTable: "same"}, nil); err == nil {
		t.Fatal("expected same table error")
	}
	s, err := NewTreeStore(&stubBeginner{}, Config{NodeTable: "taxa.node", PathTable: "taxa.path"}, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if s.cfg.BatchSize != DefaultConfig().BatchSize {
		t.Fatalf("batch=%d", s.cfg.BatchSize)
	}
}

func TestSaveTree_BatchStatements(t *testing.T) {
	cases := []struct {
		nodes, batch, wantPerTable int
	}{
		{nodes: 2, batch: 3, wantPerTable: 1},
		{nodes: 3, batch: 3, wantPerTable: 1},
		{nodes: 4, batch: 3, wantPerTable: 2},
		{nodes: 1, batch: 3, wantPerTable: 1},
	}
	for _, tc := range cases {
		tx := &stubTx{}
		s := newStubStore(t, tx, tc.batch)
		if err := s.SaveTree(context.Background(), chain(tc.nodes)); err != nil {
			t.Fatalf("err=%v", err)
		}
		if !tx.committed {
			t.Fatal("expected commit")
		}
		if len(tx.execs) != 2*tc.wantPerTable {
			t.Fatalf("nodes=%d execs=%d", tc.nodes, len(tx.execs))
		}

		total := 0
		for i, e := range tx.execs {
			params := strings.Count(e.sql, "$")
			if params != len(e.args) || params == 0 {
				t.Fatalf("exec %d: params=%d args=%d", i, params, len(e.args))
			}
			isNode := strings.Contains(e.sql, "INSERT INTO "+DefaultNodeTable+" ")
			if i < tc.wantPerTable && !isNode {
				t.Fatalf("exec %d should write nodes first: %s", i, e.sql)
			}
			if isNode {
				total += len(e.args) / len(nodeColumns)
			}
		}
		if total != tc.nodes {
			t.Fatalf("node rows=%d want %d", total, tc.nodes)
		}
	}
}

func TestSaveTree_RejectsBeforeIO(t *testing.T) {
	b := &stubBeginner{beginErr: errors.New("should not begin")}
	s, err := NewTreeStore(b, Config{}, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	root := chain(2)
	root.AddChild(types.NewTreeNode(types.NodeData{ID: 2}))
	if err := s.SaveTree(context.Background(), root); !errors.Is(err, ports.ErrDuplicateNodeID) {
		t.Fatalf("err=%v", err)
	}
}

func TestSaveTree_BeginError(t *testing.T) {
	want := errors.New("connection refused")
	s, _ := NewTreeStore(&stubBeginner{beginErr: want}, Config{}, nil)
	if err := s.SaveTree(context.Background(), chain(2)); !errors.Is(err, want) {
		t.Fatalf("err=%v", err)
	}
}

func TestSaveTree_ExecErrorRollsBack(t *testing.T) {
	want := errors.New("unique violation")
	tx := &stubTx{execErr: want, execErrAt: 2}
	s := newStubStore(t, tx, 1)
	err := s.SaveTree(context.Background(), chain(3))
	if !errors.Is(err, want) {
		t.Fatalf("err=%v", err)
	}
	if !strings.Contains(err.Error(), "node batch 1") {
		t.Fatalf("err=%v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestSaveTree_CommitError(t *testing.T) {
	want := errors.New("serialization failure")
	tx := &stubTx{commitErr: want}
	s := newStubStore(t, tx, 0)
	if err := s.SaveTree(context.Background(), chain(2)); !errors.Is(err, want) {
		t.Fatalf("err=%v", err)
	}
	if !tx.rolledBack {
		t.Fatal("expected rollback")
	}
}

func TestGetNode_NotFoundIsNil(t *testing.T) {
	tx := &stubTx{}
	s := newStubStore(t, tx, 0)
	n, err := s.GetNode(context.Background(), 9)
	if err != nil || n != nil {
		t.Fatalf("n=%v err=%v", n, err)
	}
}

func TestGetNode_BackendError(t *testing.T) {
	want := errors.New("boom")
	tx := &stubTx{queryRow: func(string, []any) ports.Row { return stubRow{err: want} }}
	s := newStubStore(t, tx, 0)
	if _, err := s.GetNode(context.Background(), 9); !errors.Is(err, want) {
		t.Fatalf("err=%v", err)
	}
}

func TestGetChildren_QueryArgs(t *testing.T) {
	var gotArgs []any
	tx := &stubTx{
		queryRow: func(string, []any) ports.Row { return stubRow{vals: []any{"1/7"}} },
		query: func(_ string, args []any) (ports.Rows, error) {
			gotArgs = args
			return &stubRows{rows: []stubRow{{vals: []any{int64(42), "x", false, 0}}}}, nil
		},
	}
	s := newStubStore(t, tx, 0)
	out, err := s.GetChildren(context.Background(), 7)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(out) != 1 || out[0].ID != 42 {
		t.Fatalf("out=%v", out)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "1/7/%" || gotArgs[1] != 2 {
		t.Fatalf("args=%v", gotArgs)
	}
}

func TestGetTree_RowsError(t *testing.T) {
	want := errors.New("stream broken")
	tx := &stubTx{query: func(string, []any) (ports.Rows, error) {
		return &stubRows{err: want}, nil
	}}
	s := newStubStore(t, tx, 0)
	if _, err := s.GetTree(context.Background()); !errors.Is(err, want) {
		t.Fatalf("err=%v", err)
	}
}

func TestMoveSubTree_SameNodeRejectedWithoutIO(t *testing.T) {
	s, _ := NewTreeStore(&stubBeginner{beginErr: errors.New("should not begin")}, Config{}, nil)
	if err := s.MoveSubTree(context.Background(), 4, 4); !errors.Is(err, ports.ErrCyclicMove) {
		t.Fatalf("err=%v", err)
	}
}

func TestMoveSubTree_UpdateArgs(t *testing.T) {
	paths := map[int64]string{7: "1/7", 3: "1/3"}
	tx := &stubTx{queryRow: func(_ string, args []any) ports.Row {
		if p, ok := paths[args[0].(int64)]; ok {
			return stubRow{vals: []any{p}}
		}
		return stubRow{err: ports.ErrNoRows}
	}}
	s := newStubStore(t, tx, 0)
	if err := s.MoveSubTree(context.Background(), 7, 3); err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(tx.execs) != 1 {
		t.Fatalf("execs=%d", len(tx.execs))
	}
	args := tx.execs[0].args
	if args[0] != "1/3/7" || args[1] != 4 || args[2] != "1/7" || args[3] != "1/7/%" {
		t.Fatalf("args=%v", args)
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
}

func TestDeleteSubTree_MissingIsNoop(t *testing.T) {
	tx := &stubTx{}
	s := newStubStore(t, tx, 0)
	if err := s.DeleteSubTree(context.Background(), 5); err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(tx.execs) != 0 || !tx.committed {
		t.Fatalf("execs=%d committed=%v", len(tx.execs), tx.committed)
	}
}

func TestQueries_SchemaQualifiedIndex(t *testing.T) {
	q := newQueries(Config{NodeTable: "taxa.node", PathTable: "taxa.path"})
	stmts := q.schema()
	if len(stmts) != 3 {
		t.Fatalf("stmts=%d", len(stmts))
	}
	if !strings.Contains(stmts[2], "path_path_idx ON taxa.path") {
		t.Fatalf("index=%q", stmts[2])
	}
}

func TestNewTreeStore_CapsBatchSize(t *testing.T) {
	if MaxBatchSize*len(nodeColumns) > matpath.MaxParams {
		t.Fatalf("MaxBatchSize=%d overflows %d params", MaxBatchSize, matpath.MaxParams)
	}
	s, err := NewTreeStore(&stubBeginner{}, Config{BatchSize: 10000}, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if s.cfg.BatchSize != MaxBatchSize {
		t.Fatalf("batch=%d", s.cfg.BatchSize)
	}
}

func TestSaveTree_LargeBatchStaysUnderParamLimit(t *testing.T) {
	tx := &stubTx{}
	s := newStubStore(t, tx, 10000)
	if err := s.SaveTree(context.Background(), chain(MaxBatchSize+5)); err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(tx.execs) != 4 {
		t.Fatalf("execs=%d", len(tx.execs))
	}
	for i, e := range tx.execs {
		if len(e.args) > matpath.MaxParams {
			t.Fatalf("exec %d carries %d params", i, len(e.args))
		}
	}
}
