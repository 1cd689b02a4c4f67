package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/matpath"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/types"
	"github.com/jacksonlee411/tree-of-life/pkg/opid"
	"go.uber.org/zap"
)

// TreeStore keeps a tree in two tables: node attributes and materialized
// paths. Every method is one transaction.
type TreeStore struct {
	db     ports.Beginner
	cfg    Config
	q      queries
	logger *zap.Logger
}

var _ ports.TreeStore = (*TreeStore)(nil)

func NewTreeStore(db ports.Beginner, cfg Config, logger *zap.Logger) (*TreeStore, error) {
	if db == nil {
		return nil, errors.New("persistence: backend is nil")
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeStore{db: db, cfg: cfg, q: newQueries(cfg), logger: logger}, nil
}

// EnsureSchema creates both tables and the path index when missing.
func (s *TreeStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	for _, stmt := range s.q.schema() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("persistence: ensure schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// SaveTree writes root and all descendants. Node rows go first so every
// path row references an existing node, and the whole write commits once.
func (s *TreeStore) SaveTree(ctx context.Context, root *types.TreeNode) error {
	enc, err := matpath.Encode(root)
	if err != nil {
		return err
	}
	log := s.logger.With(zap.String("op", "save_tree"), zap.String("op_id", opid.New()))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	nodeBatches := matpath.Chunk(enc.Nodes, s.cfg.BatchSize)
	for i, batch := range nodeBatches {
		if err := s.insertNodes(ctx, tx, batch); err != nil {
			log.Error("node batch failed", zap.Int("batch", i), zap.Error(err))
			return fmt.Errorf("persistence: node batch %d: %w", i, err)
		}
		log.Debug("node batch written", zap.Int("batch", i), zap.Int("rows", len(batch)))
	}

	pathBatches := matpath.Chunk(enc.Paths, s.cfg.BatchSize)
	for i, batch := range pathBatches {
		if err := s.insertPaths(ctx, tx, batch); err != nil {
			log.Error("path batch failed", zap.Int("batch", i), zap.Error(err))
			return fmt.Errorf("persistence: path batch %d: %w", i, err)
		}
		log.Debug("path batch written", zap.Int("batch", i), zap.Int("rows", len(batch)))
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Info("tree saved",
		zap.Int64("root_id", root.ID),
		zap.Int("nodes", len(enc.Nodes)),
		zap.Int("node_batches", len(nodeBatches)),
		zap.Int("path_batches", len(pathBatches)))
	return nil
}

func (s *TreeStore) GetNode(ctx context.Context, id int64) (*types.NodeData, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	n, err := s.lookupNode(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return n, nil
}

// GetTree returns nil when the store is empty.
func (s *TreeStore) GetTree(ctx context.Context) (*types.TreeNode, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := s.queryTreeRows(ctx, tx, s.q.selectTree)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return matpath.DecodeTree(rows)
}

// GetSubTree returns nil when id is not stored. Children are ordered by id.
func (s *TreeStore) GetSubTree(ctx context.Context, id int64) (*types.TreeNode, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	path, ok, err := s.lookupPath(ctx, tx, id)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := s.queryTreeRows(ctx, tx, s.q.selectSubTree, path, matpath.DescendantPattern(path))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return matpath.DecodeSubTree(rows, id)
}

// GetNodePath returns the chain of nodes from the root down to id.
func (s *TreeStore) GetNodePath(ctx context.Context, id int64) ([]types.NodeData, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	path, ok, err := s.lookupPath(ctx, tx, id)
	if err != nil || !ok {
		return nil, err
	}
	ids, err := matpath.Parse(path)
	if err != nil {
		return nil, err
	}

	args := make([]any, len(ids))
	for i, v := range ids {
		args[i] = v
	}
	found, err := s.queryNodes(ctx, tx, s.q.selectNodesByID(len(ids)), args...)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	byID := make(map[int64]types.NodeData, len(found))
	for _, n := range found {
		byID[n.ID] = n
	}
	out := make([]types.NodeData, 0, len(ids))
	for _, v := range ids {
		n, ok := byID[v]
		if !ok {
			return nil, ports.NewMalformedPath(path, fmt.Sprintf("ancestor %d has no node row", v))
		}
		out = append(out, n)
	}
	return out, nil
}

// GetParentNode returns nil for the root and for unknown ids.
func (s *TreeStore) GetParentNode(ctx context.Context, id int64) (*types.NodeData, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	path, ok, err := s.lookupPath(ctx, tx, id)
	if err != nil || !ok {
		return nil, err
	}
	parentID, hasParent, err := matpath.ParentID(path)
	if err != nil || !hasParent {
		return nil, err
	}
	parent, err := s.lookupNode(ctx, tx, parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ports.NewMalformedPath(path, fmt.Sprintf("parent %d has no node row", parentID))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return parent, nil
}

// GetChildren selects rows exactly one segment below id by comparing
// separator counts, which holds at any depth.
func (s *TreeStore) GetChildren(ctx context.Context, id int64) ([]types.NodeData, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	path, ok, err := s.lookupPath(ctx, tx, id)
	if err != nil || !ok {
		return nil, err
	}
	out, err := s.queryNodes(ctx, tx, s.q.selectChildren, matpath.DescendantPattern(path), matpath.Depth(path)+1)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// AddNode inserts a single leaf under parentID. Only the new node's path is
// computed; no other row is touched.
func (s *TreeStore) AddNode(ctx context.Context, node types.NodeData, parentID int64) error {
	if node.ID <= 0 {
		return fmt.Errorf("%w: %d", ports.ErrInvalidNodeID, node.ID)
	}
	log := s.logger.With(zap.String("op", "add_node"), zap.String("op_id", opid.New()))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	existing, err := s.lookupNode(ctx, tx, node.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %d", ports.ErrNodeAlreadyExists, node.ID)
	}
	parentPath, ok, err := s.lookupPath(ctx, tx, parentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ports.ErrParentNotFound, parentID)
	}

	if err := s.insertNodes(ctx, tx, []types.NodeData{node}); err != nil {
		return err
	}
	path := matpath.Join(parentPath, node.ID)
	if err := s.insertPaths(ctx, tx, []types.TreeData{{NodeID: node.ID, Path: path}}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Info("node added", zap.Int64("node_id", node.ID), zap.String("path", path))
	return nil
}

// MoveSubTree reattaches id under newParentID, rewriting the path prefix of
// id and every descendant in one statement.
func (s *TreeStore) MoveSubTree(ctx context.Context, id int64, newParentID int64) error {
	if id == newParentID {
		return fmt.Errorf("%w: %d under itself", ports.ErrCyclicMove, id)
	}
	log := s.logger.With(zap.String("op", "move_subtree"), zap.String("op_id", opid.New()))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	oldPath, ok, err := s.lookupPath(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ports.ErrNodeNotFound, id)
	}
	parentPath, ok, err := s.lookupPath(ctx, tx, newParentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ports.ErrParentNotFound, newParentID)
	}
	if matpath.Contains(oldPath, parentPath) {
		return fmt.Errorf("%w: %d is inside subtree %d", ports.ErrCyclicMove, newParentID, id)
	}

	newPath := matpath.Join(parentPath, id)
	if newPath == oldPath {
		return tx.Commit(ctx)
	}
	affected, err := tx.Exec(ctx, s.q.movePaths, newPath, len(oldPath)+1, oldPath, matpath.DescendantPattern(oldPath))
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Info("subtree moved",
		zap.Int64("node_id", id),
		zap.String("old_path", oldPath),
		zap.String("new_path", newPath),
		zap.Int64("rows", affected))
	return nil
}

// DeleteSubTree removes id and all descendants from both tables. Unknown
// ids are a no-op.
func (s *TreeStore) DeleteSubTree(ctx context.Context, id int64) error {
	log := s.logger.With(zap.String("op", "delete_subtree"), zap.String("op_id", opid.New()))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	path, ok, err := s.lookupPath(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return tx.Commit(ctx)
	}
	pattern := matpath.DescendantPattern(path)

	ids, err := s.queryIDs(ctx, tx, path, pattern)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, s.q.deletePaths, path, pattern); err != nil {
		return err
	}
	for _, batch := range matpath.Chunk(ids, s.cfg.BatchSize) {
		args := make([]any, len(batch))
		for i, v := range batch {
			args[i] = v
		}
		if _, err := tx.Exec(ctx, s.q.deleteNodesByID(len(batch)), args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Info("subtree deleted", zap.Int64("node_id", id), zap.Int("nodes", len(ids)))
	return nil
}

func (s *TreeStore) insertNodes(ctx context.Context, tx ports.Tx, batch []types.NodeData) error {
	query, err := matpath.BulkInsertSQL(s.q.nodeTable, nodeColumns, len(batch))
	if err != nil {
		return err
	}
	args := make([]any, 0, len(batch)*len(nodeColumns))
	for _, n := range batch {
		args = append(args, n.ID, n.Name, n.Extinct, n.Confidence)
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

func (s *TreeStore) insertPaths(ctx context.Context, tx ports.Tx, batch []types.TreeData) error {
	query, err := matpath.BulkInsertSQL(s.q.pathTable, pathColumns, len(batch))
	if err != nil {
		return err
	}
	args := make([]any, 0, len(batch)*len(pathColumns))
	for _, p := range batch {
		args = append(args, p.NodeID, p.Path)
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

func (s *TreeStore) lookupNode(ctx context.Context, tx ports.Tx, id int64) (*types.NodeData, error) {
	var n types.NodeData
	if err := tx.QueryRow(ctx, s.q.selectNode, id).Scan(&n.ID, &n.Name, &n.Extinct, &n.Confidence); err != nil {
		if errors.Is(err, ports.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (s *TreeStore) lookupPath(ctx context.Context, tx ports.Tx, id int64) (string, bool, error) {
	var path string
	if err := tx.QueryRow(ctx, s.q.selectPath, id).Scan(&path); err != nil {
		if errors.Is(err, ports.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return path, true, nil
}

func (s *TreeStore) queryTreeRows(ctx context.Context, tx ports.Tx, query string, args ...any) ([]types.TreeRow, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TreeRow
	for rows.Next() {
		var r types.TreeRow
		if err := rows.Scan(&r.Path, &r.Node.ID, &r.Node.Name, &r.Node.Extinct, &r.Node.Confidence); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TreeStore) queryNodes(ctx context.Context, tx ports.Tx, query string, args ...any) ([]types.NodeData, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.NodeData
	for rows.Next() {
		var n types.NodeData
		if err := rows.Scan(&n.ID, &n.Name, &n.Extinct, &n.Confidence); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TreeStore) queryIDs(ctx context.Context, tx ports.Tx, path string, pattern string) ([]int64, error) {
	rows, err := tx.Query(ctx, s.q.selectIDs, path, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
