package persistence

import (
	"fmt"
	"strings"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/matpath"
)

var (
	nodeColumns = []string{"id", "name", "extinct", "confidence"}
	pathColumns = []string{"node_id", "path"}
)

// separatorCount is portable across Postgres and SQLite.
const separatorCount = `length(p.path) - length(replace(p.path, '/', ''))`

type queries struct {
	nodeTable string
	pathTable string

	selectNode     string
	selectPath     string
	selectTree     string
	selectSubTree  string
	selectChildren string
	selectIDs      string
	deletePaths    string
	movePaths      string
}

func newQueries(cfg Config) queries {
	n, p := cfg.NodeTable, cfg.PathTable
	return queries{
		nodeTable: n,
		pathTable: p,
		selectNode: fmt.Sprintf(`
SELECT id, name, extinct, confidence
FROM %s
WHERE id = $1
`, n),
		selectPath: fmt.Sprintf(`
SELECT path
FROM %s
WHERE node_id = $1
`, p),
		selectTree: fmt.Sprintf(`
SELECT p.path, n.id, n.name, n.extinct, n.confidence
FROM %s p
JOIN %s n ON n.id = p.node_id
ORDER BY n.id
`, p, n),
		selectSubTree: fmt.Sprintf(`
SELECT p.path, n.id, n.name, n.extinct, n.confidence
FROM %s p
JOIN %s n ON n.id = p.node_id
WHERE p.path = $1 OR p.path LIKE $2
ORDER BY n.id
`, p, n),
		selectChildren: fmt.Sprintf(`
SELECT n.id, n.name, n.extinct, n.confidence
FROM %s p
JOIN %s n ON n.id = p.node_id
WHERE p.path LIKE $1
  AND %s = $2
ORDER BY n.id
`, p, n, separatorCount),
		selectIDs: fmt.Sprintf(`
SELECT node_id
FROM %s
WHERE path = $1 OR path LIKE $2
ORDER BY node_id
`, p),
		deletePaths: fmt.Sprintf(`
DELETE FROM %s
WHERE path = $1 OR path LIKE $2
`, p),
		movePaths: fmt.Sprintf(`
UPDATE %s
SET path = CAST($1 AS TEXT) || substr(path, $2)
WHERE path = $3 OR path LIKE $4
`, p),
	}
}

func (q queries) selectNodesByID(count int) string {
	return fmt.Sprintf(`
SELECT id, name, extinct, confidence
FROM %s
WHERE id IN (%s)
`, q.nodeTable, matpath.Placeholders(1, count))
}

func (q queries) deleteNodesByID(count int) string {
	return fmt.Sprintf(`
DELETE FROM %s
WHERE id IN (%s)
`, q.nodeTable, matpath.Placeholders(1, count))
}

func (q queries) schema() []string {
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id BIGINT PRIMARY KEY,
  name TEXT NOT NULL,
  extinct BOOLEAN NOT NULL DEFAULT FALSE,
  confidence INTEGER NOT NULL DEFAULT 0 CHECK (confidence >= 0)
)`, q.nodeTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  node_id BIGINT PRIMARY KEY REFERENCES %s (id),
  path TEXT NOT NULL
)`, q.pathTable, q.nodeTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_path_idx ON %s (path)`, indexPrefix(q.pathTable), q.pathTable),
	}
}

func indexPrefix(table string) string {
	if _, name, ok := strings.Cut(table, "."); ok {
		return name
	}
	return table
}
