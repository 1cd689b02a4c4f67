package persistence

import (
	"errors"
	"regexp"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/matpath"
)

const (
	DefaultNodeTable = "tree_of_life_node"
	DefaultPathTable = "tree_of_life"

	// MaxBatchSize is the largest batch whose node INSERT stays within
	// matpath.MaxParams.
	MaxBatchSize = matpath.MaxParams / 4
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}(\.[a-z_][a-z0-9_]{0,62})?$`)

// Config holds table names and the bulk-insert batch bound.
type Config struct {
	// NodeTable holds one attribute row per node.
	// Default: "tree_of_life_node"
	NodeTable string

	// PathTable maps node id to materialized path.
	// Default: "tree_of_life"
	PathTable string

	// BatchSize is the maximum number of rows per INSERT statement. Each
	// statement carries BatchSize*columns parameters; values above
	// MaxBatchSize are lowered to it.
	// Default: 1000
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		NodeTable: DefaultNodeTable,
		PathTable: DefaultPathTable,
		BatchSize: matpath.DefaultBatchSize,
	}
}

// normalize fills defaults and rejects table names that are not plain
// identifiers, since they are interpolated into SQL.
func (c *Config) normalize() error {
	if c.NodeTable == "" {
		c.NodeTable = DefaultNodeTable
	}
	if c.PathTable == "" {
		c.PathTable = DefaultPathTable
	}
	if c.BatchSize < 1 {
		c.BatchSize = matpath.DefaultBatchSize
	}
	if c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	if !identifierPattern.MatchString(c.NodeTable) || !identifierPattern.MatchString(c.PathTable) {
		return errors.New("persistence: invalid table name")
	}
	if c.NodeTable == c.PathTable {
		return errors.New("persistence: node and path tables must differ")
	}
	return nil
}
