// Package matpath encodes trees into materialized paths and rebuilds them.
//
// A path is the "/"-joined chain of node ids from the true root down to and
// including the node itself: the root 1 is "1", its child 7 is "1/7", and a
// grandchild 42 is "1/7/42". Paths are derived from tree shape on every
// write and never edited by hand.
package matpath

import (
	"strconv"
	"strings"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
)

const Separator = "/"

// Join appends id to parent. An empty parent yields a root path.
func Join(parent string, id int64) string {
	if parent == "" {
		return strconv.FormatInt(id, 10)
	}
	return parent + Separator + strconv.FormatInt(id, 10)
}

// Parse splits path into node ids. Every segment must be a positive integer.
func Parse(path string) ([]int64, error) {
	if path == "" {
		return nil, ports.NewMalformedPath(path, "empty path")
	}
	segments := strings.Split(path, Separator)
	ids := make([]int64, len(segments))
	for i, s := range segments {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, ports.NewMalformedPath(path, "segment "+strconv.Quote(s)+" is not a node id")
		}
		ids[i] = id
	}
	return ids, nil
}

// NodeID returns the last segment of path.
func NodeID(path string) (int64, error) {
	ids, err := Parse(path)
	if err != nil {
		return 0, err
	}
	return ids[len(ids)-1], nil
}

// ParentID returns the second-to-last segment of path. ok is false for a
// root path.
func ParentID(path string) (id int64, ok bool, err error) {
	ids, err := Parse(path)
	if err != nil {
		return 0, false, err
	}
	if len(ids) < 2 {
		return 0, false, nil
	}
	return ids[len(ids)-2], true, nil
}

// Depth is the number of separators in path; the root has depth 0.
func Depth(path string) int {
	return strings.Count(path, Separator)
}

// DescendantPattern is the LIKE pattern matching every strict descendant of
// path. Paths only contain digits and separators, so no escaping is needed.
func DescendantPattern(path string) string {
	return path + Separator + "%"
}

// Contains reports whether candidate is ancestor itself or lies below it.
// The match is on segment boundaries: "1/7" does not contain "1/70".
func Contains(ancestor string, candidate string) bool {
	if candidate == ancestor {
		return true
	}
	return strings.HasPrefix(candidate, ancestor+Separator)
}

// Rebase replaces the oldPrefix of path with newPrefix. ok is false when
// path is not within oldPrefix.
func Rebase(path string, oldPrefix string, newPrefix string) (string, bool) {
	if !Contains(oldPrefix, path) {
		return "", false
	}
	return newPrefix + path[len(oldPrefix):], true
}
