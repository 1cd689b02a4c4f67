package matpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
)

const DefaultBatchSize = 1000

// MaxParams is the most bound parameters one statement may carry on every
// supported backend. SQLite allows 32766, Postgres 65535.
const MaxParams = 32766

// Chunk splits items into consecutive batches of at most size elements.
// An empty input yields no batches.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// BulkInsertSQL builds one multi-row INSERT with exactly rows*len(columns)
// positional parameters, at most MaxParams.
func BulkInsertSQL(table string, columns []string, rows int) (string, error) {
	if rows <= 0 || len(columns) == 0 {
		return "", fmt.Errorf("%w: rows=%d columns=%d", ports.ErrInvalidBatchArguments, rows, len(columns))
	}
	if rows > MaxParams/len(columns) {
		return "", fmt.Errorf("%w: %d rows of %d columns exceed %d parameters", ports.ErrInvalidBatchArguments, rows, len(columns), MaxParams)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String(), nil
}

// Placeholders renders "$from, $from+1, ..." for count parameters.
func Placeholders(from int, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(parts, ", ")
}
