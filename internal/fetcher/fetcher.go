// Package fetcher reads raw tabular datasets from CSV, XLSX, shapefile and ZIP sources.
package fetcher

// Table is a fully-read tabular file: a header row plus data rows.
// Rows may be shorter or longer than the header.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
