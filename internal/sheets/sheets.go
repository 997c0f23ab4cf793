// Package sheets is a small tabular-document abstraction: a document holds
// named sheets, each with a header row and data rows keyed by header.
package sheets

import (
	"context"
	"errors"
)

var (
	ErrSheetNotFound      = errors.New("sheet not found")
	ErrMissingCredentials = errors.New("missing spreadsheet credentials")
)

// Document is a spreadsheet holding named sheets
type Document interface {
	// Sheet returns the sheet with the given title or ErrSheetNotFound
	Sheet(ctx context.Context, title string) (Sheet, error)
	// AddSheet creates a sheet and writes its header row
	AddSheet(ctx context.Context, title string, header []string) (Sheet, error)
	Ping(ctx context.Context) error
}

// Sheet is one tab of a document. Every read goes to the backend.
type Sheet interface {
	Title() string
	Header(ctx context.Context) ([]string, error)
	SetHeader(ctx context.Context, header []string) error
	Rows(ctx context.Context) ([]*Row, error)
	SaveRows(ctx context.Context, rows []*Row) error
	AppendRow(ctx context.Context, values map[string]string) error
}

// Row is one data row addressed by its 1-based position in the sheet.
// The header occupies row 1, so data rows start at 2.
type Row struct {
	Number int
	header []string
	values []string
}

// NewRow builds a row aligned to header; missing trailing cells become empty
func NewRow(number int, header, values []string) *Row {
	v := make([]string, len(header))
	copy(v, values)
	return &Row{Number: number, header: header, values: v}
}

// Header returns the header the row is aligned to
func (r *Row) Header() []string {
	return r.header
}

func (r *Row) index(key string) int {
	for i, h := range r.header {
		if h == key {
			return i
		}
	}
	return -1
}

// Get returns the cell under key, or "" when the key is not a header
func (r *Row) Get(key string) string {
	if i := r.index(key); i >= 0 {
		return r.values[i]
	}
	return ""
}

// Set writes a cell. Keys that are not in the header are skipped and reported false.
func (r *Row) Set(key, value string) bool {
	i := r.index(key)
	if i < 0 {
		return false
	}
	r.values[i] = value
	return true
}

// Values returns a copy of the cells in header order
func (r *Row) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

// ValuesFor lays out values by header; absent keys become empty cells
func ValuesFor(header []string, values map[string]string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = values[h]
	}
	return out
}
