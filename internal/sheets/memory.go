package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryDocument is an in-process Document. Safe for concurrent use.
type MemoryDocument struct {
	mu     sync.Mutex
	sheets map[string]*memorySheet
	fail   error
}

type memorySheet struct {
	doc    *MemoryDocument
	title  string
	header []string
	rows   [][]string
}

// NewMemoryDocument creates an empty in-memory document
func NewMemoryDocument() *MemoryDocument {
	return &MemoryDocument{
		sheets: make(map[string]*memorySheet),
	}
}

// SetFailure makes every subsequent call return err; nil restores normal operation
func (d *MemoryDocument) SetFailure(err error) {
	d.mu.Lock()
	d.fail = err
	d.mu.Unlock()
}

// Snapshot returns copies of a sheet's header and rows
func (d *MemoryDocument) Snapshot(title string) ([]string, [][]string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sheets[title]
	if !ok {
		return nil, nil, false
	}
	rows := make([][]string, len(s.rows))
	for i, r := range s.rows {
		rows[i] = append([]string(nil), r...)
	}
	return append([]string(nil), s.header...), rows, true
}

func (d *MemoryDocument) Ping(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fail
}

func (d *MemoryDocument) Sheet(ctx context.Context, title string) (Sheet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fail != nil {
		return nil, d.fail
	}
	s, ok := d.sheets[title]
	if !ok {
		return nil, fmt.Errorf("%s: %w", title, ErrSheetNotFound)
	}
	return s, nil
}

func (d *MemoryDocument) AddSheet(ctx context.Context, title string, header []string) (Sheet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fail != nil {
		return nil, d.fail
	}
	if _, ok := d.sheets[title]; ok {
		return nil, fmt.Errorf("sheet %s already exists", title)
	}
	s := &memorySheet{doc: d, title: title, header: append([]string(nil), header...)}
	d.sheets[title] = s
	return s, nil
}

func (s *memorySheet) Title() string {
	return s.title
}

func (s *memorySheet) Header(ctx context.Context) ([]string, error) {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	if s.doc.fail != nil {
		return nil, s.doc.fail
	}
	return append([]string(nil), s.header...), nil
}

func (s *memorySheet) SetHeader(ctx context.Context, header []string) error {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	if s.doc.fail != nil {
		return s.doc.fail
	}
	s.header = append([]string(nil), header...)
	return nil
}

func (s *memorySheet) Rows(ctx context.Context) ([]*Row, error) {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	if s.doc.fail != nil {
		return nil, s.doc.fail
	}
	header := append([]string(nil), s.header...)
	rows := make([]*Row, len(s.rows))
	for i, values := range s.rows {
		rows[i] = NewRow(i+2, header, values)
	}
	return rows, nil
}

func (s *memorySheet) SaveRows(ctx context.Context, rows []*Row) error {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	if s.doc.fail != nil {
		return s.doc.fail
	}
	for _, row := range rows {
		idx := row.Number - 2
		if idx < 0 || idx >= len(s.rows) {
			return fmt.Errorf("row %d out of range in sheet %s", row.Number, s.title)
		}
		s.rows[idx] = row.Values()
	}
	return nil
}

func (s *memorySheet) AppendRow(ctx context.Context, values map[string]string) error {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	if s.doc.fail != nil {
		return s.doc.fail
	}
	s.rows = append(s.rows, ValuesFor(s.header, values))
	return nil
}
