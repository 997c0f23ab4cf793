package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devclub-edu/leaderboard/internal/metrics"
	"github.com/devclub-edu/leaderboard/internal/models"
	"github.com/devclub-edu/leaderboard/internal/sheets"
)

// Opener connects to the backing spreadsheet
type Opener func(ctx context.Context) (sheets.Document, error)

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithLocker replaces the in-process per-sheet lock
func WithLocker(l Locker) Option {
	return func(s *Synchronizer) {
		s.locker = l
	}
}

// WithHub publishes every re-ranked sheet to h
func WithHub(h *Hub) Option {
	return func(s *Synchronizer) {
		s.hub = h
	}
}

// Synchronizer mirrors per-domain rankings into a spreadsheet.
// The primary store stays authoritative; the spreadsheet is best effort.
type Synchronizer struct {
	opener Opener
	locker Locker
	hub    *Hub

	mu          sync.RWMutex
	doc         sheets.Document
	initialized atomic.Bool
}

// New creates a synchronizer. Nothing is opened until Init.
func New(opener Opener, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		opener: opener,
		locker: NewLocalLocker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init opens the spreadsheet. Calling it again after success is a no-op.
func (s *Synchronizer) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized.Load() {
		return nil
	}

	doc, err := s.opener(ctx)
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	s.doc = doc
	s.initialized.Store(true)
	slog.Info("leaderboard synchronizer initialized")
	return nil
}

// Initialized reports whether Init has succeeded
func (s *Synchronizer) Initialized() bool {
	return s.initialized.Load()
}

// CheckInitialized returns ErrNotInitialized until Init succeeds
func (s *Synchronizer) CheckInitialized() error {
	if !s.initialized.Load() {
		return ErrNotInitialized
	}
	return nil
}

// Close drops the spreadsheet handle; later calls fail with ErrNotInitialized
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized.Store(false)
	s.doc = nil
	return nil
}

// Ping checks that the spreadsheet is reachable
func (s *Synchronizer) Ping(ctx context.Context) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	return doc.Ping(ctx)
}

func (s *Synchronizer) document() (sheets.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized.Load() || s.doc == nil {
		return nil, ErrNotInitialized
	}
	return s.doc, nil
}

// UpsertUserWithTasks writes one student's row into the domain sheet and re-ranks it
func (s *Synchronizer) UpsertUserWithTasks(ctx context.Context, domain models.Domain, profile Profile, tasks []TaskStatus) error {
	return s.SyncDomain(ctx, domain, []Member{{Profile: profile, Tasks: tasks}})
}

// SyncDomain reconciles many students into the domain sheet in one pass
func (s *Synchronizer) SyncDomain(ctx context.Context, domain models.Domain, members []Member) (err error) {
	op := "upsert"
	if len(members) != 1 {
		op = "rebuild"
	}

	start := time.Now()
	defer func() {
		metrics.ObserveSync(string(domain), op, start, err)
	}()

	doc, err := s.document()
	if err != nil {
		return err
	}

	title := domain.SheetTitle()
	unlock := s.lock(ctx, title)
	defer unlock()

	sheet, err := s.getOrCreateSheet(ctx, doc, title)
	if err != nil {
		return &SyncError{Op: "open sheet", Sheet: title, Err: err}
	}

	if _, err := reconcileHeader(ctx, sheet, taskHeaders(members)); err != nil {
		return &SyncError{Op: "update header", Sheet: title, Err: err}
	}

	if err := upsertRows(ctx, sheet, members); err != nil {
		return &SyncError{Op: "upsert rows", Sheet: title, Err: err}
	}

	entries, err := rerank(ctx, sheet)
	if err != nil {
		return &SyncError{Op: "rank", Sheet: title, Err: err}
	}

	if s.hub != nil {
		s.hub.Publish(domain, entries)
	}

	slog.Debug("leaderboard synced", "sheet", title, "op", op, "members", len(members), "rows", len(entries))
	return nil
}

// lock serializes passes on one sheet; a lock failure degrades to an unlocked pass
func (s *Synchronizer) lock(ctx context.Context, title string) func() {
	unlock, err := s.locker.Lock(ctx, "leaderboard:"+title)
	if err != nil {
		slog.Warn("sync lock unavailable, proceeding unlocked", "sheet", title, "error", err)
		return func() {}
	}
	return unlock
}

func (s *Synchronizer) getOrCreateSheet(ctx context.Context, doc sheets.Document, title string) (sheets.Sheet, error) {
	sheet, err := doc.Sheet(ctx, title)
	if err == nil {
		return sheet, nil
	}
	if !errors.Is(err, sheets.ErrSheetNotFound) {
		return nil, err
	}

	slog.Info("creating leaderboard sheet", "sheet", title)
	return doc.AddSheet(ctx, title, BaseHeader)
}

// taskHeaders lists task columns in first-seen order
func taskHeaders(members []Member) []string {
	seen := make(map[string]bool)
	var headers []string
	for _, m := range members {
		for _, t := range m.Tasks {
			h := TaskHeader(t.Name)
			if !seen[h] {
				seen[h] = true
				headers = append(headers, h)
			}
		}
	}
	return headers
}

// reconcileHeader appends missing columns. Existing columns are never moved or removed.
func reconcileHeader(ctx context.Context, sheet sheets.Sheet, wanted []string) ([]string, error) {
	header, err := sheet.Header(ctx)
	if err != nil {
		return nil, err
	}

	changed := false
	if len(header) == 0 {
		header = append([]string(nil), BaseHeader...)
		changed = true
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, h := range wanted {
		if !present[h] {
			present[h] = true
			header = append(header, h)
			changed = true
		}
	}

	if changed {
		if err := sheet.SetHeader(ctx, header); err != nil {
			return nil, err
		}
	}
	return header, nil
}

// upsertRows updates members' existing rows in place and appends the rest
func upsertRows(ctx context.Context, sheet sheets.Sheet, members []Member) error {
	rows, err := sheet.Rows(ctx)
	if err != nil {
		return err
	}

	var updated []*sheets.Row
	var appended []map[string]string
	pending := make(map[string]map[string]string)

	for _, m := range members {
		values := m.cells()

		if row := findRow(rows, m.Email); row != nil {
			for key, value := range values {
				if key == ColEmail {
					continue
				}
				row.Set(key, value) // keys outside the header are skipped
			}
			updated = append(updated, row)
			continue
		}

		// A member listed twice in one pass is appended once
		key := normalizeKey(m.Email)
		if prev, ok := pending[key]; ok {
			for k, v := range values {
				prev[k] = v
			}
			continue
		}
		values[ColRank] = ""
		pending[key] = values
		appended = append(appended, values)
	}

	if err := sheet.SaveRows(ctx, updated); err != nil {
		return err
	}
	for _, values := range appended {
		if err := sheet.AppendRow(ctx, values); err != nil {
			return err
		}
	}
	return nil
}

func findRow(rows []*sheets.Row, email string) *sheets.Row {
	for _, row := range rows {
		if sameEmail(row.Get(ColEmail), email) {
			return row
		}
	}
	return nil
}

func normalizeKey(email string) string {
	return models.NormalizeEmail(email)
}

// rerank reloads the sheet, orders rows by Points and rewrites every Rank cell
func rerank(ctx context.Context, sheet sheets.Sheet) ([]models.LeaderboardEntry, error) {
	rows, err := sheet.Rows(ctx)
	if err != nil {
		return nil, err
	}

	sortRows(rows)
	entries := make([]models.LeaderboardEntry, len(rows))
	for i, row := range rows {
		row.Set(ColRank, strconv.Itoa(i+1))
		entries[i] = entryOf(row, i+1)
	}

	if err := sheet.SaveRows(ctx, rows); err != nil {
		return nil, err
	}
	return entries, nil
}

// sortRows orders rows by Points descending, keeping sheet order on ties
func sortRows(rows []*sheets.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return parseInt(rows[i].Get(ColPoints)) > parseInt(rows[j].Get(ColPoints))
	})
}

func entryOf(row *sheets.Row, rank int) models.LeaderboardEntry {
	return models.LeaderboardEntry{
		Rank:       rank,
		Name:       row.Get(ColName),
		Email:      row.Get(ColEmail),
		Branch:     row.Get(ColBranch),
		Year:       parseInt(row.Get(ColYear)),
		Attendance: parseInt(row.Get(ColAttendance)),
		Points:     parseInt(row.Get(ColPoints)),
	}
}
