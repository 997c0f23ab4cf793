package leaderboard

import (
	"context"
	"errors"

	"github.com/devclub-edu/leaderboard/internal/models"
	"github.com/devclub-edu/leaderboard/internal/sheets"
)

// Leaderboard reads a domain sheet and ranks it by Points.
// The stored Rank column is ignored; a missing sheet yields an empty list.
func (s *Synchronizer) Leaderboard(ctx context.Context, domain models.Domain) ([]models.LeaderboardEntry, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}

	title := domain.SheetTitle()
	sheet, err := doc.Sheet(ctx, title)
	if err != nil {
		if errors.Is(err, sheets.ErrSheetNotFound) {
			return []models.LeaderboardEntry{}, nil
		}
		return nil, &SyncError{Op: "read", Sheet: title, Err: err}
	}

	rows, err := sheet.Rows(ctx)
	if err != nil {
		return nil, &SyncError{Op: "read", Sheet: title, Err: err}
	}

	sortRows(rows)
	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, entryOf(row, i+1))
	}
	return entries, nil
}
