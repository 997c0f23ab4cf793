package leaderboard

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by every operation before Init succeeds
var ErrNotInitialized = errors.New("leaderboard synchronizer not initialized")

// SyncError reports a failed spreadsheet operation
type SyncError struct {
	Op    string
	Sheet string
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("leaderboard %s on sheet %s: %v", e.Op, e.Sheet, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
