package resync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/devclub-edu/leaderboard/internal/leaderboard"
	"github.com/devclub-edu/leaderboard/internal/models"
)

type fakeRebuilder struct {
	mu    sync.Mutex
	calls []models.Domain
	fail  map[models.Domain]error
}

func (f *fakeRebuilder) Rebuild(ctx context.Context, domain models.Domain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, domain)
	return f.fail[domain]
}

func (f *fakeRebuilder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeInit struct {
	ready bool
	err   error
	tries int
}

func (f *fakeInit) Initialized() bool { return f.ready }

func (f *fakeInit) Init(ctx context.Context) error {
	f.tries++
	if f.err != nil {
		return f.err
	}
	f.ready = true
	return nil
}

func TestRunOnceRebuildsEveryDomain(t *testing.T) {
	r := &fakeRebuilder{fail: map[models.Domain]error{models.DomainAIML: errors.New("quota")}}
	w := NewWorker(r, nil, time.Minute)

	synced := w.RunOnce(context.Background())
	assert.Equal(t, 2, synced)
	assert.Equal(t, []models.Domain{models.DomainWebDev, models.DomainAIML, models.DomainDSA}, r.calls)
}

func TestRunOnceRetriesInit(t *testing.T) {
	r := &fakeRebuilder{}
	init := &fakeInit{err: errors.New("no credentials")}
	w := NewWorker(r, init, time.Minute)

	assert.Equal(t, 0, w.RunOnce(context.Background()))
	assert.Equal(t, 0, r.count())

	init.err = nil
	assert.Equal(t, 3, w.RunOnce(context.Background()))
	assert.Equal(t, 2, init.tries)

	// Already initialized: no further Init calls
	w.RunOnce(context.Background())
	assert.Equal(t, 2, init.tries)
}

func TestRunOnceStopsWhenNotInitialized(t *testing.T) {
	r := &fakeRebuilder{fail: map[models.Domain]error{models.DomainWebDev: leaderboard.ErrNotInitialized}}
	w := NewWorker(r, nil, time.Minute)

	assert.Equal(t, 0, w.RunOnce(context.Background()))
	assert.Equal(t, 1, r.count())
}

func TestStartStopsWithContext(t *testing.T) {
	r := &fakeRebuilder{}
	w := NewWorker(r, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool { return r.count() >= 6 }, time.Second, 5*time.Millisecond)
	cancel()
}
