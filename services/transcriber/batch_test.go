package transcriber

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"formfiller-backend/services/family"
	"formfiller-backend/services/famstore"

	"github.com/stretchr/testify/require"
)

// fakeProcessor succeeds for every record except the ones listed in
// failing, which fail on every attempt.
type fakeProcessor struct {
	failing  map[string]bool
	attempts map[string]int
	logins   int
}

func (p *fakeProcessor) Login(context.Context) error {
	p.logins++
	return nil
}

func (p *fakeProcessor) OpenSearch(context.Context) error { return nil }

func (p *fakeProcessor) ProcessRecord(_ context.Context, rec *family.Record, _ string) error {
	p.attempts[rec.Key()]++
	if p.failing[rec.PrimaryName()] {
		return fmt.Errorf("card not found")
	}
	return nil
}

func testRecords(names ...string) []family.Record {
	records := make([]family.Record, len(names))
	for i, name := range names {
		records[i] = family.Record{Mother: family.Person{Name: name}}
		records[i].Clean()
	}
	return records
}

func newTestController(t *testing.T, records []family.Record, proc *fakeProcessor, decider *scriptDecider, stopOnError bool) (*Controller, famstore.Store) {
	dir := t.TempDir()
	store := famstore.NewStore(
		filepath.Join(dir, "working_families.json"),
		filepath.Join(dir, "completed"),
	)
	require.NoError(t, store.SaveWorking(records))

	ctrl := NewController(ControllerOptions{
		Store:   store,
		Decider: decider,
		NewProcessor: func(context.Context) (Processor, func(), error) {
			return proc, func() {}, nil
		},
		ScreenshotDir: filepath.Join(dir, "screenshots"),
		StopOnError:   stopOnError,
	})
	return ctrl, store
}

func TestRunRetriesAndArchives(t *testing.T) {
	proc := &fakeProcessor{
		failing:  map[string]bool{"Петрова Анна": true},
		attempts: map[string]int{},
	}
	decider := &scriptDecider{}
	records := testRecords("Иванова Мария", "Петрова Анна", "Сидорова Ольга")
	ctrl, store := newTestController(t, records, proc, decider, false)

	summary, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, RunCompleted, ctrl.State())

	require.Equal(t, 2, summary.Success)
	require.Equal(t, 1, summary.Errors)
	require.Equal(t, 0, summary.Skipped)

	// two attempts in the main pass, two more in the retry pass
	require.Equal(t, 4, proc.attempts[records[1].Key()])
	require.Equal(t, 1, proc.attempts[records[0].Key()])
	require.Len(t, decider.resumeReasons, 2)

	// the retry pass runs on a fresh session
	require.Equal(t, 2, proc.logins)

	// operator archived both successes; the failure stays in the
	// working set
	require.NotEmpty(t, summary.ArchivePath)
	archived, err := store.LoadArchive(summary.ArchivePath)
	require.NoError(t, err)
	require.Len(t, archived, 2)

	working, err := store.LoadWorking()
	require.NoError(t, err)
	require.Len(t, working, 1)
	require.Equal(t, "Петрова Анна", working[0].PrimaryName())
	require.Equal(t, family.StatusError, working[0].Status)
}

func TestRunSkipsRecordsWithoutParentName(t *testing.T) {
	proc := &fakeProcessor{attempts: map[string]int{}}
	decider := &scriptDecider{}

	records := testRecords("Иванова Мария")
	records = append(records, family.Record{Phone: "89001234567"})
	ctrl, _ := newTestController(t, records, proc, decider, false)

	summary, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Success)
	require.Equal(t, 1, summary.Skipped)
	require.Len(t, proc.attempts, 1, "nameless record must never hit the browser")
}

func TestRunStopOnError(t *testing.T) {
	proc := &fakeProcessor{
		failing:  map[string]bool{"Иванова Мария": true},
		attempts: map[string]int{},
	}
	decider := &scriptDecider{}
	records := testRecords("Иванова Мария", "Петрова Анна")
	ctrl, _ := newTestController(t, records, proc, decider, true)

	_, err := ctrl.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, proc.attempts[records[1].Key()], "batch must abort before the next record")
}

func TestStopEndsRunAtNextCheckpoint(t *testing.T) {
	proc := &fakeProcessor{
		failing:  map[string]bool{"Иванова Мария": true, "Петрова Анна": true},
		attempts: map[string]int{},
	}
	records := testRecords("Иванова Мария", "Петрова Анна")

	var ctrl *Controller
	decider := &stoppingDecider{}
	dir := t.TempDir()
	store := famstore.NewStore(
		filepath.Join(dir, "working_families.json"),
		filepath.Join(dir, "completed"),
	)
	require.NoError(t, store.SaveWorking(records))

	ctrl = NewController(ControllerOptions{
		Store:   store,
		Decider: decider,
		NewProcessor: func(context.Context) (Processor, func(), error) {
			return proc, func() {}, nil
		},
		ScreenshotDir: filepath.Join(dir, "screenshots"),
	})
	decider.stop = ctrl.Stop

	_, err := ctrl.Run(context.Background())
	require.ErrorIs(t, err, ErrStopped)
	require.Equal(t, RunStopped, ctrl.State())
	require.Equal(t, 0, proc.attempts[records[1].Key()])
}

func TestRunRejectsEmptyWorkingSet(t *testing.T) {
	proc := &fakeProcessor{attempts: map[string]int{}}
	ctrl, _ := newTestController(t, nil, proc, &scriptDecider{}, false)

	_, err := ctrl.Run(context.Background())
	require.Error(t, err)
}

// pageProcessor tracks which page the session is on: a failed record
// strands it off the search page, and only OpenSearch brings it back.
type pageProcessor struct {
	failFirst    map[string]int
	attempts     map[string]int
	onSearchPage bool
}

func (p *pageProcessor) Login(context.Context) error { return nil }

func (p *pageProcessor) OpenSearch(context.Context) error {
	p.onSearchPage = true
	return nil
}

func (p *pageProcessor) ProcessRecord(_ context.Context, rec *family.Record, _ string) error {
	if !p.onSearchPage {
		return fmt.Errorf("search input not present on this page")
	}
	p.attempts[rec.Key()]++
	if p.attempts[rec.Key()] <= p.failFirst[rec.PrimaryName()] {
		p.onSearchPage = false
		return fmt.Errorf("form postback failed")
	}
	return nil
}

func TestRunReturnsToSearchAfterMidProtocolFailure(t *testing.T) {
	proc := &pageProcessor{
		failFirst: map[string]int{"Иванова Мария": 1},
		attempts:  map[string]int{},
	}
	decider := &scriptDecider{}
	records := testRecords("Иванова Мария", "Петрова Анна")
	dir := t.TempDir()
	store := famstore.NewStore(
		filepath.Join(dir, "working_families.json"),
		filepath.Join(dir, "completed"),
	)
	require.NoError(t, store.SaveWorking(records))

	ctrl := NewController(ControllerOptions{
		Store:   store,
		Decider: decider,
		NewProcessor: func(context.Context) (Processor, func(), error) {
			return proc, func() {}, nil
		},
		ScreenshotDir: filepath.Join(dir, "screenshots"),
	})

	summary, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	// the first record fails once on the form page; the second attempt
	// and the following record both need the search page restored
	require.Equal(t, 2, summary.Success)
	require.Equal(t, 0, summary.Errors)
	require.Equal(t, 2, proc.attempts[records[0].Key()])
	require.Equal(t, 1, proc.attempts[records[1].Key()])
	require.Empty(t, decider.resumeReasons)
}

func TestCheckpointHonorsCancelWhilePaused(t *testing.T) {
	ctrl := NewController(ControllerOptions{})
	ctrl.mu.Lock()
	ctrl.state = RunPaused
	ctrl.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.checkpoint(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("checkpoint kept waiting after cancellation")
	}
}

// stoppingDecider presses Stop while acknowledging a failure, the way
// an operator bails out of a broken batch.
type stoppingDecider struct {
	scriptDecider
	stop func()
}

func (d *stoppingDecider) Resume(ctx context.Context, reason string) error {
	d.stop()
	return d.scriptDecider.Resume(ctx, reason)
}
