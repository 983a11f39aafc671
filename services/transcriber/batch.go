package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"formfiller-backend/lib/runstore"
	"formfiller-backend/lib/timezone"
	"formfiller-backend/services/family"
	"formfiller-backend/services/famstore"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/codes"
)

// RunState is the batch state machine:
// idle → running → (paused ⇄ running) → stopped|completed.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunPaused    RunState = "paused"
	RunStopped   RunState = "stopped"
	RunCompleted RunState = "completed"
)

// ErrStopped is returned by Run when the operator stopped the batch.
var ErrStopped = errors.New("batch stopped by operator")

const attemptsPerRecord = 2

// Processor is the per-record pipeline; *Service implements it. The
// indirection keeps the batch loop testable without a browser.
type Processor interface {
	Login(ctx context.Context) error
	OpenSearch(ctx context.Context) error
	ProcessRecord(ctx context.Context, rec *family.Record, screenshotPath string) error
}

// ProcessorFactory creates a fresh processor bound to its own browser
// session. The returned close function force-quits that session.
type ProcessorFactory func(ctx context.Context) (Processor, func(), error)

type ControllerOptions struct {
	Store        famstore.Store
	Journal      *runstore.Store
	Decider      Decider
	NewProcessor ProcessorFactory
	// ScreenshotDir receives the per-record PNGs.
	ScreenshotDir string
	// StopOnError aborts the whole batch at the first record that
	// still errors after its retries.
	StopOnError bool
	// PaceMinMs/PaceMaxMs bound the randomized pause between records
	// so the batch doesn't hammer the portal at machine speed. Zero
	// disables pacing.
	PaceMinMs int
	PaceMaxMs int
}

// Controller owns one batch run over the working set. All browser work
// happens on the goroutine calling Run; Pause, Resume and Stop may be
// called from any other goroutine.
type Controller struct {
	opts ControllerOptions

	mu    sync.Mutex
	cond  *sync.Cond
	state RunState
}

func NewController(opts ControllerOptions) *Controller {
	c := &Controller{opts: opts, state: RunIdle}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *Controller) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pause suspends the loop before the next record.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == RunRunning {
		c.state = RunPaused
	}
}

// Resume releases a paused loop.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == RunPaused {
		c.state = RunRunning
		c.cond.Broadcast()
	}
}

// Stop cooperatively ends the run at the next checkpoint.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == RunRunning || c.state == RunPaused {
		c.state = RunStopped
		c.cond.Broadcast()
	}
}

// checkpoint is called between steps: it blocks while paused and
// reports when the run was stopped or the context cancelled.
func (c *Controller) checkpoint(ctx context.Context) error {
	// cond.Wait releases the lock, so a cancelled ctx must wake the
	// wait loop or a paused batch would ignore Ctrl+C
	wake := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer wake()

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state == RunPaused && ctx.Err() == nil {
		c.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.state == RunStopped {
		return ErrStopped
	}
	return nil
}

// Summary reports the outcome of a batch run.
type Summary struct {
	Success     int
	Errors      int
	Skipped     int
	ArchivePath string
	Statuses    map[string]family.Status
}

// Run executes the full batch protocol: one pass over the working set
// with per-record retries, one extra pass over still-erroring records
// with a fresh browser, then the operator's archive checklist.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "controller:Run")
	defer span.End()

	c.mu.Lock()
	if c.state == RunRunning || c.state == RunPaused {
		c.mu.Unlock()
		return Summary{}, fmt.Errorf("batch already running")
	}
	c.state = RunRunning
	c.mu.Unlock()

	summary, err := c.run(ctx)

	c.mu.Lock()
	if c.state != RunStopped {
		c.state = RunCompleted
	}
	c.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch run failed")
	}
	return summary, err
}

func (c *Controller) run(ctx context.Context) (Summary, error) {
	records, err := c.opts.Store.LoadWorking()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load working set: %w", err)
	}
	if len(records) == 0 {
		return Summary{}, fmt.Errorf("working set is empty")
	}

	var runID int64
	if c.opts.Journal != nil {
		runID, err = c.opts.Journal.BeginRun(ctx)
		if err != nil {
			return Summary{}, err
		}
		defer func() {
			err := c.opts.Journal.FinishRun(context.WithoutCancel(ctx), runID)
			if err != nil {
				slog.Warn("failed to finish journal run", "err", err)
			}
		}()
	}

	proc, closeProc, err := c.startProcessor(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer func() { closeProc() }()

	slog.InfoContext(ctx, "starting batch pass", "records", len(records))
	err = c.pass(ctx, proc, runID, records, false)
	if err != nil {
		return c.summarize(records, ""), err
	}

	// still-erroring records get exactly one more pass on a fresh
	// driver before being left for manual follow-up
	if countStatus(records, family.StatusError) > 0 {
		closeProc()
		proc, closeProc, err = c.startProcessor(ctx)
		if err != nil {
			return c.summarize(records, ""), err
		}

		slog.InfoContext(ctx, "retrying failed records with a fresh browser",
			"errors", countStatus(records, family.StatusError))
		err = c.pass(ctx, proc, runID, records, true)
		if err != nil {
			return c.summarize(records, ""), err
		}
	}

	err = c.opts.Store.SaveWorking(records)
	if err != nil {
		return c.summarize(records, ""), err
	}

	archivePath, err := c.archiveCompleted(ctx, records)
	if err != nil {
		return c.summarize(records, ""), err
	}

	return c.summarize(records, archivePath), nil
}

func (c *Controller) startProcessor(ctx context.Context) (Processor, func(), error) {
	proc, closeProc, err := c.opts.NewProcessor(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	err = proc.Login(ctx)
	if err != nil {
		closeProc()
		return nil, nil, err
	}
	err = proc.OpenSearch(ctx)
	if err != nil {
		closeProc()
		return nil, nil, err
	}
	return proc, closeProc, nil
}

// pass runs over the working set once. In retry mode only records
// already marked error are attempted again.
func (c *Controller) pass(ctx context.Context, proc Processor, runID int64, records []family.Record, retry bool) error {
	for i := range records {
		rec := &records[i]

		if retry && rec.Status != family.StatusError {
			continue
		}
		if !retry && rec.Status == family.StatusSuccess {
			continue
		}

		err := c.checkpoint(ctx)
		if err != nil {
			return err
		}

		if rec.Classify() == family.StatusSkipped {
			slog.WarnContext(ctx, "skipping record with no parent name", "index", i)
			c.journal(ctx, runID, runstore.Outcome{
				RecordKey: rec.Key(),
				Status:    string(family.StatusSkipped),
				Attempt:   0,
			})
			continue
		}

		err = c.processOne(ctx, proc, runID, i, rec)
		if err != nil {
			return err
		}
		err = c.pace(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) pace(ctx context.Context) error {
	if c.opts.PaceMaxMs <= 0 || c.opts.PaceMaxMs < c.opts.PaceMinMs {
		return nil
	}
	ms, err := random.IntRange(c.opts.PaceMinMs, c.opts.PaceMaxMs+1)
	if err != nil {
		ms = c.opts.PaceMinMs
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) processOne(ctx context.Context, proc Processor, runID int64, index int, rec *family.Record) error {
	rec.Status = family.StatusInProgress
	screenshot := filepath.Join(
		c.opts.ScreenshotDir,
		famstore.ScreenshotName(index+1, rec.PrimaryName()),
	)

	var lastErr error
	for attempt := 1; attempt <= attemptsPerRecord; attempt++ {
		err := c.checkpoint(ctx)
		if err != nil {
			return err
		}

		err = proc.ProcessRecord(ctx, rec, screenshot)
		if err == nil {
			rec.Status = family.StatusSuccess
			c.journal(ctx, runID, runstore.Outcome{
				RecordKey:      rec.Key(),
				Status:         string(family.StatusSuccess),
				Attempt:        attempt,
				ScreenshotPath: screenshot,
			})
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, ErrStopped) {
			return err
		}

		lastErr = err
		slog.WarnContext(ctx, "record attempt failed",
			"name", rec.PrimaryName(), "attempt", attempt, "err", err)
		c.journal(ctx, runID, runstore.Outcome{
			RecordKey: rec.Key(),
			Status:    string(family.StatusError),
			Attempt:   attempt,
			ErrorText: err.Error(),
		})

		// a failure can strand the session on the detail or form page;
		// the next attempt needs the search input back
		err = proc.OpenSearch(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to return to the search page", "err", err)
		}
	}

	// the loop never silently skips a record: after the automated
	// retries the operator acknowledges before the batch moves on
	rec.Status = family.StatusNeedsManual
	err := c.opts.Decider.Resume(ctx, fmt.Sprintf(
		"Не удалось обработать %q: %v", rec.PrimaryName(), lastErr))
	if err != nil {
		return err
	}
	rec.Status = family.StatusError

	if c.opts.StopOnError {
		return fmt.Errorf("stopping on error for %q: %w", rec.PrimaryName(), lastErr)
	}
	return nil
}

// archiveCompleted shows the operator the checklist of successful
// records and moves the chosen ones into the dated archive.
func (c *Controller) archiveCompleted(ctx context.Context, records []family.Record) (string, error) {
	var succeeded []family.Record
	for _, r := range records {
		if r.Status == family.StatusSuccess {
			succeeded = append(succeeded, r)
		}
	}
	if len(succeeded) == 0 {
		return "", nil
	}

	names := make([]string, len(succeeded))
	for i, r := range succeeded {
		names[i] = r.PrimaryName()
	}
	picked, err := c.opts.Decider.SelectCompleted(ctx, names)
	if err != nil {
		return "", err
	}

	var chosen []family.Record
	for _, idx := range picked {
		if idx >= 0 && idx < len(succeeded) {
			chosen = append(chosen, succeeded[idx])
		}
	}
	if len(chosen) == 0 {
		return "", nil
	}

	path, err := c.opts.Store.Archive(chosen, timezone.Now())
	if err != nil {
		return "", fmt.Errorf("failed to archive completed records: %w", err)
	}
	slog.InfoContext(ctx, "archived completed records",
		"count", len(chosen), "path", path)
	return path, nil
}

func (c *Controller) journal(ctx context.Context, runID int64, o runstore.Outcome) {
	if c.opts.Journal == nil {
		return
	}
	err := c.opts.Journal.RecordOutcome(ctx, runID, o)
	if err != nil {
		slog.WarnContext(ctx, "failed to journal outcome", "err", err)
	}
}

func (c *Controller) summarize(records []family.Record, archivePath string) Summary {
	s := Summary{
		ArchivePath: archivePath,
		Statuses:    map[string]family.Status{},
	}
	for _, r := range records {
		s.Statuses[r.Key()] = r.Status
		switch r.Status {
		case family.StatusSuccess:
			s.Success++
		case family.StatusError, family.StatusNeedsManual:
			s.Errors++
		case family.StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

func countStatus(records []family.Record, status family.Status) int {
	n := 0
	for _, r := range records {
		if r.Status == status {
			n++
		}
	}
	return n
}
