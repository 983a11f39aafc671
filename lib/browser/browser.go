package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/browser")

// Config controls how the Chrome session is launched.
type Config struct {
	// ExecPath overrides browser detection. Leave empty to probe the
	// OS for an installed Chromium-family browser.
	ExecPath string `json:"exec_path"`
	Headless bool   `json:"headless"`
	// Timeout bounds each individual browser operation. Defaults to
	// 10 seconds, matching how long the target app takes to render
	// search results on a bad day.
	TimeoutSecs int `json:"timeout_secs"`
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Session owns one Chrome instance and one tab. All operations are
// blocking with a bounded per-operation timeout; the operator is
// expected to supervise the visible window.
type Session struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	timeout     time.Duration
}

// NewSession detects a browser, launches it and opens a blank tab.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	ctx, span := tracer.Start(ctx, "NewSession")
	defer span.End()

	execPath := cfg.ExecPath
	if execPath == "" {
		var err error
		execPath, err = FindBrowser()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "no usable browser found")
			return nil, err
		}
	}
	slog.InfoContext(ctx, "launching browser", "exec_path", execPath, "headless", cfg.Headless)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		// the target app sniffs for webdriver fingerprints
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("start-maximized", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// force the browser process to start so a missing binary fails
	// here instead of on the first navigation
	err := chromedp.Run(tabCtx)
	if err != nil {
		tabCancel()
		allocCancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start browser")
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		timeout:     cfg.timeout(),
	}, nil
}

// Run executes actions against the session tab under the configured
// per-operation timeout. A timeout cancels only the operation, not
// the tab.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(s.tabCtx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(opCtx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// RunSlow is Run with a caller-chosen timeout, for operations like
// full ASP.NET postbacks that legitimately exceed the default bound.
func (s *Session) RunSlow(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(opCtx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	ctx, span := tracer.Start(ctx, "session:Navigate")
	defer span.End()

	err := s.Run(ctx, chromedp.Navigate(url))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
	}
	return err
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.Run(ctx, chromedp.Location(&url))
	return url, err
}

// PageHTML captures the full serialized document, which the search and
// locator code then parse offline with goquery.
func (s *Session) PageHTML(ctx context.Context) (string, error) {
	var html string
	err := s.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// WaitVisible blocks until the selector matches a visible element or
// the given timeout passes.
func (s *Session) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return s.RunSlow(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// Screenshot writes a full-page PNG to path, creating parent
// directories as needed.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	ctx, span := tracer.Start(ctx, "session:Screenshot")
	defer span.End()

	var buf []byte
	// quality 100 makes chromedp emit PNG instead of JPEG
	err := s.Run(ctx, chromedp.FullScreenshot(&buf, 100))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "screenshot capture failed")
		return err
	}
	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// Close force-quits the browser. This is the only hard interrupt
// point; everything else cooperates through contexts.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}
