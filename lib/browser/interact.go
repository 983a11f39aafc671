package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.opentelemetry.io/otel/codes"
)

// staleMarkers are error fragments indicating that a previously
// resolved node no longer belongs to the live document. The target app
// re-renders parts of the DOM on every ASP.NET postback, so these show
// up routinely between locating an element and using it.
var staleMarkers = []string{
	"stale element reference",
	"node not found",
	"could not find node",
	"node with given id does not belong to the document",
	"detached from document",
}

func IsStale(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Strategy is one way of performing an interaction.
type Strategy struct {
	Name string
	Do   func(ctx context.Context) error
}

// Attempt runs strategies in order until one succeeds and the verify
// predicate (when given) passes. Every failed rung is logged and kept
// in the returned error.
func Attempt(ctx context.Context, verify func(context.Context) error, strategies ...Strategy) error {
	var errs []error
	for _, s := range strategies {
		err := s.Do(ctx)
		if err == nil {
			if verify == nil {
				return nil
			}
			err = verify(ctx)
			if err == nil {
				return nil
			}
		}
		slog.DebugContext(ctx, "interaction strategy failed", "strategy", s.Name, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	return fmt.Errorf("all interaction strategies exhausted: %w", errors.Join(errs...))
}

// Click clicks the element matched by the CSS selector, escalating
// from a native click to a JavaScript .click() on a freshly re-queried
// element, and finally to a synthetic MouseEvent dispatch.
func (s *Session) Click(ctx context.Context, sel string) error {
	ctx, span := tracer.Start(ctx, "session:Click")
	defer span.End()

	err := Attempt(ctx, nil,
		Strategy{"native click", func(ctx context.Context) error {
			return s.Run(ctx,
				chromedp.WaitVisible(sel, chromedp.ByQuery),
				chromedp.ScrollIntoView(sel, chromedp.ByQuery),
				chromedp.Click(sel, chromedp.ByQuery),
			)
		}},
		Strategy{"js click", func(ctx context.Context) error {
			return s.evalOnElement(ctx, sel, `el.click()`)
		}},
		Strategy{"mouse event dispatch", func(ctx context.Context) error {
			return s.evalOnElement(ctx, sel, `
				for (const type of ['mousedown', 'mouseup', 'click']) {
					el.dispatchEvent(new MouseEvent(type, {bubbles: true, cancelable: true, view: window}));
				}`)
		}},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "click failed")
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

// FillText writes value into a text control and verifies it landed.
// Three native attempts, with a JS re-acquire on stale-element errors,
// then an unconditional JS assignment as a logged best-effort pass.
func (s *Session) FillText(ctx context.Context, sel, value string) error {
	ctx, span := tracer.Start(ctx, "session:FillText")
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		err := s.Run(ctx,
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.ScrollIntoView(sel, chromedp.ByQuery),
			chromedp.Clear(sel, chromedp.ByQuery),
			chromedp.SendKeys(sel, value, chromedp.ByQuery),
		)
		if err == nil {
			got, verr := s.Value(ctx, sel)
			if verr == nil && got != "" && got == value {
				return nil
			}
			err = fmt.Errorf("read-back mismatch: got %q", got)
			if verr != nil {
				err = verr
			}
		}
		lastErr = err
		slog.DebugContext(ctx, "native fill attempt failed",
			"selector", sel, "attempt", attempt, "err", err)

		if IsStale(err) {
			// the node went away mid-operation, re-acquire it by
			// selector and write through the DOM directly
			jsErr := s.setValueJS(ctx, sel, value)
			if jsErr == nil {
				return nil
			}
			lastErr = jsErr
		}
	}

	err := s.setValueJS(ctx, sel, value)
	if err != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, "fill failed")
		return fmt.Errorf("fill %s: %w", sel, lastErr)
	}
	slog.WarnContext(ctx, "field filled via unconditional js assignment, best effort",
		"selector", sel)
	return nil
}

// SetCheckbox ticks a checkbox, verifying .checked after each rung.
func (s *Session) SetCheckbox(ctx context.Context, sel string) error {
	ctx, span := tracer.Start(ctx, "session:SetCheckbox")
	defer span.End()

	verify := func(ctx context.Context) error {
		var checked bool
		err := s.Run(ctx, chromedp.Evaluate(
			fmt.Sprintf(`!!document.querySelector(%q)?.checked`, sel), &checked))
		if err != nil {
			return err
		}
		if !checked {
			return fmt.Errorf("checkbox %s still unchecked", sel)
		}
		return nil
	}

	err := Attempt(ctx, verify,
		Strategy{"native click", func(ctx context.Context) error {
			return s.Run(ctx,
				chromedp.WaitVisible(sel, chromedp.ByQuery),
				chromedp.ScrollIntoView(sel, chromedp.ByQuery),
				chromedp.Click(sel, chromedp.ByQuery),
			)
		}},
		Strategy{"js click", func(ctx context.Context) error {
			return s.evalOnElement(ctx, sel, `if (!el.checked) el.click()`)
		}},
		Strategy{"js checked assignment", func(ctx context.Context) error {
			return s.evalOnElement(ctx, sel, `
				el.checked = true;
				el.dispatchEvent(new Event('change', {bubbles: true}));
				el.dispatchEvent(new MouseEvent('click', {bubbles: true}));`)
		}},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkbox failed")
		return fmt.Errorf("checkbox %s: %w", sel, err)
	}
	return nil
}

// AssertCheckboxes re-asserts a whole set of checkboxes in one JS
// pass. Used after individual ticking as a final sweep, since the
// target page occasionally reverts checkboxes during postbacks.
func (s *Session) AssertCheckboxes(ctx context.Context, sels []string) error {
	if len(sels) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("(() => {\n")
	for _, sel := range sels {
		fmt.Fprintf(&sb, `{
			const el = document.querySelector(%q);
			if (el && !el.checked) {
				el.checked = true;
				el.dispatchEvent(new Event('change', {bubbles: true}));
			}
		}
`, sel)
	}
	sb.WriteString("return true; })()")

	var ok bool
	return s.Run(ctx, chromedp.Evaluate(sb.String(), &ok))
}

// FillDate drives a date-picker widget: focus, select-all, delete,
// type, Enter. Date pickers on the target app swallow plain value
// assignment, hence the dedicated keyboard path; JS assignment remains
// the last resort.
func (s *Session) FillDate(ctx context.Context, sel, value string) error {
	ctx, span := tracer.Start(ctx, "session:FillDate")
	defer span.End()

	err := s.Run(ctx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent(kb.Delete),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
		chromedp.KeyEvent(kb.Enter),
	)
	if err == nil {
		got, verr := s.Value(ctx, sel)
		if verr == nil && got == value {
			return nil
		}
	}

	jsErr := s.setValueJS(ctx, sel, value)
	if jsErr != nil {
		span.RecordError(jsErr)
		span.SetStatus(codes.Error, "date fill failed")
		return fmt.Errorf("fill date %s: %w", sel, errors.Join(err, jsErr))
	}
	return nil
}

// Value reads the current value attribute of an input.
func (s *Session) Value(ctx context.Context, sel string) (string, error) {
	var value string
	err := s.Run(ctx, chromedp.Value(sel, &value, chromedp.ByQuery))
	return value, err
}

// evalOnElement runs a JS body with `el` bound to a freshly queried
// element. Errors if the selector matches nothing.
func (s *Session) evalOnElement(ctx context.Context, sel, body string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		%s;
		return true;
	})()`, sel, body)

	var found bool
	err := s.Run(ctx, chromedp.Evaluate(script, &found))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("element %s not found", sel)
	}
	return nil
}

// setValueJS assigns the value directly and dispatches the input and
// change events the ASP.NET postback wiring listens for.
func (s *Session) setValueJS(ctx context.Context, sel, value string) error {
	return s.evalOnElement(ctx, sel, fmt.Sprintf(`
		el.value = %q;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}))`, value))
}
