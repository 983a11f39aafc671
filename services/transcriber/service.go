package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"formfiller-backend/lib/browser"
	"formfiller-backend/lib/textutil"
	"formfiller-backend/services/family"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/transcriber")

var ErrLoginFailed = fmt.Errorf("failed to login to the target application")

// Service drives one browser session through the fixed per-record
// transcription protocol.
type Service struct {
	cfg     Config
	session *browser.Session
	decider Decider
}

func NewService(cfg Config, session *browser.Session, decider Decider) *Service {
	return &Service{
		cfg:     cfg,
		session: session,
		decider: decider,
	}
}

// Login navigates to the login form, submits the configured
// credentials and waits for the post-login page.
func (s *Service) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "service:Login")
	defer span.End()

	err := s.session.Navigate(ctx, s.cfg.BaseURL+s.cfg.Login.Path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login page never resolved")
		return fmt.Errorf("login page never resolved: %w", err)
	}

	err = s.session.FillText(ctx, s.cfg.Login.UsernameSel, s.cfg.Username)
	if err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}
	err = s.session.FillText(ctx, s.cfg.Login.PasswordSel, s.cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	err = s.session.Click(ctx, s.cfg.Login.SubmitSel)
	if err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	err = s.session.WaitVisible(ctx, s.cfg.Login.ReadySel, s.cfg.Form.postbackTimeout())
	if err != nil {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return ErrLoginFailed
	}
	slog.InfoContext(ctx, "logged into target application", "base_url", s.cfg.BaseURL)
	return nil
}

// OpenSearch brings the session to the search page.
func (s *Service) OpenSearch(ctx context.Context) error {
	err := s.session.Navigate(ctx, s.cfg.BaseURL+s.cfg.Search.Path)
	if err != nil {
		return err
	}
	return s.session.WaitVisible(ctx, s.cfg.Search.InputSel, s.cfg.Search.timeout())
}

// captureContact fills in the record's phone and address, scraping
// the opened detail page for whichever the record doesn't already
// carry, then hands the address to the operator for correction.
func (s *Service) captureContact(ctx context.Context, rec *family.Record) error {
	ctx, span := tracer.Start(ctx, "service:captureContact")
	defer span.End()

	if rec.Phone == "" || rec.Address == "" {
		html, err := s.session.PageHTML(ctx)
		if err != nil {
			return err
		}
		if rec.Phone == "" {
			raw := scrapeLabeledValue(html, fieldKeywords[FieldPhone])
			if cleaned := textutil.CleanPhone(raw); cleaned != "" {
				rec.Phone = cleaned
			} else {
				rec.Phone = strings.TrimSpace(raw)
			}
		}
		if rec.Address == "" {
			rec.Address = scrapeLabeledValue(html, fieldKeywords[FieldAddress])
		}
	}

	corrected, err := s.decider.CorrectAddress(ctx, rec.Address)
	if err != nil {
		return fmt.Errorf("address correction: %w", err)
	}
	rec.Address = strings.TrimSpace(corrected)
	return nil
}

// scrapeLabeledValue finds a labeled field on the detail page and
// returns the text of the cell following the label.
func scrapeLabeledValue(html string, keywords []string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var value string
	doc.Find("td, th, label, span, div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		label := textutil.NormalizeName(sel.Text())
		for _, kw := range keywords {
			if label == kw || strings.HasPrefix(label, kw) {
				next := sel.Next()
				if next.Length() > 0 {
					value = strings.TrimSpace(next.Text())
					return false
				}
			}
		}
		return true
	})
	return value
}

// ProcessRecord runs the full per-record protocol: search,
// disambiguate, capture contact data, navigate the form, fill it,
// confirm, save and screenshot. The caller owns retries and status
// bookkeeping.
func (s *Service) ProcessRecord(ctx context.Context, rec *family.Record, screenshotPath string) error {
	ctx, span := tracer.Start(ctx, "service:ProcessRecord")
	defer span.End()

	name := rec.PrimaryName()
	slog.InfoContext(ctx, "processing record", "name", name)

	err := s.SearchAndOpen(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return err
	}

	err = s.captureContact(ctx, rec)
	if err != nil {
		return err
	}

	ok, err := s.decider.ConfirmPage(ctx, fmt.Sprintf("Открыта карточка для %q, продолжить заполнение?", name))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("operator rejected the opened page for %q", name)
	}

	err = s.openForm(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "form navigation failed")
		return err
	}

	err = s.fillForm(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "form fill failed")
		return err
	}

	ok, err = s.decider.ConfirmSave(ctx, recordSummary(rec))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("operator declined to save %q", name)
	}

	err = s.saveAndReturn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return err
	}

	if screenshotPath != "" {
		err = s.session.Screenshot(ctx, screenshotPath)
		if err != nil {
			// the record is saved at this point, a lost screenshot
			// must not fail it
			slog.WarnContext(ctx, "failed to capture screenshot",
				"path", screenshotPath, "err", err)
		}
	}

	slog.InfoContext(ctx, "record transcribed", "name", name)
	return nil
}
