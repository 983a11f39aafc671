package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"formfiller-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// Card is one candidate entry on the target's fuzzy-search results
// page.
type Card struct {
	Name    string
	Address string
	// LinkSel selects the card's detail-view link, re-queried at
	// click time because the results list re-renders itself.
	LinkSel string
}

// parseCards extracts result cards from a captured results page.
func parseCards(html string, cfg SearchConfig) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var cards []Card
	doc.Find(cfg.CardSel).Each(func(i int, sel *goquery.Selection) {
		card := Card{
			Name:    strings.TrimSpace(sel.Find(cfg.CardNameSel).First().Text()),
			Address: strings.TrimSpace(sel.Find(cfg.CardAddressSel).First().Text()),
		}
		link := sel.Find(cfg.CardLinkSel).First()
		if id, ok := link.Attr("id"); ok && id != "" {
			card.LinkSel = "#" + id
		} else {
			// positional fallback when the link carries no id
			card.LinkSel = fmt.Sprintf("%s:nth-of-type(%d) %s", cfg.CardSel, i+1, cfg.CardLinkSel)
		}
		cards = append(cards, card)
	})
	return cards, nil
}

// filterByPriority applies the tiered address filter. Tiers are tried
// in order; the first tier with at least one match wins. Returns the
// matching cards and the winning tier index, or (nil, -1) when no
// phrase matched anything.
func filterByPriority(cards []Card, phrases []string) ([]Card, int) {
	for tier, phrase := range phrases {
		needle := textutil.NormalizeName(phrase)
		if needle == "" {
			continue
		}
		var matched []Card
		for _, c := range cards {
			if strings.Contains(textutil.NormalizeName(c.Address), needle) {
				matched = append(matched, c)
			}
		}
		if len(matched) > 0 {
			return matched, tier
		}
	}
	return nil, -1
}

// chooseCard picks the card to open: a unique highest-tier match is
// taken automatically, anything else goes to the operator. The
// operator sees addresses truncated to 100 characters and answers
// with a 1-based index.
func (s *Service) chooseCard(ctx context.Context, name string, cards []Card) (Card, error) {
	matched, tier := filterByPriority(cards, s.cfg.PriorityPhrases)
	if len(matched) == 1 {
		slog.DebugContext(ctx, "auto-picked search result",
			"name", name, "tier", tier, "address", matched[0].Address)
		return matched[0], nil
	}

	pool := matched
	prompt := fmt.Sprintf("Несколько совпадений для %q, выберите карточку", name)
	if len(matched) == 0 {
		pool = cards
		prompt = fmt.Sprintf("Нет совпадений по приоритету для %q, выберите карточку вручную", name)
	}

	options := make([]string, len(pool))
	for i, c := range pool {
		options[i] = fmt.Sprintf("%s — %s", c.Name, textutil.TruncateRunes(c.Address, 100))
	}
	idx, err := s.decider.PickCard(ctx, prompt, options)
	if err != nil {
		return Card{}, fmt.Errorf("card selection: %w", err)
	}
	if idx < 0 || idx >= len(pool) {
		return Card{}, fmt.Errorf("card selection out of range: %d", idx)
	}
	return pool[idx], nil
}

// SearchAndOpen submits the name query, waits for result cards,
// disambiguates and opens the chosen card's detail view.
func (s *Service) SearchAndOpen(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "service:SearchAndOpen")
	defer span.End()

	err := s.session.FillText(ctx, s.cfg.Search.InputSel, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fill search input")
		return err
	}
	err = s.session.Click(ctx, s.cfg.Search.SubmitSel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit search")
		return err
	}

	err = s.session.WaitVisible(ctx, s.cfg.Search.CardSel, s.cfg.Search.timeout())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search results never appeared")
		return fmt.Errorf("search results for %q never appeared: %w", name, err)
	}

	html, err := s.session.PageHTML(ctx)
	if err != nil {
		return err
	}
	cards, err := parseCards(html, s.cfg.Search)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		span.SetStatus(codes.Error, "no result cards parsed")
		return fmt.Errorf("no result cards parsed for %q", name)
	}

	card, err := s.chooseCard(ctx, name, cards)
	if err != nil {
		return err
	}

	// the click ladder absorbs the results list re-rendering between
	// parse and click
	err = s.session.Click(ctx, card.LinkSel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open detail view")
		return fmt.Errorf("failed to open detail view of %q: %w", card.Name, err)
	}
	return nil
}
