package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// PrintingsBySetCode returns every (card, printing) pair carrying the
// exact set code.
func (s *Store) PrintingsBySetCode(ctx context.Context, code string) ([]Entry, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	return s.entriesByQuery(
		ctx,
		`SELECT p.card_id, p.set_code, p.rarity, p.artwork_id FROM printings p
         WHERE p.set_code = ? ORDER BY p.card_id, p.set_code, p.rarity, p.artwork_id`,
		code,
	)
}

// PrintingsByNormalizedCode returns pairs whose set code matches after
// stripping the region segment.
func (s *Store) PrintingsByNormalizedCode(ctx context.Context, code string) ([]Entry, error) {
	normalized := NormalizeSetCode(code)
	if normalized == "" {
		return nil, nil
	}
	return s.entriesByQuery(
		ctx,
		`SELECT p.card_id, p.set_code, p.rarity, p.artwork_id FROM printings p
         WHERE p.normalized_code = ? ORDER BY p.card_id, p.set_code, p.rarity, p.artwork_id`,
		normalized,
	)
}

func (s *Store) entriesByQuery(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query printings: %w", err)
	}
	defer rows.Close()

	type pairing struct {
		cardID   int64
		printing Printing
	}
	var pairings []pairing
	for rows.Next() {
		var p pairing
		if err := rows.Scan(&p.cardID, &p.printing.SetCode, &p.printing.Rarity, &p.printing.ArtworkID); err != nil {
			return nil, err
		}
		pairings = append(pairings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cards := make(map[int64]*Card, len(pairings))
	entries := make([]Entry, 0, len(pairings))
	for _, p := range pairings {
		card, ok := cards[p.cardID]
		if !ok {
			fetched, err := s.CardByID(ctx, p.cardID)
			if err != nil {
				return nil, err
			}
			if fetched == nil {
				continue
			}
			cards[p.cardID] = fetched
			card = fetched
		}
		entries = append(entries, Entry{Card: *card, Printing: p.printing})
	}
	return entries, nil
}

// SearchName returns cards whose normalized name equals or contains
// the normalized query.
func (s *Store) SearchName(ctx context.Context, name string) ([]Card, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var matched []Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		if strings.Contains(NormalizeName(card.Name), normalized) {
			matched = append(matched, *card)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range matched {
		if err := s.attachPrintings(ctx, &matched[i]); err != nil {
			return nil, err
		}
	}
	return matched, nil
}

// NormalizeName reduces a card name to lowercase letters and digits so
// OCR punctuation noise does not defeat comparison.
func NormalizeName(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	normalized := strings.ToLower(input)
	normalized = strings.ReplaceAll(normalized, "&", "and")

	var builder strings.Builder
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
