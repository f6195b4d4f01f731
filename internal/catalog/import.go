package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Dump mirrors the JSON layout produced by the upstream card API.
type dumpCard struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Attribute string      `json:"attribute"`
	Race      string      `json:"race"`
	ATK       *int        `json:"atk"`
	DEF       *int        `json:"def"`
	Level     *int        `json:"level"`
	CardSets  []dumpSet   `json:"card_sets"`
	CardArt   []dumpImage `json:"card_images"`
}

type dumpSet struct {
	SetCode   string `json:"set_code"`
	SetRarity string `json:"set_rarity"`
	ImageID   *int64 `json:"image_id"`
}

type dumpImage struct {
	ID int64 `json:"id"`
}

// ImportDump loads a catalog JSON dump, replacing existing card and
// printing rows. The art index is left untouched; embeddings are
// produced separately. Returns the number of cards imported.
func (s *Store) ImportDump(ctx context.Context, r io.Reader) (int, error) {
	var cards []dumpCard
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cards); err != nil {
		return 0, fmt.Errorf("decode catalog dump: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM printings`); err != nil {
		return 0, fmt.Errorf("clear printings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cards`); err != nil {
		return 0, fmt.Errorf("clear cards: %w", err)
	}

	insertCard, err := tx.PrepareContext(ctx, `INSERT INTO cards
        (id, name, passcode, card_type, attribute, race, atk, def, level)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare card insert: %w", err)
	}
	defer insertCard.Close()

	insertPrinting, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO printings
        (card_id, set_code, normalized_code, rarity, artwork_id)
        VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare printing insert: %w", err)
	}
	defer insertPrinting.Close()

	imported := 0
	for _, card := range cards {
		name := strings.TrimSpace(card.Name)
		if card.ID == 0 || name == "" {
			continue
		}
		if _, err := insertCard.ExecContext(
			ctx,
			card.ID,
			name,
			Passcode(card.ID),
			cardTypeKeyword(card.Type),
			strings.TrimSpace(card.Attribute),
			strings.TrimSpace(card.Race),
			nullableInt(card.ATK),
			nullableInt(card.DEF),
			nullableInt(card.Level),
		); err != nil {
			return imported, fmt.Errorf("insert card %d: %w", card.ID, err)
		}

		defaultArt := int64(0)
		if len(card.CardArt) > 0 {
			defaultArt = card.CardArt[0].ID
		}
		for _, set := range card.CardSets {
			code := strings.ToUpper(strings.TrimSpace(set.SetCode))
			if code == "" {
				continue
			}
			artworkID := defaultArt
			if set.ImageID != nil {
				artworkID = *set.ImageID
			}
			if _, err := insertPrinting.ExecContext(
				ctx,
				card.ID,
				code,
				NormalizeSetCode(code),
				strings.TrimSpace(set.SetRarity),
				artworkID,
			); err != nil {
				return imported, fmt.Errorf("insert printing %s: %w", code, err)
			}
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return imported, fmt.Errorf("commit import: %w", err)
	}
	return imported, nil
}

// Passcode renders a card identity as the zero-padded 8-digit code
// printed on the card face.
func Passcode(id int64) string {
	return fmt.Sprintf("%08d", id)
}

// cardTypeKeyword collapses the dump's verbose type strings to the
// keyword family used for scoring: Spell, Trap, or Monster.
func cardTypeKeyword(dumpType string) string {
	lowered := strings.ToLower(dumpType)
	switch {
	case strings.Contains(lowered, "spell"):
		return "Spell"
	case strings.Contains(lowered, "trap"):
		return "Trap"
	case lowered == "":
		return ""
	default:
		return "Monster"
	}
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
