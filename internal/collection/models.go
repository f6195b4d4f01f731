package collection

import (
	"strings"
	"time"
)

// Condition is the enumerated physical grade of a stock entry.
type Condition string

const (
	ConditionMint     Condition = "Mint"
	ConditionNearMint Condition = "Near Mint"
	ConditionPlayed   Condition = "Played"
	ConditionDamaged  Condition = "Damaged"
)

var conditionSet = map[Condition]struct{}{
	ConditionMint:     {},
	ConditionNearMint: {},
	ConditionPlayed:   {},
	ConditionDamaged:  {},
}

// ParseCondition converts a string into a known Condition.
func ParseCondition(value string) (Condition, bool) {
	trimmed := Condition(strings.TrimSpace(value))
	if trimmed == "" {
		return "", false
	}
	for known := range conditionSet {
		if strings.EqualFold(string(known), string(trimmed)) {
			return known, true
		}
	}
	return "", false
}

// StockEntry is one physical stack: identical cards stored together.
// Within one variant at most one entry exists per (condition,
// language, first-edition, storage) tuple.
type StockEntry struct {
	Condition     Condition `json:"condition"`
	Language      string    `json:"language"`
	FirstEdition  bool      `json:"first_edition"`
	Storage       string    `json:"storage,omitempty"`
	Quantity      int       `json:"quantity"`
	PurchasePrice float64   `json:"purchase_price,omitempty"`
}

// matches reports whether an entry occupies the given stack tuple.
func (e StockEntry) matches(condition Condition, language string, firstEdition bool, storage string) bool {
	return e.Condition == condition &&
		strings.EqualFold(e.Language, language) &&
		e.FirstEdition == firstEdition &&
		e.Storage == storage
}

// OwnedVariant groups stock of one specific printing.
type OwnedVariant struct {
	Key       string       `json:"key"`
	SetCode   string       `json:"set_code"`
	Rarity    string       `json:"rarity"`
	ArtworkID int64        `json:"artwork_id"`
	Entries   []StockEntry `json:"entries"`
}

// Quantity sums the stock across all entries of the variant.
func (v OwnedVariant) Quantity() int {
	total := 0
	for _, entry := range v.Entries {
		total += entry.Quantity
	}
	return total
}

// OwnedCard groups every variant of one catalog identity.
type OwnedCard struct {
	CardID   int64          `json:"card_id"`
	Name     string         `json:"name"`
	Variants []OwnedVariant `json:"variants"`
}

// Quantity sums the stock across all variants of the card.
func (c OwnedCard) Quantity() int {
	total := 0
	for _, variant := range c.Variants {
		total += variant.Quantity()
	}
	return total
}

// Collection is the root of one owned inventory.
type Collection struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Cards       []OwnedCard `json:"cards"`
	// UpdatedAt is the timestamp of the most recent mutation.
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// TotalQuantity sums stock over the whole tree.
func (c Collection) TotalQuantity() int {
	total := 0
	for _, card := range c.Cards {
		total += card.Quantity()
	}
	return total
}

// FindCard returns the owned card for a catalog identity, or nil.
func (c *Collection) FindCard(cardID int64) *OwnedCard {
	for i := range c.Cards {
		if c.Cards[i].CardID == cardID {
			return &c.Cards[i]
		}
	}
	return nil
}

// Clone deep-copies the collection tree.
func (c Collection) Clone() Collection {
	out := c
	out.Cards = make([]OwnedCard, len(c.Cards))
	for i, card := range c.Cards {
		cloned := card
		cloned.Variants = make([]OwnedVariant, len(card.Variants))
		for j, variant := range card.Variants {
			vc := variant
			vc.Entries = append([]StockEntry(nil), variant.Entries...)
			cloned.Variants[j] = vc
		}
		out.Cards[i] = cloned
	}
	return out
}
