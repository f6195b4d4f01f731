package collection

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Mode selects how a change applies its quantity.
type Mode int

const (
	// ModeAdd increments the matching stock entry by the quantity.
	ModeAdd Mode = iota
	// ModeRemove decrements and fails when stock is insufficient.
	ModeRemove
	// ModeSet overwrites the quantity; zero deletes the entry.
	ModeSet
)

func (m Mode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeRemove:
		return "remove"
	case ModeSet:
		return "set"
	default:
		return "unknown"
	}
}

// Attributes carry the printing and stack tuple a change addresses.
type Attributes struct {
	SetCode       string
	Rarity        string
	ArtworkID     int64
	Condition     Condition
	Language      string
	FirstEdition  bool
	Storage       string
	PurchasePrice float64
}

// Change is one mutation request against a collection.
type Change struct {
	CardID   int64
	CardName string
	// VariantKey may be supplied directly; when empty it is derived
	// from the printing attributes.
	VariantKey string
	Attributes Attributes
	Quantity   int
	Mode       Mode
}

// Editor is the sole authority for mutating a collection. All writers
// serialize behind its lock; readers either take a Snapshot or accept
// serializing too.
type Editor struct {
	mu  sync.Mutex
	col *Collection
}

// NewEditor wraps a collection in its authorized mutator. The caller
// must not modify the collection directly afterwards.
func NewEditor(col *Collection) *Editor {
	if col == nil {
		col = &Collection{}
	}
	return &Editor{col: col}
}

// Snapshot returns a deep copy safe for concurrent readers.
func (e *Editor) Snapshot() Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.col.Clone()
}

// Apply validates and applies a single change.
func (e *Editor) Apply(change Change) error {
	return e.ApplyBatch([]Change{change})
}

// ApplyBatch applies a group of changes as one step. Every change is
// validated against the tree state it would see before any of them is
// applied permanently; a failure leaves the collection untouched.
func (e *Editor) ApplyBatch(changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	prior := e.col.Clone()
	for _, change := range changes {
		if err := applyChange(e.col, change); err != nil {
			*e.col = prior
			return err
		}
	}
	e.col.UpdatedAt = time.Now().UTC()
	return nil
}

// Move transfers quantity between storage locations as one atomic
// step: the removal is validated before either half applies, so a
// failed move leaves the collection unchanged.
func (e *Editor) Move(change Change, fromStorage, toStorage string) error {
	remove := change
	remove.Mode = ModeRemove
	remove.Attributes.Storage = fromStorage

	add := change
	add.Mode = ModeAdd
	add.Attributes.Storage = toStorage

	return e.ApplyBatch([]Change{remove, add})
}

// Replace swaps the collection content wholesale (load/commit paths).
func (e *Editor) Replace(col Collection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	*e.col = col
}

func applyChange(col *Collection, change Change) error {
	if change.CardID == 0 {
		return fmt.Errorf("change requires a catalog identity")
	}
	switch change.Mode {
	case ModeAdd, ModeRemove:
		if change.Quantity <= 0 {
			return fmt.Errorf("%w: %s requires a positive quantity, got %d", ErrInvalidQuantity, change.Mode, change.Quantity)
		}
	case ModeSet:
		if change.Quantity < 0 {
			return fmt.Errorf("%w: set requires a non-negative quantity, got %d", ErrInvalidQuantity, change.Quantity)
		}
	default:
		return fmt.Errorf("unsupported mode %d", change.Mode)
	}

	key := strings.TrimSpace(change.VariantKey)
	if key == "" {
		key = VariantKey(change.CardID, change.Attributes.SetCode, change.Attributes.Rarity, change.Attributes.ArtworkID)
	}

	card := col.FindCard(change.CardID)
	variant := findVariant(card, key)
	entryIdx := findEntry(variant, change.Attributes)

	current := 0
	if entryIdx >= 0 {
		current = variant.Entries[entryIdx].Quantity
	}

	target := 0
	switch change.Mode {
	case ModeAdd:
		target = current + change.Quantity
	case ModeRemove:
		if variant == nil || entryIdx < 0 {
			return fmt.Errorf("%w: no stock for card %d variant %s", ErrUnknownVariant, change.CardID, key)
		}
		if change.Quantity > current {
			return fmt.Errorf("%w: have %d, remove %d", ErrInsufficientQuantity, current, change.Quantity)
		}
		target = current - change.Quantity
	case ModeSet:
		target = change.Quantity
	}

	if target == 0 {
		if variant != nil && entryIdx >= 0 {
			variant.Entries = append(variant.Entries[:entryIdx], variant.Entries[entryIdx+1:]...)
			prune(col, change.CardID, key)
		}
		return nil
	}

	if card == nil {
		col.Cards = append(col.Cards, OwnedCard{CardID: change.CardID, Name: change.CardName})
		card = &col.Cards[len(col.Cards)-1]
	}
	if change.CardName != "" && card.Name == "" {
		card.Name = change.CardName
	}
	if variant == nil {
		card.Variants = append(card.Variants, OwnedVariant{
			Key:       key,
			SetCode:   strings.ToUpper(strings.TrimSpace(change.Attributes.SetCode)),
			Rarity:    change.Attributes.Rarity,
			ArtworkID: change.Attributes.ArtworkID,
		})
		variant = &card.Variants[len(card.Variants)-1]
		entryIdx = -1
	}
	if entryIdx < 0 {
		variant.Entries = append(variant.Entries, StockEntry{
			Condition:     change.Attributes.Condition,
			Language:      strings.ToUpper(strings.TrimSpace(change.Attributes.Language)),
			FirstEdition:  change.Attributes.FirstEdition,
			Storage:       change.Attributes.Storage,
			PurchasePrice: change.Attributes.PurchasePrice,
		})
		entryIdx = len(variant.Entries) - 1
	}
	variant.Entries[entryIdx].Quantity = target
	return nil
}

func findVariant(card *OwnedCard, key string) *OwnedVariant {
	if card == nil {
		return nil
	}
	for i := range card.Variants {
		if card.Variants[i].Key == key {
			return &card.Variants[i]
		}
	}
	return nil
}

func findEntry(variant *OwnedVariant, attrs Attributes) int {
	if variant == nil {
		return -1
	}
	for i, entry := range variant.Entries {
		if entry.matches(attrs.Condition, strings.ToUpper(strings.TrimSpace(attrs.Language)), attrs.FirstEdition, attrs.Storage) {
			return i
		}
	}
	return -1
}

// prune removes a variant left without entries and a card left without
// variants so the tree never carries empty nodes.
func prune(col *Collection, cardID int64, variantKey string) {
	card := col.FindCard(cardID)
	if card == nil {
		return
	}
	for i := range card.Variants {
		if card.Variants[i].Key == variantKey && len(card.Variants[i].Entries) == 0 {
			card.Variants = append(card.Variants[:i], card.Variants[i+1:]...)
			break
		}
	}
	if len(card.Variants) != 0 {
		return
	}
	for i := range col.Cards {
		if col.Cards[i].CardID == cardID {
			col.Cards = append(col.Cards[:i], col.Cards[i+1:]...)
			return
		}
	}
}
