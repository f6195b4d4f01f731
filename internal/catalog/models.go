package catalog

import (
	"fmt"
	"strings"
)

// Printing is one specific published version of a card.
type Printing struct {
	SetCode   string
	Rarity    string
	ArtworkID int64
}

// Key returns a stable identifier for ordering and deduplication.
func (p Printing) Key() string {
	return fmt.Sprintf("%s|%s|%d", strings.ToUpper(p.SetCode), strings.ToLower(p.Rarity), p.ArtworkID)
}

// Card is an immutable reference entity loaded from the catalog dump.
type Card struct {
	ID        int64
	Name      string
	Passcode  string
	CardType  string
	Attribute string
	Race      string
	ATK       *int
	DEF       *int
	Level     *int
	Printings []Printing
}

// Entry pairs a card with one of its printings.
type Entry struct {
	Card     Card
	Printing Printing
}

// ArtMatch reports an artwork embedding similarity hit.
type ArtMatch struct {
	CardID     int64
	ArtworkID  int64
	Similarity float64
}
