package collection

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// VariantKey derives the identity of an owned variant from the logical
// printing it represents. The derivation is a pure function: identical
// inputs always produce the identical key, so repeated scans of the
// same printing converge on one variant instead of fragmenting.
// Artwork identity participates so alternate-art printings sharing a
// set code and rarity stay distinct.
func VariantKey(cardID int64, setCode, rarity string, artworkID int64) string {
	canonical := fmt.Sprintf("%d|%s|%s|%d",
		cardID,
		strings.ToUpper(strings.TrimSpace(setCode)),
		strings.ToLower(strings.TrimSpace(rarity)),
		artworkID,
	)
	sum := sha1.Sum([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
