package identify

import (
	"sort"

	"cardkeep/internal/catalog"
)

// Factor names one scoring signal that contributed to a candidate.
type Factor string

const (
	FactorSetCodeExact      Factor = "set_code_exact"
	FactorSetCodeNormalized Factor = "set_code_normalized"
	FactorNameExact         Factor = "name_exact"
	FactorNamePartial       Factor = "name_partial"
	FactorPasscode          Factor = "passcode"
	FactorArtwork           Factor = "artwork"
	FactorTypeKeyword       Factor = "type_keyword"
	FactorStatATK           Factor = "stat_atk"
	FactorStatDEF           Factor = "stat_def"
	FactorVirtualPrinting   Factor = "virtual_printing"
)

// factorPoints are additive: each factor contributes its points once
// when its condition holds, never scaled against the others.
var factorPoints = map[Factor]float64{
	FactorSetCodeExact:      80,
	FactorSetCodeNormalized: 75,
	FactorNameExact:         50,
	FactorNamePartial:       25,
	FactorPasscode:          45,
	FactorArtwork:           40,
	FactorTypeKeyword:       10,
	FactorStatATK:           15,
	FactorStatDEF:           15,
	FactorVirtualPrinting:   12,
}

// Candidate is one scored (card, printing) pairing. Virtual marks a
// printing synthesized from a region-normalized code match that is not
// yet in the catalog; accepting one obligates the caller to persist it
// as a new printing.
type Candidate struct {
	Card     catalog.Card
	Printing catalog.Printing
	Virtual  bool
	Score    float64
	Factors  []Factor
}

// Observations is everything the recognition tracks extracted from one
// capture. Zero values mean the signal was not observed; pointer stats
// distinguish "not read" from an actual zero.
type Observations struct {
	// SetCodes holds the raw observed code plus any OCR-correction
	// alternates, most trusted first.
	SetCodes     []string
	Name         string
	Passcode     string
	TypeKeyword  string
	ATK          *int
	DEF          *int
	Rarity       string
	Language     string
	FirstEdition bool
	ArtEmbedding []float64
}

// Empty reports whether no track produced a usable signal.
func (o Observations) Empty() bool {
	return len(o.SetCodes) == 0 &&
		o.Name == "" &&
		o.Passcode == "" &&
		o.TypeKeyword == "" &&
		o.ATK == nil &&
		o.DEF == nil &&
		len(o.ArtEmbedding) == 0
}

// builder accumulates factors per (card, printing) pair so a factor is
// awarded at most once no matter how many observations trigger it.
type builder struct {
	card     catalog.Card
	printing catalog.Printing
	virtual  bool
	factors  map[Factor]struct{}
}

func (b *builder) award(factor Factor) {
	b.factors[factor] = struct{}{}
}

func (b *builder) has(factor Factor) bool {
	_, ok := b.factors[factor]
	return ok
}

func (b *builder) candidate() Candidate {
	factors := make([]Factor, 0, len(b.factors))
	score := 0.0
	for factor := range b.factors {
		factors = append(factors, factor)
		score += factorPoints[factor]
	}
	sort.Slice(factors, func(i, j int) bool {
		return factorPoints[factors[i]] > factorPoints[factors[j]] ||
			(factorPoints[factors[i]] == factorPoints[factors[j]] && factors[i] < factors[j])
	})
	return Candidate{
		Card:     b.card,
		Printing: b.printing,
		Virtual:  b.virtual,
		Score:    score,
		Factors:  factors,
	}
}
