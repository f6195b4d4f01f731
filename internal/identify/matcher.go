package identify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cardkeep/internal/catalog"
	"cardkeep/internal/logging"
)

// ErrNoObservations rejects a match call with no usable signal.
var ErrNoObservations = errors.New("no usable observations")

// Catalog is the read surface the matcher needs. *catalog.Store
// satisfies it; tests substitute a fixture.
type Catalog interface {
	PrintingsBySetCode(ctx context.Context, code string) ([]catalog.Entry, error)
	PrintingsByNormalizedCode(ctx context.Context, code string) ([]catalog.Entry, error)
	SearchName(ctx context.Context, name string) ([]catalog.Card, error)
	CardByID(ctx context.Context, id int64) (*catalog.Card, error)
	CardByPasscode(ctx context.Context, passcode string) (*catalog.Card, error)
	ArtworkMatches(ctx context.Context, probe []float64, threshold float64) ([]catalog.ArtMatch, error)
}

// Matcher scores catalog printings against recognition observations.
type Matcher struct {
	catalog      Catalog
	artThreshold float64
	minScore     float64
	logger       *slog.Logger
}

// MatcherOptions tune the scoring cutoffs.
type MatcherOptions struct {
	// ArtMatchThreshold is the minimum cosine similarity for the
	// artwork factor to fire.
	ArtMatchThreshold float64
	// MinMatchScore excludes candidates scoring at or below it.
	MinMatchScore float64
	Logger        *slog.Logger
}

// NewMatcher builds a matcher over the given catalog surface.
func NewMatcher(cat Catalog, opts MatcherOptions) *Matcher {
	if opts.ArtMatchThreshold <= 0 {
		opts.ArtMatchThreshold = 0.42
	}
	if opts.MinMatchScore <= 0 {
		opts.MinMatchScore = 30
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{
		catalog:      cat,
		artThreshold: opts.ArtMatchThreshold,
		minScore:     opts.MinMatchScore,
		logger:       logger,
	}
}

// Match scores every catalog printing the observations implicate and
// returns them best first. Candidates scoring at or below the minimum
// are excluded outright. Ties order by card identity then printing key
// so repeated runs rank identically.
func (m *Matcher) Match(ctx context.Context, obs Observations) ([]Candidate, error) {
	if obs.Empty() {
		return nil, ErrNoObservations
	}

	pool := newCandidatePool()

	if err := m.matchSetCodes(ctx, obs, pool); err != nil {
		return nil, err
	}
	if err := m.matchName(ctx, obs, pool); err != nil {
		return nil, err
	}
	if err := m.matchPasscode(ctx, obs, pool); err != nil {
		return nil, err
	}
	if err := m.matchArtwork(ctx, obs, pool); err != nil {
		return nil, err
	}
	m.matchCardFacts(obs, pool)

	candidates := pool.finalize(m.minScore)
	m.logger.Debug("match complete",
		logging.Int("pool_size", pool.size()),
		logging.Int("candidates", len(candidates)))
	return candidates, nil
}

// matchSetCodes awards the exact and normalized code factors. When an
// observed code has no exact catalog printing but a different region
// of the same printing exists, a virtual candidate carrying the
// observed code verbatim is injected with a fixed bonus so the
// not-yet-catalogued localization outranks near-tied real printings.
func (m *Matcher) matchSetCodes(ctx context.Context, obs Observations, pool *candidatePool) error {
	for _, raw := range obs.SetCodes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" {
			continue
		}

		exact, err := m.catalog.PrintingsBySetCode(ctx, code)
		if err != nil {
			return fmt.Errorf("set code lookup %s: %w", code, err)
		}
		for _, entry := range exact {
			pool.get(entry.Card, entry.Printing, false).award(FactorSetCodeExact)
		}

		normalized, err := m.catalog.PrintingsByNormalizedCode(ctx, code)
		if err != nil {
			return fmt.Errorf("normalized code lookup %s: %w", code, err)
		}
		for _, entry := range normalized {
			if strings.EqualFold(entry.Printing.SetCode, code) {
				continue
			}
			pool.get(entry.Card, entry.Printing, false).award(FactorSetCodeNormalized)

			if len(exact) == 0 {
				virtual := entry.Printing
				virtual.SetCode = code
				b := pool.get(entry.Card, virtual, true)
				b.award(FactorSetCodeNormalized)
				b.award(FactorVirtualPrinting)
			}
		}
	}
	return nil
}

func (m *Matcher) matchName(ctx context.Context, obs Observations, pool *candidatePool) error {
	if strings.TrimSpace(obs.Name) == "" {
		return nil
	}
	observed := catalog.NormalizeName(obs.Name)
	if observed == "" {
		return nil
	}

	cards, err := m.catalog.SearchName(ctx, obs.Name)
	if err != nil {
		return fmt.Errorf("name search %q: %w", obs.Name, err)
	}
	for _, card := range cards {
		factor := FactorNamePartial
		if catalog.NormalizeName(card.Name) == observed {
			factor = FactorNameExact
		}
		for _, b := range pool.forCard(card) {
			b.awardName(factor)
		}
	}
	return nil
}

func (m *Matcher) matchPasscode(ctx context.Context, obs Observations, pool *candidatePool) error {
	passcode := strings.TrimSpace(obs.Passcode)
	if len(passcode) != 8 {
		return nil
	}
	card, err := m.catalog.CardByPasscode(ctx, passcode)
	if err != nil {
		return fmt.Errorf("passcode lookup %s: %w", passcode, err)
	}
	if card == nil {
		return nil
	}
	for _, b := range pool.forCard(*card) {
		b.award(FactorPasscode)
	}
	return nil
}

func (m *Matcher) matchArtwork(ctx context.Context, obs Observations, pool *candidatePool) error {
	if len(obs.ArtEmbedding) == 0 {
		return nil
	}
	matches, err := m.catalog.ArtworkMatches(ctx, obs.ArtEmbedding, m.artThreshold)
	if err != nil {
		return fmt.Errorf("artwork search: %w", err)
	}
	for _, match := range matches {
		existing := pool.forArtwork(match.CardID, match.ArtworkID)
		if len(existing) == 0 {
			card, err := m.catalog.CardByID(ctx, match.CardID)
			if err != nil {
				return fmt.Errorf("artwork card lookup %d: %w", match.CardID, err)
			}
			if card == nil {
				continue
			}
			for _, printing := range card.Printings {
				if printing.ArtworkID == match.ArtworkID {
					existing = append(existing, pool.get(*card, printing, false))
				}
			}
		}
		for _, b := range existing {
			b.award(FactorArtwork)
		}
	}
	return nil
}

// matchCardFacts awards the cheap cross-check factors against
// candidates already in the pool. These signals are too weak to seed a
// candidate on their own; alone they could never clear the minimum
// score.
func (m *Matcher) matchCardFacts(obs Observations, pool *candidatePool) {
	keyword := strings.TrimSpace(obs.TypeKeyword)
	for _, b := range pool.all() {
		if keyword != "" && strings.Contains(strings.ToLower(b.card.CardType), strings.ToLower(keyword)) {
			b.award(FactorTypeKeyword)
		}
		if obs.ATK != nil && b.card.ATK != nil && *obs.ATK == *b.card.ATK {
			b.award(FactorStatATK)
		}
		if obs.DEF != nil && b.card.DEF != nil && *obs.DEF == *b.card.DEF {
			b.award(FactorStatDEF)
		}
	}
}

// candidatePool deduplicates builders by (card, printing, virtual) and
// keeps insertion stable for deterministic iteration.
type candidatePool struct {
	byKey map[string]*builder
	order []*builder
}

func newCandidatePool() *candidatePool {
	return &candidatePool{byKey: make(map[string]*builder)}
}

func (p *candidatePool) get(card catalog.Card, printing catalog.Printing, virtual bool) *builder {
	key := fmt.Sprintf("%d|%s|%t", card.ID, printing.Key(), virtual)
	if b, ok := p.byKey[key]; ok {
		return b
	}
	b := &builder{card: card, printing: printing, virtual: virtual, factors: make(map[Factor]struct{})}
	p.byKey[key] = b
	p.order = append(p.order, b)
	return b
}

// forCard returns the builders for every printing of the card,
// seeding one per catalog printing when the card is not in the pool
// yet. Cards without printings get a single placeholder pairing.
func (p *candidatePool) forCard(card catalog.Card) []*builder {
	var existing []*builder
	for _, b := range p.order {
		if b.card.ID == card.ID {
			existing = append(existing, b)
		}
	}
	if len(existing) > 0 {
		return existing
	}

	if len(card.Printings) == 0 {
		return []*builder{p.get(card, catalog.Printing{}, false)}
	}
	seeded := make([]*builder, 0, len(card.Printings))
	for _, printing := range card.Printings {
		seeded = append(seeded, p.get(card, printing, false))
	}
	return seeded
}

func (p *candidatePool) forArtwork(cardID, artworkID int64) []*builder {
	var matched []*builder
	for _, b := range p.order {
		if b.card.ID == cardID && b.printing.ArtworkID == artworkID {
			matched = append(matched, b)
		}
	}
	return matched
}

func (p *candidatePool) all() []*builder {
	return p.order
}

func (p *candidatePool) size() int {
	return len(p.order)
}

func (p *candidatePool) finalize(minScore float64) []Candidate {
	candidates := make([]Candidate, 0, len(p.order))
	for _, b := range p.order {
		candidate := b.candidate()
		if candidate.Score <= minScore {
			continue
		}
		candidates = append(candidates, candidate)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Card.ID != candidates[j].Card.ID {
			return candidates[i].Card.ID < candidates[j].Card.ID
		}
		return candidates[i].Printing.Key() < candidates[j].Printing.Key()
	})
	return candidates
}

// awardName keeps exact and partial mutually exclusive with exact
// winning, no matter which observation arrived first.
func (b *builder) awardName(factor Factor) {
	if factor == FactorNameExact {
		delete(b.factors, FactorNamePartial)
		b.award(FactorNameExact)
		return
	}
	if !b.has(FactorNameExact) {
		b.award(FactorNamePartial)
	}
}
