package identify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cardkeep/internal/catalog"
	"cardkeep/internal/identify"
)

// fixtureCatalog serves a handful of cards from memory so matcher
// tests need no database.
type fixtureCatalog struct {
	cards []catalog.Card
	art   map[int64][]float64 // artworkID -> embedding
}

func (f *fixtureCatalog) PrintingsBySetCode(_ context.Context, code string) ([]catalog.Entry, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var entries []catalog.Entry
	for _, card := range f.cards {
		for _, printing := range card.Printings {
			if printing.SetCode == code {
				entries = append(entries, catalog.Entry{Card: card, Printing: printing})
			}
		}
	}
	return entries, nil
}

func (f *fixtureCatalog) PrintingsByNormalizedCode(_ context.Context, code string) ([]catalog.Entry, error) {
	normalized := catalog.NormalizeSetCode(code)
	var entries []catalog.Entry
	for _, card := range f.cards {
		for _, printing := range card.Printings {
			if catalog.NormalizeSetCode(printing.SetCode) == normalized {
				entries = append(entries, catalog.Entry{Card: card, Printing: printing})
			}
		}
	}
	return entries, nil
}

func (f *fixtureCatalog) SearchName(_ context.Context, name string) ([]catalog.Card, error) {
	normalized := catalog.NormalizeName(name)
	var matched []catalog.Card
	for _, card := range f.cards {
		if strings.Contains(catalog.NormalizeName(card.Name), normalized) {
			matched = append(matched, card)
		}
	}
	return matched, nil
}

func (f *fixtureCatalog) CardByID(_ context.Context, id int64) (*catalog.Card, error) {
	for _, card := range f.cards {
		if card.ID == id {
			c := card
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fixtureCatalog) CardByPasscode(_ context.Context, passcode string) (*catalog.Card, error) {
	for _, card := range f.cards {
		if card.Passcode == passcode {
			c := card
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fixtureCatalog) ArtworkMatches(_ context.Context, probe []float64, threshold float64) ([]catalog.ArtMatch, error) {
	var matches []catalog.ArtMatch
	for _, card := range f.cards {
		for _, printing := range card.Printings {
			embedding, ok := f.art[printing.ArtworkID]
			if !ok {
				continue
			}
			if sim := catalog.CosineSimilarity(probe, embedding); sim >= threshold {
				matches = append(matches, catalog.ArtMatch{CardID: card.ID, ArtworkID: printing.ArtworkID, Similarity: sim})
			}
		}
	}
	return matches, nil
}

func intPtr(v int) *int { return &v }

func testCatalog() *fixtureCatalog {
	return &fixtureCatalog{
		cards: []catalog.Card{
			{
				ID:       89631139,
				Name:     "Blue-Eyes White Dragon",
				Passcode: "89631139",
				CardType: "Normal Monster",
				ATK:      intPtr(3000),
				DEF:      intPtr(2500),
				Printings: []catalog.Printing{
					{SetCode: "LOB-EN001", Rarity: "Ultra Rare", ArtworkID: 1},
					{SetCode: "SDK-001", Rarity: "Ultra Rare", ArtworkID: 1},
				},
			},
			{
				ID:       46986414,
				Name:     "Dark Magician",
				Passcode: "46986414",
				CardType: "Normal Monster",
				ATK:      intPtr(2500),
				DEF:      intPtr(2100),
				Printings: []catalog.Printing{
					{SetCode: "LOB-EN005", Rarity: "Ultra Rare", ArtworkID: 2},
					{SetCode: "LOB-EN005", Rarity: "Secret Rare", ArtworkID: 2},
				},
			},
			{
				ID:       44095762,
				Name:     "Mirror Force",
				Passcode: "44095762",
				CardType: "Normal Trap",
				Printings: []catalog.Printing{
					{SetCode: "MRD-EN138", Rarity: "Ultra Rare", ArtworkID: 3},
				},
			},
		},
		art: map[int64][]float64{
			1: {1, 0, 0},
			2: {0, 1, 0},
			3: {0, 0, 1},
		},
	}
}

func newTestMatcher(t *testing.T) *identify.Matcher {
	t.Helper()
	return identify.NewMatcher(testCatalog(), identify.MatcherOptions{})
}

func TestExactCodeAndExactNameScore(t *testing.T) {
	matcher := newTestMatcher(t)
	candidates, err := matcher.Match(context.Background(), identify.Observations{
		SetCodes: []string{"LOB-EN001"},
		Name:     "Blue-Eyes White Dragon",
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}
	top := candidates[0]
	if top.Card.ID != 89631139 || top.Printing.SetCode != "LOB-EN001" {
		t.Fatalf("unexpected top candidate: %+v", top)
	}
	if top.Score != 130 {
		t.Fatalf("expected score 130 (exact code 80 + exact name 50), got %.1f", top.Score)
	}
	if top.Virtual {
		t.Fatal("exact catalog printing must not be virtual")
	}
}

func TestNormalizedCodeInjectsVirtualCandidate(t *testing.T) {
	matcher := newTestMatcher(t)
	candidates, err := matcher.Match(context.Background(), identify.Observations{
		SetCodes: []string{"MRD-DE138"},
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(candidates) < 2 {
		t.Fatalf("expected virtual and real candidates, got %d", len(candidates))
	}

	top := candidates[0]
	if !top.Virtual {
		t.Fatalf("expected virtual candidate on top, got %+v", top)
	}
	if top.Printing.SetCode != "MRD-DE138" {
		t.Fatalf("virtual candidate must carry the observed code verbatim, got %q", top.Printing.SetCode)
	}
	if top.Score != 87 {
		t.Fatalf("expected score 87 (normalized 75 + virtual 12), got %.1f", top.Score)
	}

	real := candidates[1]
	if real.Virtual || real.Printing.SetCode != "MRD-EN138" {
		t.Fatalf("expected catalogued printing second, got %+v", real)
	}
	if real.Score != 75 {
		t.Fatalf("expected real normalized match at 75, got %.1f", real.Score)
	}
}

func TestExactCodePreventsVirtualInjection(t *testing.T) {
	matcher := newTestMatcher(t)
	candidates, err := matcher.Match(context.Background(), identify.Observations{
		SetCodes: []string{"MRD-EN138"},
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	for _, candidate := range candidates {
		if candidate.Virtual {
			t.Fatalf("no virtual candidate expected when the code exists, got %+v", candidate)
		}
	}
}

func TestWeakSignalsExcludedByMinimumScore(t *testing.T) {
	matcher := newTestMatcher(t)
	// A partial name alone scores 25, at or below the cutoff of 30.
	candidates, err := matcher.Match(context.Background(), identify.Observations{
		Name: "Blue-Eyes",
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected weak candidates excluded, got %+v", candidates)
	}
}

func TestPasscodeSeedsAndStatsBoost(t *testing.T) {
	matcher := newTestMatcher(t)
	candidates, err := matcher.Match(context.Background(), identify.Observations{
		Passcode: "89631139",
		ATK:      intPtr(3000),
		DEF:      intPtr(2500),
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected a candidate per printing, got %d", len(candidates))
	}
	for _, candidate := range candidates {
		if candidate.Score != 75 {
			t.Fatalf("expected 75 (passcode 45 + two stats 15 each), got %.1f for %+v", candidate.Score, candidate)
		}
	}
}

func TestStatFactorAwardedOnceEach(t *testing.T) {
	matcher := newTestMatcher(t)
	candidates, err := matcher.Match(context.Background(), identify.Observations{
		SetCodes: []string{"LOB-EN001", "LOB-EN001"},
		ATK:      intPtr(3000),
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	top := candidates[0]
	if top.Score != 95 {
		t.Fatalf("duplicate observations must not double-award, got %.1f", top.Score)
	}
}

func TestTypeKeywordBoost(t *testing.T) {
	matcher := newTestMatcher(t)
	candidates, err := matcher.Match(context.Background(), identify.Observations{
		SetCodes:    []string{"MRD-EN138"},
		TypeKeyword: "Trap",
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if candidates[0].Score != 90 {
		t.Fatalf("expected 90 (exact code 80 + type keyword 10), got %.1f", candidates[0].Score)
	}
}

func TestArtworkAloneSeedsCandidate(t *testing.T) {
	matcher := newTestMatcher(t)
	candidates, err := matcher.Match(context.Background(), identify.Observations{
		ArtEmbedding: []float64{0.99, 0.1, 0},
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("expected artwork-seeded candidates")
	}
	top := candidates[0]
	if top.Card.ID != 89631139 || top.Score != 40 {
		t.Fatalf("expected artwork match at 40, got %+v", top)
	}
}

func scoreFor(t *testing.T, matcher *identify.Matcher, obs identify.Observations, cardID int64, setCode string) float64 {
	t.Helper()
	candidates, err := matcher.Match(context.Background(), obs)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	for _, candidate := range candidates {
		if candidate.Card.ID == cardID && candidate.Printing.SetCode == setCode {
			return candidate.Score
		}
	}
	t.Fatalf("no candidate for card %d printing %s", cardID, setCode)
	return 0
}

func TestAddingSignalsNeverLowersScore(t *testing.T) {
	matcher := newTestMatcher(t)
	baseObs := func() identify.Observations {
		return identify.Observations{SetCodes: []string{"LOB-EN001"}}
	}
	baseScore := scoreFor(t, matcher, baseObs(), 89631139, "LOB-EN001")

	cases := []struct {
		name string
		add  func(obs *identify.Observations)
	}{
		{"exact name", func(o *identify.Observations) { o.Name = "Blue-Eyes White Dragon" }},
		{"passcode", func(o *identify.Observations) { o.Passcode = "89631139" }},
		{"type keyword", func(o *identify.Observations) { o.TypeKeyword = "Monster" }},
		{"atk", func(o *identify.Observations) { o.ATK = intPtr(3000) }},
		{"def", func(o *identify.Observations) { o.DEF = intPtr(2500) }},
		{"artwork", func(o *identify.Observations) { o.ArtEmbedding = []float64{1, 0, 0} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := baseObs()
			tc.add(&obs)
			score := scoreFor(t, matcher, obs, 89631139, "LOB-EN001")
			if score < baseScore {
				t.Fatalf("adding %s lowered the score: %.1f < %.1f", tc.name, score, baseScore)
			}
		})
	}
}

func TestEmptyObservationsRejected(t *testing.T) {
	matcher := newTestMatcher(t)
	if _, err := matcher.Match(context.Background(), identify.Observations{}); !errors.Is(err, identify.ErrNoObservations) {
		t.Fatalf("expected ErrNoObservations, got %v", err)
	}
}

func TestRankingIsDeterministic(t *testing.T) {
	matcher := newTestMatcher(t)
	obs := identify.Observations{SetCodes: []string{"LOB-EN005"}}

	first, err := matcher.Match(context.Background(), obs)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	second, err := matcher.Match(context.Background(), obs)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("ranking length changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Printing.Key() != second[i].Printing.Key() {
			t.Fatalf("ranking order changed at %d: %q vs %q", i, first[i].Printing.Key(), second[i].Printing.Key())
		}
	}
}
