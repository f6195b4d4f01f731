package scanner

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"cardkeep/internal/catalog"
	"cardkeep/internal/identify"
)

// Capture is one image submitted for identification.
type Capture struct {
	RequestID string
	Image     []byte
}

// TextResult is what a text recognizer extracted from a capture.
type TextResult struct {
	Lines []string
}

// TextRecognizer reads printed text off a card image. Implementations
// wrap an OCR engine; tests substitute canned results.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) (TextResult, error)
}

// ArtEmbedder produces an embedding vector for the artwork region of a
// card image, comparable against the catalog's art index.
type ArtEmbedder interface {
	EmbedArtwork(ctx context.Context, image []byte) ([]float64, error)
}

// Track is one independent recognition strategy. Each track returns
// the partial observations it could extract; the pipeline merges them.
// A track that sees nothing returns empty observations, not an error.
type Track interface {
	Name() string
	Observe(ctx context.Context, capture Capture) (identify.Observations, error)
}

const (
	TrackSetCode = "setcode"
	TrackName    = "name"
	TrackStats   = "stats"
	TrackArtwork = "artwork"
)

var (
	setCodeTokenPattern = regexp.MustCompile(`[A-Z0-9]{2,5}-[A-Z0-9]{1,5}`)
	atkPattern          = regexp.MustCompile(`(?i)ATK\s*[/:]?\s*(\d{1,4})`)
	defPattern          = regexp.MustCompile(`(?i)DEF\s*[/:]?\s*(\d{1,4})`)
	firstEditionPattern = regexp.MustCompile(`(?i)1st\s+edition`)
	passcodePattern     = regexp.MustCompile(`\b\d{8}\b`)
)

// rarityWords are checked longest phrase first so "ultra rare" is not
// shadowed by "rare".
var rarityWords = []string{
	"Quarter Century Secret Rare",
	"Starlight Rare",
	"Ghost Rare",
	"Prismatic Secret Rare",
	"Ultimate Rare",
	"Secret Rare",
	"Ultra Rare",
	"Super Rare",
	"Rare",
	"Common",
}

// SetCodeTrack extracts printed set codes, including OCR-correction
// alternates, plus the region language and the first-edition marker.
type SetCodeTrack struct {
	Recognizer TextRecognizer
}

func (t *SetCodeTrack) Name() string { return TrackSetCode }

func (t *SetCodeTrack) Observe(ctx context.Context, capture Capture) (identify.Observations, error) {
	text, err := t.Recognizer.RecognizeText(ctx, capture.Image)
	if err != nil {
		return identify.Observations{}, err
	}

	var obs identify.Observations
	seen := map[string]struct{}{}
	for _, line := range text.Lines {
		if firstEditionPattern.MatchString(line) {
			obs.FirstEdition = true
		}
		for _, token := range setCodeTokenPattern.FindAllString(strings.ToUpper(line), -1) {
			for _, code := range catalog.CorrectSetCode(token) {
				parts, ok := catalog.ParseSetCode(code)
				if !ok {
					continue
				}
				if _, dup := seen[code]; dup {
					continue
				}
				seen[code] = struct{}{}
				obs.SetCodes = append(obs.SetCodes, code)
				if obs.Language == "" && parts.Region != "" {
					if _, err := language.Parse(strings.ToLower(parts.Region)); err == nil {
						obs.Language = parts.Region
					}
				}
			}
		}
	}
	return obs, nil
}

// NameTrack guesses the card name from the topmost plausible text line
// and picks up a visually printed rarity word when one is legible.
type NameTrack struct {
	Recognizer TextRecognizer
}

func (t *NameTrack) Name() string { return TrackName }

func (t *NameTrack) Observe(ctx context.Context, capture Capture) (identify.Observations, error) {
	text, err := t.Recognizer.RecognizeText(ctx, capture.Image)
	if err != nil {
		return identify.Observations{}, err
	}

	var obs identify.Observations
	for _, line := range text.Lines {
		trimmed := strings.TrimSpace(line)
		if obs.Name == "" && plausibleName(trimmed) {
			obs.Name = trimmed
		}
		if obs.Rarity == "" {
			for _, rarity := range rarityWords {
				if strings.Contains(strings.ToLower(trimmed), strings.ToLower(rarity)) {
					obs.Rarity = rarity
					break
				}
			}
		}
	}
	return obs, nil
}

// plausibleName rejects lines that are clearly not a card name: set
// codes, stat lines, pure digits, or fragments too short to mean
// anything.
func plausibleName(line string) bool {
	if len(line) < 4 {
		return false
	}
	for _, token := range setCodeTokenPattern.FindAllString(strings.ToUpper(line), -1) {
		if _, ok := catalog.ParseSetCode(token); ok {
			return false
		}
	}
	if atkPattern.MatchString(line) || defPattern.MatchString(line) {
		return false
	}
	letters := 0
	for _, r := range line {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			letters++
		}
	}
	return letters >= 4
}

// StatsTrack reads the ATK/DEF line, the Spell/Trap type keyword, and
// the eight-digit passcode printed in the bottom corner.
type StatsTrack struct {
	Recognizer TextRecognizer
}

func (t *StatsTrack) Name() string { return TrackStats }

func (t *StatsTrack) Observe(ctx context.Context, capture Capture) (identify.Observations, error) {
	text, err := t.Recognizer.RecognizeText(ctx, capture.Image)
	if err != nil {
		return identify.Observations{}, err
	}

	var obs identify.Observations
	for _, line := range text.Lines {
		if obs.ATK == nil {
			if match := atkPattern.FindStringSubmatch(line); match != nil {
				if value, err := strconv.Atoi(match[1]); err == nil {
					obs.ATK = &value
				}
			}
		}
		if obs.DEF == nil {
			if match := defPattern.FindStringSubmatch(line); match != nil {
				if value, err := strconv.Atoi(match[1]); err == nil {
					obs.DEF = &value
				}
			}
		}
		if obs.Passcode == "" {
			if match := passcodePattern.FindString(line); match != "" {
				obs.Passcode = match
			}
		}
		if obs.TypeKeyword == "" {
			lower := strings.ToLower(line)
			switch {
			case strings.Contains(lower, "spell card"), strings.Contains(lower, "[spell"):
				obs.TypeKeyword = "Spell"
			case strings.Contains(lower, "trap card"), strings.Contains(lower, "[trap"):
				obs.TypeKeyword = "Trap"
			}
		}
	}
	return obs, nil
}

// ArtworkTrack embeds the artwork region for similarity search.
type ArtworkTrack struct {
	Embedder ArtEmbedder
}

func (t *ArtworkTrack) Name() string { return TrackArtwork }

func (t *ArtworkTrack) Observe(ctx context.Context, capture Capture) (identify.Observations, error) {
	embedding, err := t.Embedder.EmbedArtwork(ctx, capture.Image)
	if err != nil {
		return identify.Observations{}, err
	}
	return identify.Observations{ArtEmbedding: embedding}, nil
}

// mergeObservations folds one track's partial result into the
// aggregate. First writer wins for scalar fields so track order stays
// authoritative; set codes accumulate.
func mergeObservations(dst *identify.Observations, src identify.Observations) {
	seen := make(map[string]struct{}, len(dst.SetCodes))
	for _, code := range dst.SetCodes {
		seen[code] = struct{}{}
	}
	for _, code := range src.SetCodes {
		if _, dup := seen[code]; !dup {
			seen[code] = struct{}{}
			dst.SetCodes = append(dst.SetCodes, code)
		}
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Passcode == "" {
		dst.Passcode = src.Passcode
	}
	if dst.TypeKeyword == "" {
		dst.TypeKeyword = src.TypeKeyword
	}
	if dst.ATK == nil {
		dst.ATK = src.ATK
	}
	if dst.DEF == nil {
		dst.DEF = src.DEF
	}
	if dst.Rarity == "" {
		dst.Rarity = src.Rarity
	}
	if dst.Language == "" {
		dst.Language = src.Language
	}
	if src.FirstEdition {
		dst.FirstEdition = true
	}
	if len(dst.ArtEmbedding) == 0 {
		dst.ArtEmbedding = src.ArtEmbedding
	}
}
