package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// IndexArtwork stores the embedding vector for one artwork.
func (s *Store) IndexArtwork(ctx context.Context, cardID, artworkID int64, embedding []float64) error {
	if len(embedding) == 0 {
		return fmt.Errorf("index artwork: empty embedding for card %d artwork %d", cardID, artworkID)
	}
	encoded, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO art_index (card_id, artwork_id, embedding) VALUES (?, ?, ?)`,
		cardID,
		artworkID,
		string(encoded),
	)
	if err != nil {
		return fmt.Errorf("index artwork: %w", err)
	}
	return nil
}

// ArtworkMatches returns indexed artworks whose cosine similarity to
// the probe meets the threshold, best first.
func (s *Store) ArtworkMatches(ctx context.Context, probe []float64, threshold float64) ([]ArtMatch, error) {
	if len(probe) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT card_id, artwork_id, embedding FROM art_index`)
	if err != nil {
		return nil, fmt.Errorf("query art index: %w", err)
	}
	defer rows.Close()

	var matches []ArtMatch
	for rows.Next() {
		var (
			cardID    int64
			artworkID int64
			encoded   string
		)
		if err := rows.Scan(&cardID, &artworkID, &encoded); err != nil {
			return nil, err
		}
		var embedding []float64
		if err := json.Unmarshal([]byte(encoded), &embedding); err != nil {
			return nil, fmt.Errorf("decode embedding for card %d artwork %d: %w", cardID, artworkID, err)
		}
		similarity := CosineSimilarity(probe, embedding)
		if similarity >= threshold {
			matches = append(matches, ArtMatch{CardID: cardID, ArtworkID: artworkID, Similarity: similarity})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if matches[i].CardID != matches[j].CardID {
			return matches[i].CardID < matches[j].CardID
		}
		return matches[i].ArtworkID < matches[j].ArtworkID
	})
	return matches, nil
}

// CosineSimilarity computes the cosine of the angle between two
// vectors. Mismatched lengths or zero vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
