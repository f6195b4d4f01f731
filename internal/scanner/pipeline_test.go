package scanner

import (
	"context"
	"errors"
	"testing"

	"cardkeep/internal/catalog"
	"cardkeep/internal/identify"
)

type stubTrack struct {
	name string
	obs  identify.Observations
	err  error
}

func (s stubTrack) Name() string { return s.name }

func (s stubTrack) Observe(context.Context, Capture) (identify.Observations, error) {
	return s.obs, s.err
}

type stubMatcher struct {
	candidates []identify.Candidate
	err        error
}

func (s stubMatcher) Match(context.Context, identify.Observations) ([]identify.Candidate, error) {
	return s.candidates, s.err
}

func mkCandidate(cardID int64, name, setCode string, score float64, virtual bool) identify.Candidate {
	return identify.Candidate{
		Card:     catalog.Card{ID: cardID, Name: name},
		Printing: catalog.Printing{SetCode: setCode, Rarity: "Ultra Rare", ArtworkID: 1},
		Score:    score,
		Virtual:  virtual,
	}
}

func TestPipelineRejectsEmptyImage(t *testing.T) {
	pipeline := NewPipeline(nil, stubMatcher{}, identify.Policy{}, nil)
	outcome := pipeline.Run(context.Background(), Capture{RequestID: "r1"}, nil)
	if outcome.Status != StatusFailed || outcome.Failure != FailureInvalidImage {
		t.Fatalf("expected invalid_image failure, got %+v", outcome)
	}
}

func TestPipelineNoSignalsFailsWithNoMatch(t *testing.T) {
	tracks := []Track{stubTrack{name: TrackSetCode}}
	pipeline := NewPipeline(tracks, stubMatcher{}, identify.Policy{}, nil)
	outcome := pipeline.Run(context.Background(), Capture{RequestID: "r1", Image: []byte("img")}, nil)
	if outcome.Status != StatusFailed || outcome.Failure != FailureNoMatch {
		t.Fatalf("expected no_match failure, got %+v", outcome)
	}
}

func TestPipelineMatchedEmitsStepsInOrder(t *testing.T) {
	tracks := []Track{
		stubTrack{name: TrackSetCode, obs: identify.Observations{SetCodes: []string{"LOB-EN001"}}},
		stubTrack{name: TrackName, obs: identify.Observations{Name: "Blue-Eyes White Dragon"}},
	}
	matcher := stubMatcher{candidates: []identify.Candidate{
		mkCandidate(89631139, "Blue-Eyes White Dragon", "LOB-EN001", 130, false),
	}}
	pipeline := NewPipeline(tracks, matcher, identify.Policy{AmbiguityThreshold: 10}, nil)

	var stages []string
	outcome := pipeline.Run(context.Background(), Capture{RequestID: "r1", Image: []byte("img")}, func(stage string, _ map[string]any) {
		stages = append(stages, stage)
	})

	if outcome.Status != StatusMatched {
		t.Fatalf("expected matched outcome, got %+v", outcome)
	}
	expected := []string{"preprocess", TrackSetCode, TrackName, "match", "resolve"}
	if len(stages) != len(expected) {
		t.Fatalf("expected stages %v, got %v", expected, stages)
	}
	for i := range expected {
		if stages[i] != expected[i] {
			t.Fatalf("stage %d: expected %q, got %q", i, expected[i], stages[i])
		}
	}
}

func TestPipelineTrackFailureDegradesToPartialObservations(t *testing.T) {
	tracks := []Track{
		stubTrack{name: TrackArtwork, err: errors.New("embedder offline")},
		stubTrack{name: TrackSetCode, obs: identify.Observations{SetCodes: []string{"LOB-EN001"}}},
	}
	matcher := stubMatcher{candidates: []identify.Candidate{
		mkCandidate(89631139, "Blue-Eyes White Dragon", "LOB-EN001", 80, false),
	}}
	pipeline := NewPipeline(tracks, matcher, identify.Policy{AmbiguityThreshold: 10}, nil)

	outcome := pipeline.Run(context.Background(), Capture{RequestID: "r1", Image: []byte("img")}, nil)
	if outcome.Status != StatusMatched {
		t.Fatalf("one dead track must not fail the scan, got %+v", outcome)
	}
}

func TestPipelineAmbiguousCarriesChoices(t *testing.T) {
	tracks := []Track{stubTrack{name: TrackSetCode, obs: identify.Observations{SetCodes: []string{"LOB-EN005"}}}}
	matcher := stubMatcher{candidates: []identify.Candidate{
		mkCandidate(46986414, "Dark Magician", "LOB-EN005", 85, false),
		mkCandidate(89631139, "Blue-Eyes White Dragon", "LOB-EN001", 80, false),
	}}
	pipeline := NewPipeline(tracks, matcher, identify.Policy{AmbiguityThreshold: 10}, nil)

	outcome := pipeline.Run(context.Background(), Capture{RequestID: "r1", Image: []byte("img")}, nil)
	if outcome.Status != StatusAmbiguous {
		t.Fatalf("expected ambiguous outcome, got %+v", outcome)
	}
	if outcome.Reason != identify.ReasonMatchAmbiguity {
		t.Fatalf("expected match_ambiguity, got %q", outcome.Reason)
	}
	if len(outcome.Choices) != 2 {
		t.Fatalf("expected both candidates offered, got %d", len(outcome.Choices))
	}
}

func TestPipelineNoCandidatesFailsWithNoMatch(t *testing.T) {
	tracks := []Track{stubTrack{name: TrackName, obs: identify.Observations{Name: "Blue"}}}
	pipeline := NewPipeline(tracks, stubMatcher{}, identify.Policy{}, nil)

	outcome := pipeline.Run(context.Background(), Capture{RequestID: "r1", Image: []byte("img")}, nil)
	if outcome.Status != StatusFailed || outcome.Failure != FailureNoMatch {
		t.Fatalf("expected no_match failure, got %+v", outcome)
	}
}
