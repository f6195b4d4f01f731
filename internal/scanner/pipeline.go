package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cardkeep/internal/identify"
	"cardkeep/internal/logging"
)

// Status is the terminal state of one scan.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusAmbiguous Status = "ambiguous"
	StatusFailed    Status = "failed"
)

// FailureKind distinguishes why a scan failed.
type FailureKind string

const (
	FailureNoMatch               FailureKind = "no_match"
	FailureInvalidImage          FailureKind = "invalid_image"
	FailureInternalError         FailureKind = "internal_error"
	FailureDependencyUnavailable FailureKind = "dependency_unavailable"
)

// Outcome is the result of running the pipeline on one capture.
type Outcome struct {
	Status       Status
	Best         *identify.Candidate
	Choices      []identify.Candidate
	Reason       identify.AmbiguityReason
	Failure      FailureKind
	FailureCause string
	Observations identify.Observations
}

// StepFunc receives one step_complete notification with the stage
// name and diagnostic artifacts.
type StepFunc func(stage string, artifacts map[string]any)

// Matcher scores observations into ranked candidates.
type Matcher interface {
	Match(ctx context.Context, obs identify.Observations) ([]identify.Candidate, error)
}

// Pipeline runs one capture through preprocess, the active recognition
// tracks, the matcher, and the ambiguity policy. It holds no per-scan
// state; each Run is independent.
type Pipeline struct {
	tracks  []Track
	matcher Matcher
	policy  identify.Policy
	logger  *slog.Logger
}

// NewPipeline assembles a pipeline from its stages.
func NewPipeline(tracks []Track, matcher Matcher, policy identify.Policy, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{tracks: tracks, matcher: matcher, policy: policy, logger: logger}
}

// Run identifies one capture. Track faults degrade to partial
// observations; only a capture no track could read fails the scan.
func (p *Pipeline) Run(ctx context.Context, capture Capture, step StepFunc) Outcome {
	logger := p.logger.With(logging.String(logging.FieldRequestID, capture.RequestID))
	notify := step
	step = func(stage string, artifacts map[string]any) {
		logger.Debug("step complete", logging.String(logging.FieldStage, stage))
		if notify != nil {
			notify(stage, artifacts)
		}
	}

	if len(capture.Image) == 0 {
		return Outcome{Status: StatusFailed, Failure: FailureInvalidImage, FailureCause: "empty image"}
	}
	step("preprocess", map[string]any{"image_bytes": len(capture.Image)})

	obs := p.observe(ctx, capture, step, logger)
	if obs.Empty() {
		return Outcome{Status: StatusFailed, Failure: FailureNoMatch, FailureCause: "no track produced a signal", Observations: obs}
	}

	candidates, err := p.matcher.Match(ctx, obs)
	if err != nil {
		if errors.Is(err, identify.ErrNoObservations) {
			return Outcome{Status: StatusFailed, Failure: FailureNoMatch, FailureCause: err.Error(), Observations: obs}
		}
		return Outcome{Status: StatusFailed, Failure: FailureDependencyUnavailable, FailureCause: err.Error(), Observations: obs}
	}
	step("match", map[string]any{"candidates": len(candidates)})

	if len(candidates) == 0 {
		return Outcome{Status: StatusFailed, Failure: FailureNoMatch, FailureCause: "no candidate above minimum score", Observations: obs}
	}

	resolution, err := p.policy.Resolve(candidates)
	if err != nil {
		return Outcome{Status: StatusFailed, Failure: FailureInternalError, FailureCause: err.Error(), Observations: obs}
	}
	step("resolve", map[string]any{"matched": resolution.Matched, "reason": string(resolution.Reason)})

	if resolution.Matched {
		best := resolution.Best
		logger.Info("scan matched",
			logging.String("card", best.Card.Name),
			logging.String("set_code", best.Printing.SetCode),
			logging.Float64("score", best.Score))
		return Outcome{Status: StatusMatched, Best: &best, Observations: obs}
	}

	best := resolution.Best
	logger.Info("scan ambiguous",
		logging.String("reason", string(resolution.Reason)),
		logging.Int("choices", len(resolution.Choices)))
	return Outcome{
		Status:       StatusAmbiguous,
		Best:         &best,
		Choices:      resolution.Choices,
		Reason:       resolution.Reason,
		Observations: obs,
	}
}

// observe runs every track concurrently and merges their partial
// results in track registration order, so the merge is deterministic
// no matter which track finishes first.
func (p *Pipeline) observe(ctx context.Context, capture Capture, step StepFunc, logger *slog.Logger) identify.Observations {
	results := make([]identify.Observations, len(p.tracks))
	failures := make([]error, len(p.tracks))

	var wg sync.WaitGroup
	for i, track := range p.tracks {
		wg.Add(1)
		go func(i int, track Track) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					failures[i] = fmt.Errorf("track %s panicked: %v", track.Name(), r)
				}
			}()
			results[i], failures[i] = track.Observe(ctx, capture)
		}(i, track)
	}
	wg.Wait()

	var obs identify.Observations
	for i, track := range p.tracks {
		if failures[i] != nil {
			logger.Warn("recognition track failed",
				logging.String("track", track.Name()),
				logging.Error(failures[i]))
			step(track.Name(), map[string]any{"error": failures[i].Error()})
			continue
		}
		mergeObservations(&obs, results[i])
		step(track.Name(), trackArtifacts(results[i]))
	}
	return obs
}

func trackArtifacts(obs identify.Observations) map[string]any {
	artifacts := map[string]any{}
	if len(obs.SetCodes) > 0 {
		artifacts["set_codes"] = obs.SetCodes
	}
	if obs.Name != "" {
		artifacts["name"] = obs.Name
	}
	if obs.Passcode != "" {
		artifacts["passcode"] = obs.Passcode
	}
	if obs.ATK != nil {
		artifacts["atk"] = *obs.ATK
	}
	if obs.DEF != nil {
		artifacts["def"] = *obs.DEF
	}
	if obs.TypeKeyword != "" {
		artifacts["type"] = obs.TypeKeyword
	}
	if obs.Rarity != "" {
		artifacts["rarity"] = obs.Rarity
	}
	if len(obs.ArtEmbedding) > 0 {
		artifacts["embedding_dims"] = len(obs.ArtEmbedding)
	}
	return artifacts
}
