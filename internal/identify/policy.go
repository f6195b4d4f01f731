package identify

import "errors"

// ErrNoCandidates rejects a resolve call on an empty ranked list;
// upstream reports that as a failed scan, not an ambiguity.
var ErrNoCandidates = errors.New("no candidates to resolve")

// AmbiguityReason distinguishes why an outcome needs a user choice.
type AmbiguityReason string

const (
	// ReasonDBAmbiguity means the catalog itself cannot tell the top
	// card's printings apart with the observations gathered.
	ReasonDBAmbiguity AmbiguityReason = "db_ambiguity"
	// ReasonMatchAmbiguity means the runner-up scored too close to
	// the winner.
	ReasonMatchAmbiguity AmbiguityReason = "match_ambiguity"
)

// Resolution is the policy verdict for one ranked candidate list.
type Resolution struct {
	Matched bool
	Best    Candidate
	Reason  AmbiguityReason
	// Choices carries the candidates a user should pick between when
	// the resolution is ambiguous.
	Choices []Candidate
}

// Policy decides whether a ranked list is safe to auto-accept.
//
// The threshold is a pure tradeoff knob: lowering it means fewer
// interruptions and a higher risk of silent misidentification.
type Policy struct {
	// AmbiguityThreshold is the minimum score gap between the top two
	// candidates for an automatic match.
	AmbiguityThreshold float64
}

// Resolve applies the ambiguity rules in order: indistinguishable
// printings of the winning card first, then the score gap to the
// runner-up.
func (p Policy) Resolve(ranked []Candidate) (Resolution, error) {
	if len(ranked) == 0 {
		return Resolution{}, ErrNoCandidates
	}
	threshold := p.AmbiguityThreshold
	if threshold <= 0 {
		threshold = 10.0
	}

	top := ranked[0]

	// Printings of the same card with identical scores carry identical
	// evidence; nothing observed so far can tell them apart.
	var siblings []Candidate
	for _, candidate := range ranked[1:] {
		if candidate.Card.ID == top.Card.ID && candidate.Score == top.Score {
			siblings = append(siblings, candidate)
		}
	}
	if len(siblings) > 0 {
		return Resolution{
			Best:    top,
			Reason:  ReasonDBAmbiguity,
			Choices: append([]Candidate{top}, siblings...),
		}, nil
	}

	if len(ranked) > 1 && top.Score-ranked[1].Score < threshold {
		return Resolution{
			Best:    top,
			Reason:  ReasonMatchAmbiguity,
			Choices: ranked,
		}, nil
	}

	return Resolution{Matched: true, Best: top}, nil
}
