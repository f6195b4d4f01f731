// Package identify turns recognition observations into ranked match
// candidates against the card catalog and decides whether the best
// candidate is safe to accept automatically. Scoring is additive over
// independent factors; the ambiguity policy downgrades a win to a
// user choice when the catalog cannot distinguish printings or the
// runner-up scores too close.
package identify
