package collection

import "errors"

var (
	// ErrInsufficientQuantity rejects removals exceeding available stock.
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	// ErrInvalidQuantity rejects non-positive deltas and negative targets.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrUnknownVariant rejects operations addressing stock that does not exist.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrNothingToUndo signals that no reverted state is recorded.
	ErrNothingToUndo = errors.New("nothing to undo")
)
