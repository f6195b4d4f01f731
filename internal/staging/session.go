package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cardkeep/internal/collection"
	"cardkeep/internal/logging"
)

// ErrNothingStaged rejects a commit when the staging collection is empty.
var ErrNothingStaged = errors.New("nothing staged")

// Session pairs a staging collection with its target. Scan results and
// manual edits land in staging first; Commit replays them into the
// target and clears staging. Both collections mutate only through
// their editors, and every mutation records an undo snapshot so the
// most recent change on either side can be reverted once.
type Session struct {
	name        string
	targetPath  string
	stagingPath string
	undoPath    string

	target  *collection.Editor
	staging *collection.Editor
	logger  *slog.Logger
}

// undoRecord is the persisted single-step undo state. Side names which
// collection the snapshot belongs to; the record is overwritten on
// every mutation, so restoring it always reverts the latest change.
type undoRecord struct {
	Side       string                `json:"side"`
	Prior      collection.Collection `json:"prior"`
	RecordedAt time.Time             `json:"recorded_at"`
}

const (
	sideStaging = "staging"
	sideTarget  = "target"
)

// Open loads the target and staging collections for name. Missing
// files start empty, so a fresh session needs no setup step.
func Open(collectionsDir, stagingDir, name string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	targetPath := collection.FilePath(collectionsDir, name)
	stagingPath := collection.FilePath(stagingDir, name)

	target, err := collection.Load(targetPath)
	if err != nil {
		return nil, fmt.Errorf("open target collection: %w", err)
	}
	staged, err := collection.Load(stagingPath)
	if err != nil {
		return nil, fmt.Errorf("open staging collection: %w", err)
	}

	return &Session{
		name:        name,
		targetPath:  targetPath,
		stagingPath: stagingPath,
		undoPath:    filepath.Join(stagingDir, name+".undo.json"),
		target:      collection.NewEditor(target),
		staging:     collection.NewEditor(staged),
		logger:      logger.With(logging.String(logging.FieldCollection, name)),
	}, nil
}

// Name returns the collection name the session operates on.
func (s *Session) Name() string { return s.name }

// StagingSnapshot returns a deep copy of the staged collection.
func (s *Session) StagingSnapshot() collection.Collection { return s.staging.Snapshot() }

// TargetSnapshot returns a deep copy of the target collection.
func (s *Session) TargetSnapshot() collection.Collection { return s.target.Snapshot() }

// Stage applies changes to the staging collection as one undoable step
// and persists the result.
func (s *Session) Stage(changes ...collection.Change) error {
	return s.mutate(s.staging, s.stagingPath, sideStaging, changes)
}

// MutateTarget applies changes directly to the target collection,
// bypassing staging, as one undoable step.
func (s *Session) MutateTarget(changes ...collection.Change) error {
	return s.mutate(s.target, s.targetPath, sideTarget, changes)
}

// MoveTarget transfers quantity between storage locations in the
// target collection. The removal and the addition apply together or
// not at all.
func (s *Session) MoveTarget(change collection.Change, fromStorage, toStorage string) error {
	remove := change
	remove.Mode = collection.ModeRemove
	remove.Attributes.Storage = fromStorage

	add := change
	add.Mode = collection.ModeAdd
	add.Attributes.Storage = toStorage

	return s.MutateTarget(remove, add)
}

func (s *Session) mutate(editor *collection.Editor, path, side string, changes []collection.Change) error {
	if len(changes) == 0 {
		return nil
	}
	prior := editor.Snapshot()
	if err := editor.ApplyBatch(changes); err != nil {
		return err
	}
	if err := collection.Save(path, editor.Snapshot()); err != nil {
		editor.Replace(prior)
		return err
	}
	if err := s.writeUndo(side, prior); err != nil {
		s.logger.Warn("undo snapshot not recorded", logging.Error(err))
	}
	return nil
}

// Undo reverts the most recent mutation across both collections: the
// persisted snapshot always belongs to whichever side changed last.
// Single-step, so a second consecutive Undo fails.
func (s *Session) Undo() error {
	record, err := s.readUndo()
	if err != nil {
		return err
	}

	editor, path := s.staging, s.stagingPath
	if record.Side == sideTarget {
		editor, path = s.target, s.targetPath
	}

	current := editor.Snapshot()
	editor.Replace(record.Prior)
	if err := collection.Save(path, editor.Snapshot()); err != nil {
		editor.Replace(current)
		return fmt.Errorf("persist undo: %w", err)
	}
	s.clearUndo()
	s.logger.Info("reverted last mutation", logging.String("side", record.Side))
	return nil
}

// Commit replays every staged stock entry into the target through the
// editor, persists the target, then clears staging. A failure at any
// point leaves both collections as they were.
func (s *Session) Commit() error {
	staged := s.staging.Snapshot()
	changes := replayChanges(staged)
	if len(changes) == 0 {
		return ErrNothingStaged
	}

	priorTarget := s.target.Snapshot()
	if err := s.target.ApplyBatch(changes); err != nil {
		return fmt.Errorf("merge staged stock: %w", err)
	}
	if err := collection.Save(s.targetPath, s.target.Snapshot()); err != nil {
		s.target.Replace(priorTarget)
		return fmt.Errorf("persist target: %w", err)
	}

	s.staging.Replace(collection.Collection{Name: staged.Name})
	if err := collection.Save(s.stagingPath, s.staging.Snapshot()); err != nil {
		s.staging.Replace(staged)
		s.target.Replace(priorTarget)
		if saveErr := collection.Save(s.targetPath, priorTarget); saveErr != nil {
			return fmt.Errorf("clear staging (target rollback also failed: %v): %w", saveErr, err)
		}
		return fmt.Errorf("clear staging: %w", err)
	}

	// A committed batch is final; the pre-commit snapshots no longer
	// describe a state the user can return to in one step.
	s.clearUndo()
	s.logger.Info("committed staged stock",
		logging.Int("entries", len(changes)),
		logging.Int("quantity", staged.TotalQuantity()))
	return nil
}

// replayChanges flattens a staged tree into Add changes carrying the
// staged variant keys, so committed stock lands under the same keys.
func replayChanges(staged collection.Collection) []collection.Change {
	var changes []collection.Change
	for _, card := range staged.Cards {
		for _, variant := range card.Variants {
			for _, entry := range variant.Entries {
				changes = append(changes, collection.Change{
					CardID:     card.CardID,
					CardName:   card.Name,
					VariantKey: variant.Key,
					Attributes: collection.Attributes{
						SetCode:       variant.SetCode,
						Rarity:        variant.Rarity,
						ArtworkID:     variant.ArtworkID,
						Condition:     entry.Condition,
						Language:      entry.Language,
						FirstEdition:  entry.FirstEdition,
						Storage:       entry.Storage,
						PurchasePrice: entry.PurchasePrice,
					},
					Quantity: entry.Quantity,
					Mode:     collection.ModeAdd,
				})
			}
		}
	}
	return changes
}

func (s *Session) writeUndo(side string, prior collection.Collection) error {
	record := undoRecord{Side: side, Prior: prior, RecordedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode undo snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.undoPath), 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	tmp := s.undoPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("stage undo snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.undoPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace undo snapshot: %w", err)
	}
	return nil
}

func (s *Session) readUndo() (undoRecord, error) {
	data, err := os.ReadFile(s.undoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return undoRecord{}, collection.ErrNothingToUndo
		}
		return undoRecord{}, fmt.Errorf("read undo snapshot: %w", err)
	}
	var record undoRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return undoRecord{}, fmt.Errorf("parse undo snapshot: %w", err)
	}
	return record, nil
}

func (s *Session) clearUndo() {
	if err := os.Remove(s.undoPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("stale undo snapshot not removed", logging.Error(err))
	}
}
