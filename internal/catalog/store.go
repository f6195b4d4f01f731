package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"cardkeep/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS cards (
    id        INTEGER PRIMARY KEY,
    name      TEXT NOT NULL,
    passcode  TEXT NOT NULL DEFAULT '',
    card_type TEXT NOT NULL DEFAULT '',
    attribute TEXT NOT NULL DEFAULT '',
    race      TEXT NOT NULL DEFAULT '',
    atk       INTEGER,
    def       INTEGER,
    level     INTEGER
);
CREATE TABLE IF NOT EXISTS printings (
    card_id         INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
    set_code        TEXT NOT NULL,
    normalized_code TEXT NOT NULL,
    rarity          TEXT NOT NULL DEFAULT '',
    artwork_id      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (card_id, set_code, rarity, artwork_id)
);
CREATE TABLE IF NOT EXISTS art_index (
    card_id    INTEGER NOT NULL,
    artwork_id INTEGER NOT NULL,
    embedding  TEXT NOT NULL,
    PRIMARY KEY (card_id, artwork_id)
);
CREATE INDEX IF NOT EXISTS idx_printings_set_code ON printings(set_code);
CREATE INDEX IF NOT EXISTS idx_printings_normalized ON printings(normalized_code);
CREATE INDEX IF NOT EXISTS idx_cards_passcode ON cards(passcode);
CREATE INDEX IF NOT EXISTS idx_cards_name ON cards(name COLLATE NOCASE);
`

// Store provides catalog lookups backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.Paths.CatalogDB)
}

// OpenPath opens a catalog database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Ping reports whether the catalog dependency is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("catalog database connection unavailable")
	}
	return s.db.PingContext(ctx)
}

// CountCards returns the number of cards in the catalog.
func (s *Store) CountCards(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM cards`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return count, nil
}

// AddPrinting records a printing the dump did not carry. Used when a
// virtual candidate from a region-normalized match is accepted.
func (s *Store) AddPrinting(ctx context.Context, cardID int64, printing Printing) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO printings (card_id, set_code, normalized_code, rarity, artwork_id)
         VALUES (?, ?, ?, ?, ?)`,
		cardID,
		printing.SetCode,
		NormalizeSetCode(printing.SetCode),
		printing.Rarity,
		printing.ArtworkID,
	)
	if err != nil {
		return fmt.Errorf("add printing: %w", err)
	}
	return nil
}

func (s *Store) cardByRow(ctx context.Context, query string, args ...any) (*Card, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachPrintings(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

const cardColumns = "id, name, passcode, card_type, attribute, race, atk, def, level"

// CardByID fetches a card with its printings.
func (s *Store) CardByID(ctx context.Context, id int64) (*Card, error) {
	return s.cardByRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
}

// CardByPasscode fetches the card carrying the given 8-digit passcode.
func (s *Store) CardByPasscode(ctx context.Context, passcode string) (*Card, error) {
	if passcode == "" {
		return nil, nil
	}
	return s.cardByRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE passcode = ?`, passcode)
}

func (s *Store) attachPrintings(ctx context.Context, card *Card) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT set_code, rarity, artwork_id FROM printings WHERE card_id = ? ORDER BY set_code, rarity, artwork_id`,
		card.ID,
	)
	if err != nil {
		return fmt.Errorf("query printings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var printing Printing
		if err := rows.Scan(&printing.SetCode, &printing.Rarity, &printing.ArtworkID); err != nil {
			return err
		}
		card.Printings = append(card.Printings, printing)
	}
	return rows.Err()
}

func scanCard(scanner interface{ Scan(dest ...any) error }) (*Card, error) {
	var (
		card Card
		atk  sql.NullInt64
		def  sql.NullInt64
		lvl  sql.NullInt64
	)
	if err := scanner.Scan(
		&card.ID,
		&card.Name,
		&card.Passcode,
		&card.CardType,
		&card.Attribute,
		&card.Race,
		&atk,
		&def,
		&lvl,
	); err != nil {
		return nil, err
	}
	if atk.Valid {
		v := int(atk.Int64)
		card.ATK = &v
	}
	if def.Valid {
		v := int(def.Int64)
		card.DEF = &v
	}
	if lvl.Valid {
		v := int(lvl.Int64)
		card.Level = &v
	}
	return &card, nil
}
