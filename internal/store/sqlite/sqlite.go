// Package sqlite is a [store.Store] on an embedded SQLite database, the
// single-file deployment option.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/store"
)

// Schema creates every table used by [Store].
const Schema = `
CREATE TABLE IF NOT EXISTS chat_settings (
    chat_id        TEXT PRIMARY KEY,
    primary_lang   TEXT NOT NULL DEFAULT '',
    secondary_lang TEXT NOT NULL DEFAULT '',
    mode           TEXT NOT NULL DEFAULT '',
    voice_gender   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS dictionary (
    chat_id     TEXT NOT NULL,
    lang_pair   TEXT NOT NULL,
    source_term TEXT NOT NULL,
    target_term TEXT NOT NULL,
    PRIMARY KEY (chat_id, lang_pair, source_term)
);
CREATE TABLE IF NOT EXISTS voice_presets (
    chat_id TEXT NOT NULL,
    lang    TEXT NOT NULL,
    gender  TEXT NOT NULL,
    speaker TEXT NOT NULL,
    PRIMARY KEY (chat_id, lang, gender)
);
CREATE TABLE IF NOT EXISTS dictionary_exports (
    code       TEXT PRIMARY KEY,
    payload    TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`

// Store implements [store.Store] with sqlx.
type Store struct {
	db    *sqlx.DB
	now   func() time.Time
	codes func() (string, error)
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at dsn and applies [Schema].
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection, so ":memory:" databases are shared across calls.
	db.SetMaxOpenConns(1)
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle. Call [Store.Migrate] before use.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now, codes: store.NewExportCode}
}

// Migrate applies [Schema].
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

type settingsRow struct {
	Primary   string `db:"primary_lang"`
	Secondary string `db:"secondary_lang"`
	Mode      string `db:"mode"`
	Gender    string `db:"voice_gender"`
}

func (s *Store) settings(ctx context.Context, chatID string) (settingsRow, error) {
	var row settingsRow
	err := s.db.GetContext(ctx, &row,
		`SELECT primary_lang, secondary_lang, mode, voice_gender FROM chat_settings WHERE chat_id = ?`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return row, store.ErrNotFound
	}
	if err != nil {
		return row, fmt.Errorf("sqlite: load settings: %w", err)
	}
	return row, nil
}

// setSetting upserts columns of chat_settings. Column names are never user input.
func (s *Store) setSetting(ctx context.Context, chatID string, columns []string, values ...any) error {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = excluded." + c
	}
	query := fmt.Sprintf(
		`INSERT INTO chat_settings (chat_id, %s) VALUES (?%s) ON CONFLICT (chat_id) DO UPDATE SET %s`,
		strings.Join(columns, ", "), strings.Repeat(", ?", len(columns)), strings.Join(sets, ", "))
	args := append([]any{chatID}, values...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: save settings: %w", err)
	}
	return nil
}

func (s *Store) Languages(ctx context.Context, chatID string) (lang.Pair, error) {
	row, err := s.settings(ctx, chatID)
	if err != nil {
		return lang.Pair{}, err
	}
	if row.Primary == "" || row.Secondary == "" {
		return lang.Pair{}, store.ErrNotFound
	}
	return lang.Pair{Primary: row.Primary, Secondary: row.Secondary}, nil
}

func (s *Store) SetLanguages(ctx context.Context, chatID string, pair lang.Pair) error {
	return s.setSetting(ctx, chatID, []string{"primary_lang", "secondary_lang"}, pair.Primary, pair.Secondary)
}

func (s *Store) Mode(ctx context.Context, chatID string) (store.Mode, error) {
	row, err := s.settings(ctx, chatID)
	if err != nil {
		return "", err
	}
	if row.Mode == "" {
		return "", store.ErrNotFound
	}
	return store.Mode(row.Mode), nil
}

func (s *Store) SetMode(ctx context.Context, chatID string, mode store.Mode) error {
	return s.setSetting(ctx, chatID, []string{"mode"}, string(mode))
}

func (s *Store) VoiceGender(ctx context.Context, chatID string) (store.Gender, error) {
	row, err := s.settings(ctx, chatID)
	if err != nil {
		return "", err
	}
	if row.Gender == "" {
		return "", store.ErrNotFound
	}
	return store.Gender(row.Gender), nil
}

func (s *Store) SetVoiceGender(ctx context.Context, chatID string, gender store.Gender) error {
	return s.setSetting(ctx, chatID, []string{"voice_gender"}, string(gender))
}

func (s *Store) Terms(ctx context.Context, chatID, pairKey string) ([]store.Term, error) {
	var terms []store.Term
	err := s.db.SelectContext(ctx, &terms,
		`SELECT source_term, target_term FROM dictionary WHERE chat_id = ? AND lang_pair = ? ORDER BY source_term`,
		chatID, pairKey)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load terms: %w", err)
	}
	return terms, nil
}

func (s *Store) AddTerm(ctx context.Context, chatID, pairKey string, term store.Term) error {
	t, err := store.NormalizeTerm(term)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO dictionary (chat_id, lang_pair, source_term, target_term) VALUES (?, ?, ?, ?)`,
		chatID, pairKey, t.Source, t.Target)
	if err != nil {
		return fmt.Errorf("sqlite: add term: %w", err)
	}
	return nil
}

func (s *Store) RemoveTerm(ctx context.Context, chatID, pairKey, source string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dictionary WHERE chat_id = ? AND lang_pair = ? AND source_term = ?`,
		chatID, pairKey, strings.ToLower(strings.TrimSpace(source)))
	if err != nil {
		return false, fmt.Errorf("sqlite: remove term: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: remove term: %w", err)
	}
	return n > 0, nil
}

func (s *Store) VoicePreset(ctx context.Context, chatID, language string, gender store.Gender) (string, error) {
	l, g := store.NormalizeVoiceKey(language, gender)
	var speaker string
	err := s.db.GetContext(ctx, &speaker,
		`SELECT speaker FROM voice_presets WHERE chat_id = ? AND lang = ? AND gender = ?`, chatID, l, string(g))
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: load voice preset: %w", err)
	}
	return speaker, nil
}

func (s *Store) SetVoicePreset(ctx context.Context, chatID, language string, gender store.Gender, speaker string) error {
	l, g := store.NormalizeVoiceKey(language, gender)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO voice_presets (chat_id, lang, gender, speaker) VALUES (?, ?, ?, ?)`,
		chatID, l, string(g), strings.TrimSpace(speaker))
	if err != nil {
		return fmt.Errorf("sqlite: save voice preset: %w", err)
	}
	return nil
}

// CreateExport retries on the unlikely code collision.
func (s *Store) CreateExport(ctx context.Context, payload string) (string, error) {
	for range 3 {
		code, err := s.codes()
		if err != nil {
			return "", err
		}
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO dictionary_exports (code, payload, created_at) VALUES (?, ?, ?) ON CONFLICT (code) DO NOTHING`,
			code, payload, s.now().Unix())
		if err != nil {
			return "", fmt.Errorf("sqlite: create export: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return "", fmt.Errorf("sqlite: create export: %w", err)
		} else if n == 1 {
			return code, nil
		}
	}
	return "", errors.New("sqlite: create export: could not allocate a unique code")
}

func (s *Store) Export(ctx context.Context, code string) (string, error) {
	cutoff := s.now().Add(-store.ExportTTL).Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dictionary_exports WHERE created_at < ?`, cutoff); err != nil {
		return "", fmt.Errorf("sqlite: purge exports: %w", err)
	}
	var payload string
	err := s.db.GetContext(ctx, &payload,
		`SELECT payload FROM dictionary_exports WHERE code = ?`, store.NormalizeCode(code))
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: load export: %w", err)
	}
	return payload, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
