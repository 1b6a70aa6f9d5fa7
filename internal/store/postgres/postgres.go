// Package postgres is a [store.Store] backed by PostgreSQL via pgx, for
// deployments that share one database between several bot replicas.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/store"
)

// Schema is the SQL DDL for every table used by [Store]. Execute it via
// [Store.Migrate] or apply it manually during deployment.
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
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_dictionary_exports_created ON dictionary_exports(created_at);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements [store.Store] on PostgreSQL.
type Store struct {
	db    DB
	pool  *pgxpool.Pool
	now   func() time.Time
	codes func() (string, error)
}

var _ store.Store = (*Store)(nil)

// Open connects a pool to dsn, verifies it with a ping and applies [Schema].
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	s := New(pool)
	s.pool = pool
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New creates a Store on db. The caller is responsible for calling
// [Store.Migrate].
func New(db DB) *Store {
	return &Store{db: db, now: time.Now, codes: store.NewExportCode}
}

// Migrate executes [Schema].
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) setting(ctx context.Context, chatID, column string) (string, error) {
	var v string
	err := s.db.QueryRow(ctx, `SELECT `+column+` FROM chat_settings WHERE chat_id = $1`, chatID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: load %s: %w", column, err)
	}
	if v == "" {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Store) setSetting(ctx context.Context, chatID, column, value string) error {
	query := `INSERT INTO chat_settings (chat_id, ` + column + `) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE SET ` + column + ` = EXCLUDED.` + column
	if _, err := s.db.Exec(ctx, query, chatID, value); err != nil {
		return fmt.Errorf("postgres: save %s: %w", column, err)
	}
	return nil
}

func (s *Store) Languages(ctx context.Context, chatID string) (lang.Pair, error) {
	var p lang.Pair
	err := s.db.QueryRow(ctx,
		`SELECT primary_lang, secondary_lang FROM chat_settings WHERE chat_id = $1`, chatID,
	).Scan(&p.Primary, &p.Secondary)
	if errors.Is(err, pgx.ErrNoRows) {
		return lang.Pair{}, store.ErrNotFound
	}
	if err != nil {
		return lang.Pair{}, fmt.Errorf("postgres: load languages: %w", err)
	}
	if p.Primary == "" || p.Secondary == "" {
		return lang.Pair{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) SetLanguages(ctx context.Context, chatID string, pair lang.Pair) error {
	const query = `
		INSERT INTO chat_settings (chat_id, primary_lang, secondary_lang) VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO UPDATE SET
			primary_lang = EXCLUDED.primary_lang,
			secondary_lang = EXCLUDED.secondary_lang`
	if _, err := s.db.Exec(ctx, query, chatID, pair.Primary, pair.Secondary); err != nil {
		return fmt.Errorf("postgres: save languages: %w", err)
	}
	return nil
}

func (s *Store) Mode(ctx context.Context, chatID string) (store.Mode, error) {
	v, err := s.setting(ctx, chatID, "mode")
	return store.Mode(v), err
}

func (s *Store) SetMode(ctx context.Context, chatID string, mode store.Mode) error {
	return s.setSetting(ctx, chatID, "mode", string(mode))
}

func (s *Store) VoiceGender(ctx context.Context, chatID string) (store.Gender, error) {
	v, err := s.setting(ctx, chatID, "voice_gender")
	return store.Gender(v), err
}

func (s *Store) SetVoiceGender(ctx context.Context, chatID string, gender store.Gender) error {
	return s.setSetting(ctx, chatID, "voice_gender", string(gender))
}

func (s *Store) Terms(ctx context.Context, chatID, pairKey string) ([]store.Term, error) {
	rows, err := s.db.Query(ctx,
		`SELECT source_term, target_term FROM dictionary
		 WHERE chat_id = $1 AND lang_pair = $2 ORDER BY source_term`, chatID, pairKey)
	if err != nil {
		return nil, fmt.Errorf("postgres: load terms: %w", err)
	}
	defer rows.Close()

	var terms []store.Term
	for rows.Next() {
		var t store.Term
		if err := rows.Scan(&t.Source, &t.Target); err != nil {
			return nil, fmt.Errorf("postgres: scan term: %w", err)
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate terms: %w", err)
	}
	return terms, nil
}

func (s *Store) AddTerm(ctx context.Context, chatID, pairKey string, term store.Term) error {
	t, err := store.NormalizeTerm(term)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO dictionary (chat_id, lang_pair, source_term, target_term) VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, lang_pair, source_term) DO UPDATE SET target_term = EXCLUDED.target_term`
	if _, err := s.db.Exec(ctx, query, chatID, pairKey, t.Source, t.Target); err != nil {
		return fmt.Errorf("postgres: add term: %w", err)
	}
	return nil
}

func (s *Store) RemoveTerm(ctx context.Context, chatID, pairKey, source string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM dictionary WHERE chat_id = $1 AND lang_pair = $2 AND source_term = $3`,
		chatID, pairKey, strings.ToLower(strings.TrimSpace(source)))
	if err != nil {
		return false, fmt.Errorf("postgres: remove term: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) VoicePreset(ctx context.Context, chatID, language string, gender store.Gender) (string, error) {
	l, g := store.NormalizeVoiceKey(language, gender)
	var speaker string
	err := s.db.QueryRow(ctx,
		`SELECT speaker FROM voice_presets WHERE chat_id = $1 AND lang = $2 AND gender = $3`,
		chatID, l, string(g)).Scan(&speaker)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: load voice preset: %w", err)
	}
	return speaker, nil
}

func (s *Store) SetVoicePreset(ctx context.Context, chatID, language string, gender store.Gender, speaker string) error {
	l, g := store.NormalizeVoiceKey(language, gender)
	const query = `
		INSERT INTO voice_presets (chat_id, lang, gender, speaker) VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, lang, gender) DO UPDATE SET speaker = EXCLUDED.speaker`
	if _, err := s.db.Exec(ctx, query, chatID, l, string(g), strings.TrimSpace(speaker)); err != nil {
		return fmt.Errorf("postgres: save voice preset: %w", err)
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
		_, err = s.db.Exec(ctx,
			`INSERT INTO dictionary_exports (code, payload, created_at) VALUES ($1, $2, $3)`,
			code, payload, s.now())
		if err == nil {
			return code, nil
		}
		if !isDuplicateKeyError(err) {
			return "", fmt.Errorf("postgres: create export: %w", err)
		}
	}
	return "", errors.New("postgres: create export: could not allocate a unique code")
}

func (s *Store) Export(ctx context.Context, code string) (string, error) {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM dictionary_exports WHERE created_at < $1`, s.now().Add(-store.ExportTTL)); err != nil {
		return "", fmt.Errorf("postgres: purge exports: %w", err)
	}
	var payload string
	err := s.db.QueryRow(ctx,
		`SELECT payload FROM dictionary_exports WHERE code = $1`, store.NormalizeCode(code)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: load export: %w", err)
	}
	return payload, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
