package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
)

// SQLiteStore keeps every model in one SQLite database. Floats are stored
// as REAL, which is an IEEE-754 double, so values round-trip exactly.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ StateStore = (*SQLiteStore)(nil)

const sqliteSchemaVersion = 1

// validateSQLiteIntegrity checks an existing database before opening it.
// Returns nil if the file is absent or healthy.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteStore opens (or creates) the database at path.
// An empty path opens an in-memory database for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, vecerrors.New(vecerrors.ErrCodeFilePermission,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}
		// Unlike a rebuildable search index, a corrupt model store is not
		// cleared automatically.
		if err := validateSQLiteIntegrity(path); err != nil {
			return nil, vecerrors.New(vecerrors.ErrCodeCorruptState,
				fmt.Sprintf("model database %s is corrupted", path), err).
				WithSuggestion("Delete the file and run 'bm25vec fit' again")
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, vecerrors.IOError("failed to open model database", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, vecerrors.IOError("failed to set pragma", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, vecerrors.InternalError("failed to initialize schema", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- One row per fitted model: hyperparameters, analyzer settings and
	-- corpus-level statistics.
	CREATE TABLE IF NOT EXISTS models (
		name             TEXT PRIMARY KEY,
		version          INTEGER NOT NULL,
		k1               REAL NOT NULL,
		b                REAL NOT NULL,
		epsilon          REAL NOT NULL,
		normalize        INTEGER NOT NULL,
		idf              TEXT NOT NULL,
		tokenizer        TEXT NOT NULL,
		min_n            INTEGER NOT NULL,
		max_n            INTEGER NOT NULL,
		stop_words       TEXT NOT NULL,
		binary_counts    INTEGER NOT NULL,
		fixed_vocabulary INTEGER NOT NULL,
		width            INTEGER NOT NULL,
		avg_doc_length   REAL NOT NULL,
		max_score        REAL NOT NULL,
		num_docs         INTEGER NOT NULL,
		saved_at         TEXT NOT NULL
	);

	-- One row per column. term is NULL for gaps in a fixed vocabulary.
	CREATE TABLE IF NOT EXISTS features (
		model    TEXT NOT NULL REFERENCES models(name) ON DELETE CASCADE,
		col      INTEGER NOT NULL,
		term     TEXT,
		idf      REAL NOT NULL,
		doc_freq REAL NOT NULL,
		PRIMARY KEY (model, col)
	);

	CREATE TABLE IF NOT EXISTS doc_lengths (
		model  TEXT NOT NULL REFERENCES models(name) ON DELETE CASCADE,
		doc    INTEGER NOT NULL,
		length INTEGER NOT NULL,
		PRIMARY KEY (model, doc)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", sqliteSchemaVersion)
	return err
}

// Save implements StateStore. The model is replaced in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, name string, snap *bm25.Snapshot) error {
	if err := ValidateModelName(name); err != nil {
		return err
	}
	stopWords, err := json.Marshal(snap.StopWords)
	if err != nil {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to encode stop words", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return vecerrors.InternalError("store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteModel(ctx, tx, name); err != nil {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to replace model", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO models (
		name, version, k1, b, epsilon, normalize, idf, tokenizer, min_n, max_n,
		stop_words, binary_counts, fixed_vocabulary, width, avg_doc_length, max_score,
		num_docs, saved_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, snap.Version, snap.K1, snap.B, snap.Epsilon, snap.Normalize, snap.IDF,
		snap.Tokenizer, snap.MinN, snap.MaxN, string(stopWords), snap.Binary,
		snap.FixedVocabulary, snap.Width, snap.AvgDocLength, snap.MaxScore,
		snap.NumDocs, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to insert model", err)
	}

	terms := make([]sql.NullString, snap.Width)
	for term, col := range snap.Vocabulary {
		if col < 0 || col >= snap.Width {
			return vecerrors.New(vecerrors.ErrCodeSaveFailed,
				fmt.Sprintf("vocabulary index %d for %q outside width %d", col, term, snap.Width), nil)
		}
		terms[col] = sql.NullString{String: term, Valid: true}
	}
	if len(snap.IDFWeights) != snap.Width || len(snap.DocFreq) != snap.Width {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, "snapshot column vectors do not match its width", nil)
	}

	featStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO features (model, col, term, idf, doc_freq) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to prepare feature insert", err)
	}
	defer featStmt.Close()
	for col := 0; col < snap.Width; col++ {
		if _, err := featStmt.ExecContext(ctx, name, col, terms[col], snap.IDFWeights[col], snap.DocFreq[col]); err != nil {
			return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to insert feature", err)
		}
	}

	lenStmt, err := tx.PrepareContext(ctx, "INSERT INTO doc_lengths (model, doc, length) VALUES (?, ?, ?)")
	if err != nil {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to prepare length insert", err)
	}
	defer lenStmt.Close()
	for doc, length := range snap.DocLengths {
		if _, err := lenStmt.ExecContext(ctx, name, doc, length); err != nil {
			return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to insert document length", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to commit model", err)
	}

	slog.Info("state_saved",
		slog.String("backend", string(BackendSQLite)),
		slog.String("model", name),
		slog.String("path", s.path),
		slog.Int("features", len(snap.Vocabulary)))
	return nil
}

// Load implements StateStore.
func (s *SQLiteStore) Load(ctx context.Context, name string) (*bm25.Snapshot, error) {
	if err := ValidateModelName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, vecerrors.InternalError("store is closed", nil)
	}

	snap := &bm25.Snapshot{}
	var stopWords string
	err := s.db.QueryRowContext(ctx, `SELECT version, k1, b, epsilon, normalize, idf,
		tokenizer, min_n, max_n, stop_words, binary_counts, fixed_vocabulary, width,
		avg_doc_length, max_score, num_docs
		FROM models WHERE name = ?`, name).Scan(
		&snap.Version, &snap.K1, &snap.B, &snap.Epsilon, &snap.Normalize, &snap.IDF,
		&snap.Tokenizer, &snap.MinN, &snap.MaxN, &stopWords, &snap.Binary,
		&snap.FixedVocabulary, &snap.Width, &snap.AvgDocLength, &snap.MaxScore, &snap.NumDocs)
	if err == sql.ErrNoRows {
		return nil, modelNotFound(name)
	}
	if err != nil {
		return nil, vecerrors.IOError(fmt.Sprintf("failed to read model %q", name), err)
	}
	if err := json.Unmarshal([]byte(stopWords), &snap.StopWords); err != nil {
		return nil, vecerrors.New(vecerrors.ErrCodeCorruptState, "failed to decode stop words", err)
	}

	if err := s.loadFeatures(ctx, name, snap); err != nil {
		return nil, err
	}
	if err := s.loadDocLengths(ctx, name, snap); err != nil {
		return nil, err
	}

	slog.Debug("state_loaded",
		slog.String("backend", string(BackendSQLite)),
		slog.String("model", name),
		slog.Int("features", len(snap.Vocabulary)))
	return snap, nil
}

func (s *SQLiteStore) loadFeatures(ctx context.Context, name string, snap *bm25.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT col, term, idf, doc_freq FROM features WHERE model = ? ORDER BY col", name)
	if err != nil {
		return vecerrors.IOError("failed to read features", err)
	}
	defer rows.Close()

	snap.Vocabulary = make(map[string]int)
	snap.IDFWeights = make([]float64, 0, snap.Width)
	snap.DocFreq = make([]float64, 0, snap.Width)
	for rows.Next() {
		var (
			col      int
			term     sql.NullString
			idf, dfv float64
		)
		if err := rows.Scan(&col, &term, &idf, &dfv); err != nil {
			return vecerrors.New(vecerrors.ErrCodeCorruptState, "failed to scan feature", err)
		}
		if col != len(snap.IDFWeights) {
			return vecerrors.New(vecerrors.ErrCodeCorruptState, fmt.Sprintf("feature column %d is missing", len(snap.IDFWeights)), nil)
		}
		if term.Valid {
			snap.Vocabulary[term.String] = col
		}
		snap.IDFWeights = append(snap.IDFWeights, idf)
		snap.DocFreq = append(snap.DocFreq, dfv)
	}
	if err := rows.Err(); err != nil {
		return vecerrors.IOError("failed to read features", err)
	}
	return nil
}

func (s *SQLiteStore) loadDocLengths(ctx context.Context, name string, snap *bm25.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT length FROM doc_lengths WHERE model = ? ORDER BY doc", name)
	if err != nil {
		return vecerrors.IOError("failed to read document lengths", err)
	}
	defer rows.Close()

	snap.DocLengths = make([]int, 0, snap.NumDocs)
	for rows.Next() {
		var length int
		if err := rows.Scan(&length); err != nil {
			return vecerrors.New(vecerrors.ErrCodeCorruptState, "failed to scan document length", err)
		}
		snap.DocLengths = append(snap.DocLengths, length)
	}
	if err := rows.Err(); err != nil {
		return vecerrors.IOError("failed to read document lengths", err)
	}
	return nil
}

// List implements StateStore.
func (s *SQLiteStore) List(ctx context.Context) ([]ModelInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, vecerrors.InternalError("store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT m.name, m.idf, m.num_docs, m.saved_at,
		(SELECT COUNT(*) FROM features f WHERE f.model = m.name AND f.term IS NOT NULL)
		FROM models m ORDER BY m.name`)
	if err != nil {
		return nil, vecerrors.IOError("failed to list models", err)
	}
	defer rows.Close()

	infos := make([]ModelInfo, 0)
	for rows.Next() {
		var (
			info    ModelInfo
			savedAt string
		)
		if err := rows.Scan(&info.Name, &info.IDF, &info.NumDocs, &savedAt, &info.Features); err != nil {
			return nil, vecerrors.IOError("failed to scan model", err)
		}
		info.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
		info.Backend = BackendSQLite
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, vecerrors.IOError("failed to list models", err)
	}
	return infos, nil
}

// Delete implements StateStore.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := ValidateModelName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return vecerrors.InternalError("store is closed", nil)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return vecerrors.IOError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := deleteModel(ctx, tx, name); err != nil {
		return vecerrors.IOError(fmt.Sprintf("failed to delete model %q", name), err)
	}
	if err := tx.Commit(); err != nil {
		return vecerrors.IOError(fmt.Sprintf("failed to delete model %q", name), err)
	}
	return nil
}

// deleteModel removes child rows explicitly; foreign_keys is a
// per-connection pragma.
func deleteModel(ctx context.Context, tx *sql.Tx, name string) error {
	for _, q := range []string{
		"DELETE FROM features WHERE model = ?",
		"DELETE FROM doc_lengths WHERE model = ?",
		"DELETE FROM models WHERE name = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, name); err != nil {
			return err
		}
	}
	return nil
}

// Close implements StateStore. Forces a WAL checkpoint before closing.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
