// Package registry stores compile artifacts in SQLite so repeated
// compiles of a model can be listed, retrieved and compared later.
package registry

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Crispae/wasm-pk/compiler"
)

// ErrNotFound reports a lookup for an artifact the store does not hold.
var ErrNotFound = errors.New("artifact not found")

// Store persists artifacts in a SQLite database. Retrieved artifacts
// carry the stored stat columns; stats the schema does not keep come
// back zero.
type Store struct {
	db *sql.DB
}

// New opens the database at path, creating it if missing, and migrates
// the schema. Use ":memory:" for an ephemeral store.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection gets its own memory database, so the pool
		// must stay at one.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		model_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		n_species INTEGER NOT NULL,
		n_params INTEGER NOT NULL,
		n_reactions INTEGER NOT NULL,
		jac_nnz INTEGER NOT NULL,
		jac_fill REAL NOT NULL,
		cse_temps INTEGER NOT NULL,
		source TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_model ON artifacts(model_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Put inserts the artifact. Reusing an ID is an error.
func (s *Store) Put(a *compiler.Artifact) error {
	_, err := s.db.Exec(
		`INSERT INTO artifacts (id, model_id, created_at, n_species, n_params,
		 n_reactions, jac_nnz, jac_fill, cse_temps, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ModelID, a.CreatedAt.UTC(), a.Stats.Species, a.Stats.Parameters,
		a.Stats.Reactions, a.Stats.JacobianNonZero, a.Stats.JacobianFill,
		a.Stats.CSE.Temporaries, a.Source,
	)
	if err != nil {
		return fmt.Errorf("store artifact %s: %w", a.ID, err)
	}
	return nil
}

// Get retrieves one artifact by ID.
func (s *Store) Get(id string) (*compiler.Artifact, error) {
	row := s.db.QueryRow(
		`SELECT id, model_id, created_at, n_species, n_params, n_reactions,
		 jac_nnz, jac_fill, cse_temps, source
		 FROM artifacts WHERE id = ?`, id,
	)

	var a compiler.Artifact
	err := row.Scan(&a.ID, &a.ModelID, &a.CreatedAt, &a.Stats.Species,
		&a.Stats.Parameters, &a.Stats.Reactions, &a.Stats.JacobianNonZero,
		&a.Stats.JacobianFill, &a.Stats.CSE.Temporaries, &a.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns artifacts newest first. An empty modelID lists every
// stored artifact; otherwise only those compiled from that model.
func (s *Store) List(modelID string) ([]*compiler.Artifact, error) {
	query := `SELECT id, model_id, created_at, n_species, n_params, n_reactions,
	 jac_nnz, jac_fill, cse_temps, source
	 FROM artifacts`
	var args []any
	if modelID != "" {
		query += ` WHERE model_id = ?`
		args = append(args, modelID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*compiler.Artifact
	for rows.Next() {
		var a compiler.Artifact
		err := rows.Scan(&a.ID, &a.ModelID, &a.CreatedAt, &a.Stats.Species,
			&a.Stats.Parameters, &a.Stats.Reactions, &a.Stats.JacobianNonZero,
			&a.Stats.JacobianFill, &a.Stats.CSE.Temporaries, &a.Source)
		if err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Delete removes one artifact. Deleting an absent ID reports
// ErrNotFound.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM artifacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
