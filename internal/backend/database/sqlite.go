package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jo-hoe/pokescan/internal/common"
)

type SQLiteDatabase struct {
	db                *sql.DB
	connectionString  string
	maxCollectionSize int
}

func NewSQLiteDatabase(connectionString string, maxCollectionSize int) (DatabaseService, error) {
	if maxCollectionSize <= 0 {
		maxCollectionSize = DefaultMaxCollectionSize
	}

	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers and keeps in-memory databases
	// from fragmenting across pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteDatabase{
		db:                db,
		connectionString:  connectionString,
		maxCollectionSize: maxCollectionSize,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS collection_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		pokemon_name TEXT NOT NULL,
		pokemon_id INTEGER NOT NULL,
		pokemon_data TEXT,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(user_id, pokemon_name)
	);
	CREATE INDEX IF NOT EXISTS idx_collection_entries_user ON collection_entries(user_id);`)
	return err
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		username, email, passwordHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.KindInvalidInput, "username or email already registered")
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *SQLiteDatabase) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE username = ?",
		username)
	return scanUser(row)
}

func (s *SQLiteDatabase) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE id = ?",
		id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewError(common.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLiteDatabase) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.NewError(common.KindNotFound, "user not found")
	}
	return nil
}

func (s *SQLiteDatabase) ListCollection(ctx context.Context, userID int64) ([]*CollectionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, pokemon_name, pokemon_id, pokemon_data, created_at
		 FROM collection_entries WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []*CollectionEntry
	for rows.Next() {
		var entry CollectionEntry
		var data sql.NullString
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.PokemonName, &entry.PokemonID, &data, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if data.Valid {
			entry.PokemonData = json.RawMessage(data.String)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteDatabase) CountCollection(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM collection_entries WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

// AddCollectionEntry inserts a new entry while holding the size and
// uniqueness invariants. Count check and insert run inside one transaction
// so a concurrent add from the same user cannot slip past the cap; the
// unique index on (user_id, pokemon_name) backstops duplicates.
func (s *SQLiteDatabase) AddCollectionEntry(ctx context.Context, userID int64, pokemonName string, pokemonID int, pokemonData json.RawMessage) (*CollectionEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM collection_entries WHERE user_id = ?", userID).Scan(&count); err != nil {
		return nil, err
	}
	if count >= s.maxCollectionSize {
		return nil, common.NewError(common.KindCollectionFull,
			fmt.Sprintf("collection is full, maximum %d entries allowed", s.maxCollectionSize))
	}

	now := time.Now().UTC()
	var data any
	if pokemonData != nil {
		data = string(pokemonData)
	}
	result, err := tx.ExecContext(ctx,
		"INSERT INTO collection_entries (user_id, pokemon_name, pokemon_id, pokemon_data, created_at) VALUES (?, ?, ?, ?, ?)",
		userID, pokemonName, pokemonID, data, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.KindDuplicateEntry, "this species is already in your collection")
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &CollectionEntry{
		ID:          id,
		UserID:      userID,
		PokemonName: pokemonName,
		PokemonID:   pokemonID,
		PokemonData: pokemonData,
		CreatedAt:   now,
	}, nil
}

// RemoveCollectionEntry deletes an entry owned by the caller. A non-existent
// id and an id owned by another user are indistinguishable to the caller:
// both are NotFound, so other users' entries are never leaked.
func (s *SQLiteDatabase) RemoveCollectionEntry(ctx context.Context, userID, entryID int64) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM collection_entries WHERE id = ? AND user_id = ?", entryID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.NewError(common.KindNotFound, "collection entry not found")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
