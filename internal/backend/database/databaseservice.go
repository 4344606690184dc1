package database

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultMaxCollectionSize caps how many entries a single user may hold.
const DefaultMaxCollectionSize = 15

// User is a credential holder owning zero or more collection entries.
// Deleting a user cascades to all owned entries.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CollectionEntry is one collected species. PokemonData holds the species
// record snapshot taken at add time, so later provider outages do not affect
// already-collected items.
type CollectionEntry struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	PokemonName string          `db:"pokemon_name" json:"pokemon_name"`
	PokemonID   int             `db:"pokemon_id" json:"pokemon_id"`
	PokemonData json.RawMessage `db:"pokemon_data" json:"pokemon_data,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// DatabaseService is the persistence boundary. Implementations enforce the
// per-user collection invariants (size cap, one entry per species name,
// owner-scoped removal) atomically with respect to concurrent requests from
// the same user.
type DatabaseService interface {
	CreateDatabase() error
	Close() error

	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListCollection(ctx context.Context, userID int64) ([]*CollectionEntry, error)
	CountCollection(ctx context.Context, userID int64) (int, error)
	AddCollectionEntry(ctx context.Context, userID int64, pokemonName string, pokemonID int, pokemonData json.RawMessage) (*CollectionEntry, error)
	RemoveCollectionEntry(ctx context.Context, userID, entryID int64) error
}
