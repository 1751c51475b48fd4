package store

import (
	"context"
	"errors"
	"time"

	"github.com/addrbook/addrbook/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Contacts() Contacts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login and session resolution.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail is used by the confirmation and reset flows.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// A username or email collision yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// SetConfirmed marks the account for the given email as confirmed and
	// bumps updated_at.
	SetConfirmed(ctx context.Context, email string) error

	// UpdatePasswordHash replaces the password_hash (argon2) wholesale for
	// the account with the given email and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, email string, newHash string) error
}

type Contacts interface {
	// ListContacts returns a page of the owner's contacts ordered by id.
	ListContacts(ctx context.Context, userID string, offset, limit int) ([]domain.Contact, error)

	// GetContactByID returns one contact scoped to its owner.
	GetContactByID(ctx context.Context, userID, id string) (domain.Contact, error)

	// GetContactByFirstName returns the first matching contact for the owner.
	GetContactByFirstName(ctx context.Context, userID, firstName string) (domain.Contact, error)

	// GetContactByLastName returns the first matching contact for the owner.
	GetContactByLastName(ctx context.Context, userID, lastName string) (domain.Contact, error)

	// GetContactByEmail returns the owner's contact with that email.
	GetContactByEmail(ctx context.Context, userID, email string) (domain.Contact, error)

	// ListUpcomingBirthdays returns the owner's contacts whose birthday
	// month-day falls within [from, from+days], year ignored.
	ListUpcomingBirthdays(ctx context.Context, userID string, from time.Time, days int) ([]domain.Contact, error)

	// CreateContact inserts a new contact. A duplicate (user_id, email)
	// yields ErrAlreadyExists.
	CreateContact(ctx context.Context, c domain.Contact) error

	// UpdateContact replaces the mutable fields of an existing contact and
	// bumps updated_at. Missing row yields ErrNotFound.
	UpdateContact(ctx context.Context, c domain.Contact) error

	// DeleteContact removes the owner's contact. Missing row yields ErrNotFound.
	DeleteContact(ctx context.Context, userID, id string) error
}
