package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/addrbook/addrbook/internal/domain"
	"github.com/addrbook/addrbook/internal/store"
	"github.com/addrbook/addrbook/pkg/idx"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestUser(t *testing.T, s *Store, username, email string) domain.User {
	t.Helper()

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$fake",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := newTestUser(t, s, "deadpool", "deadpool@example.com")

	t.Run("get by id, username and email", func(t *testing.T) {
		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Username, got.Username)

		got, err = s.Users().GetUserByUsername(ctx, u.Username)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.False(t, got.Confirmed)

		got, err = s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("missing user yields ErrNotFound", func(t *testing.T) {
		_, err := s.Users().GetUserByUsername(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username yields ErrAlreadyExists", func(t *testing.T) {
		dup := u
		dup.ID = idx.New().String()
		dup.Email = "other@example.com"
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("duplicate email yields ErrAlreadyExists", func(t *testing.T) {
		dup := u
		dup.ID = idx.New().String()
		dup.Username = "wade"
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("set confirmed", func(t *testing.T) {
		require.NoError(t, s.Users().SetConfirmed(ctx, u.Email))

		got, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.True(t, got.Confirmed)
	})

	t.Run("set confirmed on unknown email yields ErrNotFound", func(t *testing.T) {
		require.ErrorIs(t, s.Users().SetConfirmed(ctx, "nobody@example.com"), store.ErrNotFound)
	})

	t.Run("update password hash", func(t *testing.T) {
		require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.Email, "$argon2id$new"))

		got, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, "$argon2id$new", got.PasswordHash)
	})
}

func newTestContact(userID, first, last, email string, birthday *time.Time) domain.Contact {
	now := time.Now().UTC()
	return domain.Contact{
		ID:        idx.New().String(),
		UserID:    userID,
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     "0400000000",
		Birthday:  birthday,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestContactsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := newTestUser(t, s, "owner", "owner@example.com")
	other := newTestUser(t, s, "other", "other@example.com")

	alice := newTestContact(owner.ID, "Alice", "Smith", "alice@example.com", datePtr(1990, time.March, 14))
	bob := newTestContact(owner.ID, "Bob", "Jones", "bob@example.com", nil)
	require.NoError(t, s.Contacts().CreateContact(ctx, alice))
	require.NoError(t, s.Contacts().CreateContact(ctx, bob))

	t.Run("list is scoped to the owner", func(t *testing.T) {
		got, err := s.Contacts().ListContacts(ctx, owner.ID, 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)

		got, err = s.Contacts().ListContacts(ctx, other.ID, 0, 10)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("list pagination", func(t *testing.T) {
		got, err := s.Contacts().ListContacts(ctx, owner.ID, 1, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("get by id round trips the birthday", func(t *testing.T) {
		got, err := s.Contacts().GetContactByID(ctx, owner.ID, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Birthday)
		require.Equal(t, "1990-03-14", got.Birthday.Format("2006-01-02"))

		got, err = s.Contacts().GetContactByID(ctx, owner.ID, bob.ID)
		require.NoError(t, err)
		require.Nil(t, got.Birthday)
	})

	t.Run("get by id does not cross owners", func(t *testing.T) {
		_, err := s.Contacts().GetContactByID(ctx, other.ID, alice.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("get by name and email", func(t *testing.T) {
		got, err := s.Contacts().GetContactByFirstName(ctx, owner.ID, "Alice")
		require.NoError(t, err)
		require.Equal(t, alice.ID, got.ID)

		got, err = s.Contacts().GetContactByLastName(ctx, owner.ID, "Jones")
		require.NoError(t, err)
		require.Equal(t, bob.ID, got.ID)

		got, err = s.Contacts().GetContactByEmail(ctx, owner.ID, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, alice.ID, got.ID)
	})

	t.Run("duplicate email per owner yields ErrAlreadyExists", func(t *testing.T) {
		dup := newTestContact(owner.ID, "Alicia", "Smythe", "alice@example.com", nil)
		require.ErrorIs(t, s.Contacts().CreateContact(ctx, dup), store.ErrAlreadyExists)

		// Same email under a different owner is fine.
		ok := newTestContact(other.ID, "Alice", "Smith", "alice@example.com", nil)
		require.NoError(t, s.Contacts().CreateContact(ctx, ok))
	})

	t.Run("update replaces fields", func(t *testing.T) {
		mod := bob
		mod.Phone = "0411111111"
		mod.ExtraInfo = "met at the pub"
		mod.Birthday = datePtr(1985, time.December, 30)
		require.NoError(t, s.Contacts().UpdateContact(ctx, mod))

		got, err := s.Contacts().GetContactByID(ctx, owner.ID, bob.ID)
		require.NoError(t, err)
		require.Equal(t, "0411111111", got.Phone)
		require.Equal(t, "met at the pub", got.ExtraInfo)
		require.NotNil(t, got.Birthday)
	})

	t.Run("update missing contact yields ErrNotFound", func(t *testing.T) {
		missing := newTestContact(owner.ID, "Ghost", "Nobody", "ghost@example.com", nil)
		require.ErrorIs(t, s.Contacts().UpdateContact(ctx, missing), store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		victim := newTestContact(owner.ID, "Carol", "White", "carol@example.com", nil)
		require.NoError(t, s.Contacts().CreateContact(ctx, victim))
		require.NoError(t, s.Contacts().DeleteContact(ctx, owner.ID, victim.ID))
		require.ErrorIs(t, s.Contacts().DeleteContact(ctx, owner.ID, victim.ID), store.ErrNotFound)
	})
}

func TestListUpcomingBirthdays(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := newTestUser(t, s, "owner", "owner@example.com")

	seed := []domain.Contact{
		newTestContact(owner.ID, "March", "Mid", "m1@example.com", datePtr(1990, time.March, 16)),
		newTestContact(owner.ID, "March", "Late", "m2@example.com", datePtr(1971, time.March, 25)),
		newTestContact(owner.ID, "NewYears", "Eve", "nye@example.com", datePtr(2000, time.December, 31)),
		newTestContact(owner.ID, "NewYears", "Day", "nyd@example.com", datePtr(1999, time.January, 2)),
		newTestContact(owner.ID, "No", "Birthday", "nb@example.com", nil),
	}
	for _, c := range seed {
		require.NoError(t, s.Contacts().CreateContact(ctx, c))
	}

	t.Run("window within one month", func(t *testing.T) {
		from := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
		got, err := s.Contacts().ListUpcomingBirthdays(ctx, owner.ID, from, 7)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "m1@example.com", got[0].Email)
	})

	t.Run("window crossing the year boundary", func(t *testing.T) {
		from := time.Date(2026, time.December, 29, 0, 0, 0, 0, time.UTC)
		got, err := s.Contacts().ListUpcomingBirthdays(ctx, owner.ID, from, 7)
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("birth year is ignored", func(t *testing.T) {
		from := time.Date(2030, time.March, 20, 0, 0, 0, 0, time.UTC)
		got, err := s.Contacts().ListUpcomingBirthdays(ctx, owner.ID, from, 7)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "m2@example.com", got[0].Email)
	})
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("commit on success", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx store.Tx) error {
			now := time.Now().UTC()
			return tx.Users().CreateUser(ctx, domain.User{
				ID:           idx.New().String(),
				Username:     "txuser",
				Email:        "tx@example.com",
				PasswordHash: "$argon2id$fake",
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		})
		require.NoError(t, err)

		_, err = s.Users().GetUserByUsername(ctx, "txuser")
		require.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := func(tx store.Tx) error {
			now := time.Now().UTC()
			if err := tx.Users().CreateUser(ctx, domain.User{
				ID:           idx.New().String(),
				Username:     "rollback",
				Email:        "rollback@example.com",
				PasswordHash: "$argon2id$fake",
				CreatedAt:    now,
				UpdatedAt:    now,
			}); err != nil {
				return err
			}
			return context.Canceled
		}
		require.ErrorIs(t, s.WithTx(ctx, boom), context.Canceled)

		_, err := s.Users().GetUserByUsername(ctx, "rollback")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
