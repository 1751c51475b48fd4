package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/addrbook/addrbook/internal/domain"
	"github.com/addrbook/addrbook/internal/store"
	"github.com/addrbook/addrbook/pkg/idx"
	"github.com/addrbook/addrbook/pkg/slogx"
)

var (
	ErrContactNotFound = errors.New("contact_not_found")
	ErrContactExists   = errors.New("contact_exists")
)

// Pagination defaults for listing contacts.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// UpcomingBirthdayDays is the window the birthdays listing looks ahead.
const UpcomingBirthdayDays = 7

// ContactService manages a user's address book. Every operation is scoped
// to the owning user; contacts are never visible across accounts.
type ContactService struct {
	Store store.Store
}

// List returns a page of the owner's contacts.
func (s *ContactService) List(ctx context.Context, userID string, offset, limit int) ([]domain.Contact, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return s.Store.Contacts().ListContacts(ctx, userID, offset, limit)
}

// Get returns one contact by id.
func (s *ContactService) Get(ctx context.Context, userID, id string) (domain.Contact, error) {
	c, err := s.Store.Contacts().GetContactByID(ctx, userID, id)
	if err != nil {
		return domain.Contact{}, mapContactErr(err)
	}
	return c, nil
}

// SearchQuery holds the optional criteria for Search. The first non-empty
// field, checked in declaration order, decides the lookup.
type SearchQuery struct {
	FirstName string
	LastName  string
	Email     string
}

// Search returns the first contact matching the query for this owner.
func (s *ContactService) Search(ctx context.Context, userID string, q SearchQuery) (domain.Contact, error) {
	var (
		c   domain.Contact
		err error
	)
	switch {
	case strings.TrimSpace(q.FirstName) != "":
		c, err = s.Store.Contacts().GetContactByFirstName(ctx, userID, strings.TrimSpace(q.FirstName))
	case strings.TrimSpace(q.LastName) != "":
		c, err = s.Store.Contacts().GetContactByLastName(ctx, userID, strings.TrimSpace(q.LastName))
	case strings.TrimSpace(q.Email) != "":
		c, err = s.Store.Contacts().GetContactByEmail(ctx, userID, strings.TrimSpace(q.Email))
	default:
		return domain.Contact{}, ErrContactNotFound
	}
	if err != nil {
		return domain.Contact{}, mapContactErr(err)
	}
	return c, nil
}

// UpcomingBirthdays lists contacts with a birthday in the next week,
// ignoring the birth year.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, userID string) ([]domain.Contact, error) {
	return s.Store.Contacts().ListUpcomingBirthdays(ctx, userID, time.Now().UTC(), UpcomingBirthdayDays)
}

// Create adds a contact to the owner's book.
func (s *ContactService) Create(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	l := slogx.FromContext(ctx)

	now := time.Now().UTC()
	c.ID = idx.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.Store.Contacts().CreateContact(ctx, c); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Contact{}, ErrContactExists
		}
		return domain.Contact{}, err
	}

	l.Info("contact created", slog.String("contact_id", c.ID), slog.String("user_id", c.UserID))
	return c, nil
}

// Update replaces the mutable fields of an existing contact.
func (s *ContactService) Update(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	if err := s.Store.Contacts().UpdateContact(ctx, c); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Contact{}, ErrContactExists
		}
		return domain.Contact{}, mapContactErr(err)
	}
	return s.Get(ctx, c.UserID, c.ID)
}

// Delete removes the owner's contact.
func (s *ContactService) Delete(ctx context.Context, userID, id string) error {
	return mapContactErr(s.Store.Contacts().DeleteContact(ctx, userID, id))
}

func mapContactErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrContactNotFound
	}
	return err
}
