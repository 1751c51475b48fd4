package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/addrbook/addrbook/internal/domain"
)

type contactsRepo struct {
	db dbtx
}

const contactColumns = `id, user_id, first_name, last_name, email, phone, birthday, extra_info, created_at, updated_at`

func scanContact(row interface{ Scan(dest ...any) error }) (domain.Contact, error) {
	var (
		c        domain.Contact
		birthday sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&birthday,
		&c.ExtraInfo,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Contact{}, mapNotFound(err)
	}
	c.Birthday, err = mapBirthdayNull(birthday)
	if err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

func collectContacts(rows *sql.Rows) ([]domain.Contact, error) {
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *contactsRepo) ListContacts(ctx context.Context, userID string, offset, limit int) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE user_id = ?
		 ORDER BY id
		 LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectContacts(rows)
}

func (r *contactsRepo) GetContactByID(ctx context.Context, userID, id string) (domain.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = ? AND id = ?`,
		userID, id)
	return scanContact(row)
}

func (r *contactsRepo) GetContactByFirstName(ctx context.Context, userID, firstName string) (domain.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE user_id = ? AND first_name = ?
		 ORDER BY id LIMIT 1`,
		userID, firstName)
	return scanContact(row)
}

func (r *contactsRepo) GetContactByLastName(ctx context.Context, userID, lastName string) (domain.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE user_id = ? AND last_name = ?
		 ORDER BY id LIMIT 1`,
		userID, lastName)
	return scanContact(row)
}

func (r *contactsRepo) GetContactByEmail(ctx context.Context, userID, email string) (domain.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = ? AND email = ?`,
		userID, email)
	return scanContact(row)
}

// ListUpcomingBirthdays matches on month-day only. When the window crosses a
// year boundary the comparison is split into two ranges.
func (r *contactsRepo) ListUpcomingBirthdays(ctx context.Context, userID string, from time.Time, days int) ([]domain.Contact, error) {
	start := from.Format("01-02")
	end := from.AddDate(0, 0, days).Format("01-02")

	var (
		rows *sql.Rows
		err  error
	)
	if start <= end {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+contactColumns+` FROM contacts
			 WHERE user_id = ? AND birthday IS NOT NULL
			   AND strftime('%m-%d', birthday) BETWEEN ? AND ?
			 ORDER BY strftime('%m-%d', birthday), id`,
			userID, start, end)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+contactColumns+` FROM contacts
			 WHERE user_id = ? AND birthday IS NOT NULL
			   AND (strftime('%m-%d', birthday) >= ? OR strftime('%m-%d', birthday) <= ?)
			 ORDER BY strftime('%m-%d', birthday), id`,
			userID, start, end)
	}
	if err != nil {
		return nil, err
	}
	return collectContacts(rows)
}

func (r *contactsRepo) CreateContact(ctx context.Context, c domain.Contact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, user_id, first_name, last_name, email, phone, birthday, extra_info, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		mapOptionalBirthday(c.Birthday),
		c.ExtraInfo,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return mapConflict(err)
}

func (r *contactsRepo) UpdateContact(ctx context.Context, c domain.Contact) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts
		 SET first_name = ?, last_name = ?, email = ?, phone = ?, birthday = ?, extra_info = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		mapOptionalBirthday(c.Birthday),
		c.ExtraInfo,
		time.Now().UTC(),
		c.UserID,
		c.ID,
	)
	if err != nil {
		return mapConflict(err)
	}
	return requireRowAffected(res)
}

func (r *contactsRepo) DeleteContact(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE user_id = ? AND id = ?`,
		userID, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}
