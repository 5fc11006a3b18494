package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"planos/internal/platform/database"
)

// SQLRepository implements Repository on top of PostgreSQL or SQLite.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository creates a new SQLRepository.
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const userColumns = `id, subject_id, email, display_name, picture_url, created_at`

// FindBySubject looks up a user by the provider subject identifier.
func (r *SQLRepository) FindBySubject(ctx context.Context, subjectID string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE subject_id = ?`, subjectID)
}

// FindByEmail looks up a user by email address.
func (r *SQLRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *SQLRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var user *User
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var row userRow
		if err := tx.GetContext(ctx, &row, tx.Rebind(query), arg); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		u := row.toUser()
		user = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new user and returns it with the generated id.
func (r *SQLRepository) Create(ctx context.Context, user User) (User, error) {
	var created User
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insert = `
			INSERT INTO users (subject_id, email, display_name, picture_url)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`
		var id int64
		if err := tx.GetContext(ctx, &id, tx.Rebind(insert),
			user.SubjectID,
			user.Email,
			user.DisplayName,
			nullString(user.PictureURL),
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateUser, user.Email)
			}
			return err
		}

		var row userRow
		if err := tx.GetContext(ctx, &row, tx.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id); err != nil {
			return err
		}
		created = row.toUser()
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return created, nil
}

// UpdateProfile refreshes the mutable profile columns of an existing user.
func (r *SQLRepository) UpdateProfile(ctx context.Context, id int64, email, displayName string, pictureURL *string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const update = `UPDATE users SET email = ?, display_name = ?, picture_url = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, tx.Rebind(update), email, displayName, nullString(pictureURL), id); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateUser, email)
			}
			return err
		}
		return nil
	})
}

type userRow struct {
	ID          int64          `db:"id"`
	SubjectID   string         `db:"subject_id"`
	Email       string         `db:"email"`
	DisplayName string         `db:"display_name"`
	PictureURL  sql.NullString `db:"picture_url"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r userRow) toUser() User {
	user := User{
		ID:          r.ID,
		SubjectID:   r.SubjectID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		CreatedAt:   r.CreatedAt,
	}
	if r.PictureURL.Valid {
		picture := r.PictureURL.String
		user.PictureURL = &picture
	}
	return user
}

func nullString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// isUniqueViolation recognizes unique constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
