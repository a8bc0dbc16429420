package garden

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the users store
type Users interface {
	UserFinder
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	IdentifierTakenTx(ctx context.Context, tx bun.IDB, identifiers ...string) (bool, error)
	Create(ctx context.Context, user *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

type users struct {
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

// NewUsersRepository returns a bun backed Users store
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db, now: time.Now}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user := new(User)
	err := a.db.NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, ErrIdentityNotFound)
	}
	return user, nil
}

// GetByIdentifier finds a user by email or username, case insensitive
func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, ErrIdentityNotFound
	}

	user := new(User)
	err := tx.NewSelect().
		Model(user).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(?TableAlias.email) = ?", identifier).
				WhereOr("LOWER(?TableAlias.username) = ?", identifier)
		}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, ErrIdentityNotFound)
	}
	return user, nil
}

// IdentifierTakenTx reports whether any identifier matches the email or
// username of a user, soft deleted rows included.
func (a *users) IdentifierTakenTx(ctx context.Context, tx bun.IDB, identifiers ...string) (bool, error) {
	values := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		if identifier = strings.ToLower(strings.TrimSpace(identifier)); identifier != "" {
			values = append(values, identifier)
		}
	}
	if len(values) == 0 {
		return false, nil
	}

	return tx.NewSelect().
		Model((*User)(nil)).
		WhereAllWithDeleted().
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(?TableAlias.email) IN (?)", bun.In(values)).
				WhereOr("LOWER(?TableAlias.username) IN (?)", bun.In(values))
		}).
		Exists(ctx)
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	return a.CreateTx(ctx, a.db, user)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = RoleMember
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	now := a.now()
	user.CreatedAt = &now
	user.UpdatedAt = &now

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, wrapSentinel(ErrUserExists, err, nil)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "insert user")
	}
	return user, nil
}

// TrackAttemptedLogin increments the failed attempts counter
func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	now := a.now()
	user.LoginAttempts++
	user.LoginAttemptAt = &now
	user.UpdatedAt = &now

	_, err := a.db.NewUpdate().
		Model(user).
		Column("login_attempts", "login_attempt_at", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// TrackSuccessfulLogin resets the attempts counter and stamps the login
func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	now := a.now()
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	user.LoggedInAt = &now
	user.UpdatedAt = &now

	_, err := a.db.NewUpdate().
		Model(user).
		Column("login_attempts", "login_attempt_at", "loggedin_at", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func notFound(err error, sentinel *errors.Error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return errors.Wrap(err, errors.CategoryInternal, "query failed")
}

// isUniqueViolation matches sqlite and postgres unique constraint errors
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
