package accounts

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

const (
	pgUniqueViolation    = "23505"
	usersEmailConstraint = "users_email_key"
)

// Users is the credential store. Lookups return ErrUserNotFound when no
// record matches, writes colliding on email return ErrEmailInUse.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdateByID(ctx context.Context, id uuid.UUID, record *User) (*User, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns a bun backed Users store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record, err := a.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, a.mapError(err, map[string]any{"id": id.String()})
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, a.mapError(err, map[string]any{"email": email})
	}
	return record, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, a.mapError(err, map[string]any{"email": record.Email})
	}
	return created, nil
}

// UpdateByID writes every mutable column, zero values included, so a patch
// merged by the caller is persisted as is. UpdatedAt is written as given,
// a zero value is stamped with the current time.
func (a *users) UpdateByID(ctx context.Context, id uuid.UUID, record *User) (*User, error) {
	record.ID = id
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	res, err := a.db.NewUpdate().
		Model(record).
		Column("email", "name", "password_hash", "email_status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, a.mapError(err, map[string]any{"id": id.String()})
	}

	if !affectedOne(res) {
		return nil, withMetadata(ErrUserNotFound, map[string]any{"id": id.String()})
	}

	return a.GetByID(ctx, id)
}

func (a *users) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return a.mapError(err, map[string]any{"id": id.String()})
	}

	if !affectedOne(res) {
		return withMetadata(ErrUserNotFound, map[string]any{"id": id.String()})
	}

	return nil
}

func (a *users) mapError(err error, meta map[string]any) error {
	if err == nil {
		return nil
	}

	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return withMetadata(ErrUserNotFound, meta)
	}

	if isEmailUniqueViolation(err) {
		return withMetadata(ErrEmailInUse, meta)
	}

	storeErr := goerrors.New("users store error", goerrors.CategoryInternal).WithMetadata(meta)
	storeErr.Source = err
	return storeErr
}

// isEmailUniqueViolation matches a unique violation on the email column:
// the postgres unique_violation code on users_email_key and the sqlite
// constraint message. Collisions on other columns, the primary key included,
// are not email conflicts.
func isEmailUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation &&
			(pgErr.ConstraintName == usersEmailConstraint || pgErr.ColumnName == "email")
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed: users.email") {
		return true
	}

	lower := strings.ToLower(msg)
	return strings.Contains(lower, "duplicate key") && strings.Contains(lower, usersEmailConstraint)
}

func affectedOne(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n == 1
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.EmailStatus == "" {
		record.EmailStatus = EmailStatusUnverified
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
