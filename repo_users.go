package contacts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var StoreSessionTokenSQL = `UPDATE "users" AS "usr"
SET
	"token" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

var ClearSessionTokenSQL = `UPDATE "users" AS "usr"
SET
	"token" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

// MarkVerifiedSQL flips the verification flag and consumes the one-time
// token in a single statement so the same token cannot be replayed.
var MarkVerifiedSQL = `UPDATE "users" AS "usr"
SET
	"is_verified" = TRUE,
	"verification_token" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

var ResetVerificationTokenSQL = `UPDATE "users" AS "usr"
SET
	"verification_token" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

var UpdateAvatarURLSQL = `UPDATE "users" AS "usr"
SET
	"avatar_url" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

// Users is the credential store
type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByVerificationToken(ctx context.Context, token string) (*User, error)

	StoreSessionToken(ctx context.Context, id uuid.UUID, token string) error
	ClearSessionToken(ctx context.Context, id uuid.UUID) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	ResetVerificationToken(ctx context.Context, id uuid.UUID, token string) error
	UpdateAvatarURL(ctx context.Context, id uuid.UUID, url string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

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
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByVerificationToken(ctx context.Context, token string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.verification_token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound()
		}
		return nil, err
	}

	return record, nil
}

// StoreSessionToken overwrites the user's single valid bearer token. Raw
// SQL because a partial ORM update cannot distinguish "clear" from "unset".
func (a *users) StoreSessionToken(ctx context.Context, id uuid.UUID, token string) error {
	return a.execByID(ctx, StoreSessionTokenSQL, token, id)
}

func (a *users) ClearSessionToken(ctx context.Context, id uuid.UUID) error {
	return a.execByID(ctx, ClearSessionTokenSQL, id)
}

func (a *users) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return a.execByID(ctx, MarkVerifiedSQL, id)
}

func (a *users) ResetVerificationToken(ctx context.Context, id uuid.UUID, token string) error {
	return a.execByID(ctx, ResetVerificationTokenSQL, token, id)
}

func (a *users) UpdateAvatarURL(ctx context.Context, id uuid.UUID, url string) error {
	return a.execByID(ctx, UpdateAvatarURLSQL, url, id)
}

func (a *users) execByID(ctx context.Context, sql string, args ...any) error {
	res, err := a.Repository.RawTx(ctx, a.db, sql, args...)
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return recordNotFound()
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.Email); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}

	if record.Subscription == "" {
		record.Subscription = SubscriptionStarter
	}
}
