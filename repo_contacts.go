package contacts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// DefaultPageSize is applied when a list request carries no limit
	DefaultPageSize = 10
	// MaxPageSize bounds how much a single list request may ask for
	MaxPageSize = 100
)

// Contacts is the owner-scoped contact store. Every lookup that targets a
// single record filters on id and owner simultaneously, so "not found" and
// "not yours" are indistinguishable to the caller.
type Contacts interface {
	repository.Repository[*Contact]

	ListByOwner(ctx context.Context, owner uuid.UUID, page, limit int) ([]*Contact, error)
	GetOwned(ctx context.Context, owner, id uuid.UUID) (*Contact, error)
	CreateOwned(ctx context.Context, record *Contact) (*Contact, error)
	UpdateOwned(ctx context.Context, record *Contact) (*Contact, error)
	SetFavorite(ctx context.Context, owner, id uuid.UUID, favorite bool) (*Contact, error)
	DeleteOwned(ctx context.Context, owner, id uuid.UUID) error
}

type contactsRepo struct {
	repository.Repository[*Contact]
	db *bun.DB
}

var (
	_ Contacts                        = (*contactsRepo)(nil)
	_ repository.Repository[*Contact] = (*contactsRepo)(nil)
)

func NewContactsRepository(db *bun.DB) Contacts {
	repo := repository.NewRepository[*Contact](db, repository.ModelHandlers[*Contact]{
		NewRecord: func() *Contact { return &Contact{} },
		GetID: func(c *Contact) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Contact, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
	})

	return &contactsRepo{
		Repository: repo,
		db:         db,
	}
}

// ListByOwner returns one pagination window of the owner's contacts in
// natural storage order. page is 1-based.
func (r *contactsRepo) ListByOwner(ctx context.Context, owner uuid.UUID, page, limit int) ([]*Contact, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	records := []*Contact{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.owner_id = ?", owner).
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *contactsRepo) GetOwned(ctx context.Context, owner, id uuid.UUID) (*Contact, error) {
	return r.getOwnedTx(ctx, r.db, owner, id)
}

func (r *contactsRepo) getOwnedTx(ctx context.Context, tx bun.IDB, owner, id uuid.UUID) (*Contact, error) {
	record := &Contact{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.owner_id = ?", owner).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *contactsRepo) CreateOwned(ctx context.Context, record *Contact) (*Contact, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, r.db, record)
}

// UpdateOwned replaces the mutable payload of an owned contact. OwnerID
// participates in the WHERE clause, never in the SET list.
func (r *contactsRepo) UpdateOwned(ctx context.Context, record *Contact) (*Contact, error) {
	res, err := r.db.NewUpdate().
		Model(record).
		Column("name", "email", "phone", "favorite").
		Where("?TableAlias.id = ?", record.ID).
		Where("?TableAlias.owner_id = ?", record.OwnerID).
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, recordNotFound()
	}

	return r.getOwnedTx(ctx, r.db, record.OwnerID, record.ID)
}

func (r *contactsRepo) SetFavorite(ctx context.Context, owner, id uuid.UUID, favorite bool) (*Contact, error) {
	res, err := r.db.NewUpdate().
		Model((*Contact)(nil)).
		Set("favorite = ?", favorite).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.owner_id = ?", owner).
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, recordNotFound()
	}

	return r.getOwnedTx(ctx, r.db, owner, id)
}

func (r *contactsRepo) DeleteOwned(ctx context.Context, owner, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Contact)(nil)).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.owner_id = ?", owner).
		Exec(ctx)

	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return recordNotFound()
	}

	return nil
}
