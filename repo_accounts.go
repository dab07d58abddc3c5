package session

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshAccountProfileSQL updates display attributes only. Role and
// suspension columns are deliberately absent: a repeat sign-in must never be
// able to touch them, and the ORM update path cannot express "these columns
// and nothing else" for zero values.
var RefreshAccountProfileSQL = `UPDATE "accounts" AS "acc"
SET
	"name" = ?,
	"avatar_url" = ?,
	"phone_number" = ?,
	"updated_at" = ?
WHERE
	("acc"."id" = ?)
RETURNING *;`

var SuspendAccountSQL = `UPDATE "accounts" AS "acc"
SET
	"is_suspended" = TRUE,
	"suspended_at" = ?,
	"updated_at" = ?
WHERE
	("acc"."id" = ?)
RETURNING *;`

// ReinstateAccountSQL clears suspension with raw SQL because the ORM update
// path skips zero-value fields and would never write FALSE.
var ReinstateAccountSQL = `UPDATE "accounts" AS "acc"
SET
	"is_suspended" = FALSE,
	"suspended_at" = NULL,
	"updated_at" = ?
WHERE
	("acc"."id" = ?)
RETURNING *;`

type Accounts interface {
	repository.Repository[*Account]

	GetBySubject(ctx context.Context, subject string) (*Account, error)
	GetBySubjectTx(ctx context.Context, tx bun.IDB, subject string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	RefreshProfile(ctx context.Context, account *Account) (*Account, error)
	RefreshProfileTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)

	Suspend(ctx context.Context, actor ActorRef, account *Account) (*Account, error)
	SuspendTx(ctx context.Context, tx bun.IDB, actor ActorRef, account *Account) (*Account, error)
	Reinstate(ctx context.Context, actor ActorRef, account *Account) (*Account, error)
	ReinstateTx(ctx context.Context, tx bun.IDB, actor ActorRef, account *Account) (*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db       *bun.DB
	activity ActivitySink
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

type AccountsOption func(*accounts)

// WithAccountsActivitySink wires an audit sink for suspension transitions
func WithAccountsActivitySink(sink ActivitySink) AccountsOption {
	return func(a *accounts) {
		a.activity = sink
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoAccounts := &accounts{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}

	repoAccounts.activity = normalizeActivitySink(repoAccounts.activity)

	return repoAccounts
}

func (a *accounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *accounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	options := resolveAccountIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &Account{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *accounts) GetBySubject(ctx context.Context, subject string) (*Account, error) {
	return a.GetBySubjectTx(ctx, a.db, subject)
}

func (a *accounts) GetBySubjectTx(ctx context.Context, tx bun.IDB, subject string) (*Account, error) {
	return a.getByColumnTx(ctx, tx, "provider_subject", strings.TrimSpace(subject))
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.getByColumnTx(ctx, tx, "email", normalizeEmail(email))
}

func (a *accounts) getByColumnTx(ctx context.Context, tx bun.IDB, column, value string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: value,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accounts) RefreshProfile(ctx context.Context, account *Account) (*Account, error) {
	return a.RefreshProfileTx(ctx, a.db, account)
}

func (a *accounts) RefreshProfileTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, tx, RefreshAccountProfileSQL,
		account.Name,
		account.AvatarURL,
		account.Phone,
		time.Now(),
		account.ID.String(),
	)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": account.ID.String(),
			})
	}

	return a.GetByIdentifierTx(ctx, tx, account.ID.String())
}

func (a *accounts) Suspend(ctx context.Context, actor ActorRef, account *Account) (*Account, error) {
	return a.SuspendTx(ctx, a.db, actor, account)
}

func (a *accounts) SuspendTx(ctx context.Context, tx bun.IDB, actor ActorRef, account *Account) (*Account, error) {
	now := time.Now()
	res, err := a.Repository.RawTx(ctx, tx, SuspendAccountSQL, now, now, account.ID.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": account.ID.String(),
			})
	}

	updated, err := a.GetByIdentifierTx(ctx, tx, account.ID.String())
	if err != nil {
		return nil, err
	}

	a.recordTransition(ctx, ActivityEventAccountSuspended, actor, updated)

	return updated, nil
}

func (a *accounts) Reinstate(ctx context.Context, actor ActorRef, account *Account) (*Account, error) {
	return a.ReinstateTx(ctx, a.db, actor, account)
}

func (a *accounts) ReinstateTx(ctx context.Context, tx bun.IDB, actor ActorRef, account *Account) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, tx, ReinstateAccountSQL, time.Now(), account.ID.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": account.ID.String(),
			})
	}

	updated, err := a.GetByIdentifierTx(ctx, tx, account.ID.String())
	if err != nil {
		return nil, err
	}

	a.recordTransition(ctx, ActivityEventAccountReinstated, actor, updated)

	return updated, nil
}

// recordTransition is best effort: a failed audit write never rolls back the
// suspension change itself.
func (a *accounts) recordTransition(ctx context.Context, event ActivityEventType, actor ActorRef, account *Account) {
	_ = a.activity.Record(ctx, ActivityEvent{
		EventType:  event,
		Actor:      actor,
		AccountID:  account.ID.String(),
		Email:      account.Email,
		OccurredAt: time.Now(),
	})
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.EnsureRole()
	record.Email = normalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type identifierOption struct {
	column string
	value  string
}

func resolveAccountIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  normalizeEmail(trimmed),
		})
	}

	options = append(options, identifierOption{
		column: "provider_subject",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
