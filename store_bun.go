package keybot

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore implements CredentialStore over a SQL database. Supabase exposes
// its Postgres instance directly, so this is also the production store when
// a DSN is available.
type BunStore struct {
	db          *bun.DB
	keys        repository.Repository[*RegistrationKey]
	credentials repository.Repository[*Credential]
}

var _ CredentialStore = (*BunStore)(nil)

func NewKeysRepository(db *bun.DB) repository.Repository[*RegistrationKey] {
	handlers := repository.ModelHandlers[*RegistrationKey]{
		NewRecord: func() *RegistrationKey {
			return &RegistrationKey{}
		},
		GetID: func(record *RegistrationKey) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *RegistrationKey, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "key"
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewCredentialsRepository(db *bun.DB) repository.Repository[*Credential] {
	handlers := repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential {
			return &Credential{}
		},
		GetID: func(record *Credential) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Credential, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "userID"
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{
		db:          db,
		keys:        NewKeysRepository(db),
		credentials: NewCredentialsRepository(db),
	}
}

func (s *BunStore) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.db.RunInTx(ctx, opts, f)
	}
}

func (s *BunStore) FindKeyByValue(ctx context.Context, value string) (*RegistrationKey, error) {
	key, err := s.keys.GetByIdentifier(ctx, value)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, storeFailure(err, "find_key")
	}
	return key, nil
}

func (s *BunStore) MarkKeyUsed(ctx context.Context, value string) error {
	res, err := s.db.NewUpdate().
		Model((*RegistrationKey)(nil)).
		Set("? = ?", bun.Ident("used"), true).
		Where("? = ?", bun.Ident("key"), value).
		Exec(ctx)
	if err != nil {
		return storeFailure(err, "mark_key_used")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeFailure(err, "mark_key_used")
	}
	if n == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *BunStore) InsertCredential(ctx context.Context, credential *Credential) error {
	prepareCredentialDefaults(credential)
	if _, err := s.credentials.Create(ctx, credential); err != nil {
		return storeFailure(err, "insert_credential")
	}
	return nil
}

func (s *BunStore) InsertKey(ctx context.Context, key *RegistrationKey) error {
	prepareKeyDefaults(key)
	if _, err := s.keys.Create(ctx, key); err != nil {
		return storeFailure(err, "insert_key")
	}
	return nil
}

// ProvisionCredential claims the key and inserts the credential in one
// transaction. The claim only matches rows with used = false, so a concurrent
// registration that got there first leaves zero affected rows.
func (s *BunStore) ProvisionCredential(ctx context.Context, value string, credential *Credential) error {
	prepareCredentialDefaults(credential)

	return s.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := claimKeyTx(ctx, tx, value); err != nil {
			return err
		}

		if _, err := s.credentials.CreateTx(ctx, tx, credential); err != nil {
			return storeFailure(err, "insert_credential")
		}

		return nil
	})
}

func claimKeyTx(ctx context.Context, tx bun.IDB, value string) error {
	res, err := tx.NewUpdate().
		Model((*RegistrationKey)(nil)).
		Set("? = ?", bun.Ident("used"), true).
		Where("? = ?", bun.Ident("key"), value).
		Where("? = ?", bun.Ident("used"), false).
		Exec(ctx)
	if err != nil {
		return storeFailure(err, "claim_key")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storeFailure(err, "claim_key")
	}
	if n == 0 {
		return ErrKeyUsed
	}
	return nil
}
