package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/go-review-ledger/internal/domain"
)

var (
	bucketRegistry = []byte("registry")
	stateKey       = []byte("state")
)

// RegistryStore persists the account registry as a single JSON record inside
// a bbolt file. Every mutation is one bbolt write transaction, so reads,
// slot allocation and token rotation are serialized across goroutines.
type RegistryStore struct {
	db *bbolt.DB
}

// NewRegistryStore opens (or creates) the registry file at path and seeds an
// empty registry when none is stored yet.
func NewRegistryStore(path string) (*RegistryStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &RegistryStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}
	return s, nil
}

// Close closes the database file.
func (s *RegistryStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *RegistryStore) init() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketRegistry)
		if err != nil {
			return fmt.Errorf("failed to create registry bucket: %w", err)
		}
		if b.Get(stateKey) != nil {
			return nil
		}
		return save(b, domain.NewAccountRegistry())
	})
}

// Allocate stores u under the next free account slot. The duplicate check,
// slot assignment and counter increment happen in one write transaction.
func (s *RegistryStore) Allocate(_ context.Context, u *domain.User) (*domain.User, error) {
	var created domain.User
	err := s.update(func(reg *domain.AccountRegistry) error {
		if reg.IndexByEmail(u.Email) >= 0 {
			return domain.ErrDuplicateEmail
		}
		created = reg.Append(*u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RotateToken replaces the stored session token of userID.
func (s *RegistryStore) RotateToken(_ context.Context, userID, token string) error {
	return s.update(func(reg *domain.AccountRegistry) error {
		i := reg.IndexByID(userID)
		if i < 0 {
			return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		reg.Users[i].SessionToken = token
		return nil
	})
}

func (s *RegistryStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(reg *domain.AccountRegistry) int { return reg.IndexByEmail(email) })
}

func (s *RegistryStore) GetByToken(_ context.Context, token string) (*domain.User, error) {
	return s.find(func(reg *domain.AccountRegistry) int { return reg.IndexByToken(token) })
}

// Size returns the number of registered users, which equals the next slot.
func (s *RegistryStore) Size(_ context.Context) (int, error) {
	var n int
	err := s.view(func(reg *domain.AccountRegistry) error {
		n = reg.NextSlot
		return nil
	})
	return n, err
}

func (s *RegistryStore) find(index func(*domain.AccountRegistry) int) (*domain.User, error) {
	var found *domain.User
	err := s.view(func(reg *domain.AccountRegistry) error {
		i := index(reg)
		if i < 0 {
			return fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		u := reg.Users[i]
		found = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *RegistryStore) view(fn func(*domain.AccountRegistry) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRegistry)
		if b == nil {
			return fmt.Errorf("registry bucket not found")
		}
		reg, err := load(b)
		if err != nil {
			return err
		}
		return fn(reg)
	})
}

// update runs fn against the registry and persists the result. Returning an
// error from fn rolls the transaction back.
func (s *RegistryStore) update(fn func(*domain.AccountRegistry) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRegistry)
		if b == nil {
			return fmt.Errorf("registry bucket not found")
		}
		reg, err := load(b)
		if err != nil {
			return err
		}
		if err := fn(reg); err != nil {
			return err
		}
		return save(b, reg)
	})
}

func load(b *bbolt.Bucket) (*domain.AccountRegistry, error) {
	data := b.Get(stateKey)
	if data == nil {
		return domain.NewAccountRegistry(), nil
	}
	reg := &domain.AccountRegistry{}
	if err := json.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry: %w", err)
	}
	if reg.Users == nil {
		reg.Users = []domain.User{}
	}
	return reg, nil
}

func save(b *bbolt.Bucket, reg *domain.AccountRegistry) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := b.Put(stateKey, data); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}
