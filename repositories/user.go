//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"direct-chat/domain"
	chaterrors "direct-chat/errors"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (domain.UserID, error)
	GetUserByEmail(email string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// User is the account behind a UserID. Only the registration/login flow reads it.
type User struct {
	ID           domain.UserID
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

type DiskUser struct {
	ID           string   `cbor:"id"`
	Email        string   `cbor:"email"`
	PasswordHash string   `cbor:"password_hash"`
	Roles        []string `cbor:"roles"`
	CreatedAt    int64    `cbor:"created_at"`
}

// CreateUser persists a new account and returns its generated identity.
// Emails are compared case-insensitively.
func (u *UserRepository) CreateUser(email, hashedPassword string) (domain.UserID, error) {
	disk := DiskUser{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC().Unix(),
	}
	data, err := cbor.Marshal(disk)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := userKey(disk.Email)
		if _, err := txn.Get(key); err == nil {
			return chaterrors.ErrUserAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return "", err
	}
	return domain.UserID(disk.ID), nil
}

func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var disk DiskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(normalizeEmail(email)))
		if err != nil {
			return err // Will be handled as ErrInvalidCredentials by the service
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return cbor.Unmarshal(value, &disk)
	})
	if err != nil {
		return User{}, err
	}
	return toUser(disk), nil
}

func userKey(email string) []byte {
	return []byte("user:" + email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUser(disk DiskUser) User {
	return User{
		ID:           domain.UserID(disk.ID),
		Email:        disk.Email,
		PasswordHash: disk.PasswordHash,
		Roles:        disk.Roles,
		CreatedAt:    time.Unix(disk.CreatedAt, 0).UTC(),
	}
}
