// Package account covers registration and credentials verification.
package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/elyby/yggdrasil/db"
	"github.com/elyby/yggdrasil/model"
)

const bcryptCost = 10

var now = time.Now

type EmailTakenError struct {
	Email string
}

func (e *EmailTakenError) Error() string {
	return "The email " + e.Email + " is already registered"
}

func NewManager(repo db.AccountsRepository) *Manager {
	return &Manager{AccountsRepo: repo}
}

type Manager struct {
	AccountsRepo db.AccountsRepository
}

func (m *Manager) Register(email string, password string, lang string) (*model.Account, error) {
	if lang == "" {
		lang = "en_US"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Id:           strings.ReplaceAll(uuid.New().String(), "-", ""),
		Email:        email,
		PasswordHash: string(hash),
		Lang:         lang,
	}

	saved, err := m.AccountsRepo.SaveAccount(account)
	if err != nil {
		return nil, err
	}

	if !saved {
		return nil, &EmailTakenError{Email: email}
	}

	return account, nil
}

// Login returns the account when the credentials are correct and
// nil otherwise.
func (m *Manager) Login(email string, password string) (*model.Account, error) {
	account, err := m.AccountsRepo.FindAccountByEmail(email)
	if err != nil {
		return nil, err
	}

	if account == nil {
		return nil, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password))
	if err != nil {
		return nil, nil
	}

	return account, nil
}

func (m *Manager) FindById(id string) (*model.Account, error) {
	return m.AccountsRepo.FindAccountById(id)
}

// Remove deletes the account with its profiles and sessions.
func (m *Manager) Remove(id string) error {
	return m.AccountsRepo.RemoveAccount(id)
}
