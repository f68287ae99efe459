// Package db declares the storage contracts consumed by the domain
// services. Implementations live in the memory and redis subpackages.
package db

import (
	"time"

	"github.com/elyby/yggdrasil/model"
)

type AccountsRepository interface {
	FindAccountById(id string) (*model.Account, error)
	FindAccountByEmail(email string) (*model.Account, error)
	// SaveAccount returns false when the email is already taken.
	SaveAccount(account *model.Account) (bool, error)
	// RemoveAccount cascades to the account's profiles and sessions.
	RemoveAccount(id string) error
}

type ProfilesRepository interface {
	FindProfileById(id string) (*model.Profile, error)
	FindProfileByName(name string) (*model.Profile, error)
	FindAccountProfiles(accountId string) ([]*model.Profile, error)
	// SaveProfile returns false when the name is already taken.
	SaveProfile(profile *model.Profile) (bool, error)
	// UpdateProfileName returns false when the profile is unknown
	// or the new name is already taken.
	UpdateProfileName(id string, name string) (bool, error)
	UpdateProfileSkin(id string, skinHash string, isSlim bool) (bool, error)
	UpdateProfileCape(id string, capeHash string) (bool, error)
	// RemoveProfile cascades to the sessions holding the profile.
	RemoveProfile(id string) error
}

type SessionsRepository interface {
	FindSessionByToken(accessToken string) (*model.Session, error)
	SaveSession(session *model.Session) error
	// SelectSessionProfile attaches the profile to the session.
	// The attachment happens only when the session exists, is valid
	// and holds no profile yet; false is returned otherwise.
	SelectSessionProfile(accessToken string, profileId string) (bool, error)
	InvalidateSession(accessToken string) error
	InvalidateAccountSessions(accountId string) error
	// TemporarilyInvalidateProfileSessions soft-revokes every valid
	// session currently holding the profile.
	TemporarilyInvalidateProfileSessions(profileId string) error
	RemoveSession(accessToken string) error
	RemoveSessionsCreatedBefore(edge time.Time) error
}

type TexturesRepository interface {
	// FindTextureByHash returns nil when no blob is stored under the hash.
	FindTextureByHash(hash string) ([]byte, error)
	// SaveTexture is an insert-if-absent: storing the same hash twice is a no-op.
	SaveTexture(hash string, data []byte) error
}

type Pingable interface {
	Ping() error
}
