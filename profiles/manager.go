// Package profiles manages the named in-game personas owned by
// accounts.
package profiles

import (
	"strings"

	"github.com/google/uuid"

	"github.com/elyby/yggdrasil/db"
	"github.com/elyby/yggdrasil/model"
)

type NameTakenError struct {
	Name string
}

func (e *NameTakenError) Error() string {
	return "The name " + e.Name + " is already taken"
}

type ProfileNotFoundError struct {
	Id string
}

func (e *ProfileNotFoundError) Error() string {
	return "There is no profile " + e.Id
}

// SessionsRevoker soft-revokes the sessions holding a profile when an
// identity-bearing attribute of the profile changes.
type SessionsRevoker interface {
	TemporarilyInvalidateForProfile(profileId string) error
}

func NewManager(repo db.ProfilesRepository, revoker SessionsRevoker) *Manager {
	return &Manager{
		ProfilesRepo: repo,
		Revoker:      revoker,
	}
}

type Manager struct {
	ProfilesRepo db.ProfilesRepository
	Revoker      SessionsRevoker
}

func (m *Manager) Create(accountId string, name string) (*model.Profile, error) {
	profile := &model.Profile{
		Id:        strings.ReplaceAll(uuid.New().String(), "-", ""),
		Name:      name,
		AccountId: accountId,
	}

	saved, err := m.ProfilesRepo.SaveProfile(profile)
	if err != nil {
		return nil, err
	}

	if !saved {
		return nil, &NameTakenError{Name: name}
	}

	return profile, nil
}

// Rename changes the profile name and soft-revokes every valid session
// holding the profile: the already issued tokens carry stale identity
// data and must not start new server joins until refreshed.
func (m *Manager) Rename(id string, name string) error {
	renamed, err := m.ProfilesRepo.UpdateProfileName(id, name)
	if err != nil {
		return err
	}

	if !renamed {
		return &NameTakenError{Name: name}
	}

	return m.Revoker.TemporarilyInvalidateForProfile(id)
}

func (m *Manager) UpdateSkin(id string, skinHash string, isSlim bool) error {
	updated, err := m.ProfilesRepo.UpdateProfileSkin(id, skinHash, isSlim)
	if err != nil {
		return err
	}

	if !updated {
		return &ProfileNotFoundError{Id: id}
	}

	return nil
}

func (m *Manager) UpdateCape(id string, capeHash string) error {
	updated, err := m.ProfilesRepo.UpdateProfileCape(id, capeHash)
	if err != nil {
		return err
	}

	if !updated {
		return &ProfileNotFoundError{Id: id}
	}

	return nil
}

func (m *Manager) Remove(id string) error {
	return m.ProfilesRepo.RemoveProfile(id)
}

func (m *Manager) FindById(id string) (*model.Profile, error) {
	return m.ProfilesRepo.FindProfileById(id)
}

func (m *Manager) FindByName(name string) (*model.Profile, error) {
	return m.ProfilesRepo.FindProfileByName(name)
}

func (m *Manager) ListForAccount(accountId string) ([]*model.Profile, error) {
	return m.ProfilesRepo.FindAccountProfiles(accountId)
}
