// Package memory provides a process-local implementation of the storage
// contracts. It backs single-binary setups and the test suites.
package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/elyby/yggdrasil/model"
)

func New() *Memory {
	return &Memory{
		accounts: make(map[string]*model.Account),
		profiles: make(map[string]*model.Profile),
		sessions: make(map[string]*model.Session),
		textures: make(map[string][]byte),
	}
}

type Memory struct {
	lock     sync.RWMutex
	accounts map[string]*model.Account
	profiles map[string]*model.Profile
	sessions map[string]*model.Session
	textures map[string][]byte
}

func (m *Memory) FindAccountById(id string) (*model.Account, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	account, exists := m.accounts[id]
	if !exists {
		return nil, nil
	}

	return copyAccount(account), nil
}

func (m *Memory) FindAccountByEmail(email string) (*model.Account, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, account := range m.accounts {
		if strings.EqualFold(account.Email, email) {
			return copyAccount(account), nil
		}
	}

	return nil, nil
}

func (m *Memory) SaveAccount(account *model.Account) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return false, nil
		}
	}

	m.accounts[account.Id] = copyAccount(account)

	return true, nil
}

func (m *Memory) RemoveAccount(id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.accounts, id)
	for profileId, profile := range m.profiles {
		if profile.AccountId == id {
			delete(m.profiles, profileId)
		}
	}

	for token, session := range m.sessions {
		if session.AccountId == id {
			delete(m.sessions, token)
		}
	}

	return nil
}

func (m *Memory) FindProfileById(id string) (*model.Profile, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	profile, exists := m.profiles[id]
	if !exists {
		return nil, nil
	}

	return copyProfile(profile), nil
}

func (m *Memory) FindProfileByName(name string) (*model.Profile, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	profile := m.findProfileByName(name)
	if profile == nil {
		return nil, nil
	}

	return copyProfile(profile), nil
}

func (m *Memory) FindAccountProfiles(accountId string) ([]*model.Profile, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	var profiles []*model.Profile
	for _, profile := range m.profiles {
		if profile.AccountId == accountId {
			profiles = append(profiles, copyProfile(profile))
		}
	}

	return profiles, nil
}

func (m *Memory) SaveProfile(profile *model.Profile) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.findProfileByName(profile.Name) != nil {
		return false, nil
	}

	if _, exists := m.profiles[profile.Id]; exists {
		return false, nil
	}

	m.profiles[profile.Id] = copyProfile(profile)

	return true, nil
}

func (m *Memory) UpdateProfileName(id string, name string) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	profile, exists := m.profiles[id]
	if !exists {
		return false, nil
	}

	if existing := m.findProfileByName(name); existing != nil && existing.Id != id {
		return false, nil
	}

	profile.Name = name

	return true, nil
}

func (m *Memory) UpdateProfileSkin(id string, skinHash string, isSlim bool) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	profile, exists := m.profiles[id]
	if !exists {
		return false, nil
	}

	profile.SkinHash = skinHash
	profile.IsSlim = isSlim

	return true, nil
}

func (m *Memory) UpdateProfileCape(id string, capeHash string) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	profile, exists := m.profiles[id]
	if !exists {
		return false, nil
	}

	profile.CapeHash = capeHash

	return true, nil
}

func (m *Memory) RemoveProfile(id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.profiles, id)
	for token, session := range m.sessions {
		if session.ProfileId == id {
			delete(m.sessions, token)
		}
	}

	return nil
}

func (m *Memory) FindSessionByToken(accessToken string) (*model.Session, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	session, exists := m.sessions[accessToken]
	if !exists {
		return nil, nil
	}

	return copySession(session), nil
}

func (m *Memory) SaveSession(session *model.Session) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.sessions[session.AccessToken] = copySession(session)

	return nil
}

func (m *Memory) SelectSessionProfile(accessToken string, profileId string) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	session, exists := m.sessions[accessToken]
	if !exists || session.Status != model.SessionValid || session.ProfileId != "" {
		return false, nil
	}

	session.ProfileId = profileId

	return true, nil
}

func (m *Memory) InvalidateSession(accessToken string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if session, exists := m.sessions[accessToken]; exists {
		session.Status = model.SessionInvalid
	}

	return nil
}

func (m *Memory) InvalidateAccountSessions(accountId string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, session := range m.sessions {
		if session.AccountId == accountId {
			session.Status = model.SessionInvalid
		}
	}

	return nil
}

func (m *Memory) TemporarilyInvalidateProfileSessions(profileId string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, session := range m.sessions {
		if session.ProfileId == profileId && session.Status == model.SessionValid {
			session.Status = model.SessionTemporarilyInvalid
		}
	}

	return nil
}

func (m *Memory) RemoveSession(accessToken string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.sessions, accessToken)

	return nil
}

func (m *Memory) RemoveSessionsCreatedBefore(edge time.Time) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for token, session := range m.sessions {
		if session.CreatedAt.Before(edge) {
			delete(m.sessions, token)
		}
	}

	return nil
}

func (m *Memory) FindTextureByHash(hash string) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	data, exists := m.textures[hash]
	if !exists {
		return nil, nil
	}

	result := make([]byte, len(data))
	copy(result, data)

	return result, nil
}

func (m *Memory) SaveTexture(hash string, data []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, exists := m.textures[hash]; exists {
		return nil
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	m.textures[hash] = stored

	return nil
}

func (m *Memory) Ping() error {
	return nil
}

// m.lock must be held by the caller.
func (m *Memory) findProfileByName(name string) *model.Profile {
	for _, profile := range m.profiles {
		if strings.EqualFold(profile.Name, name) {
			return profile
		}
	}

	return nil
}

func copyAccount(account *model.Account) *model.Account {
	result := *account
	return &result
}

func copyProfile(profile *model.Profile) *model.Profile {
	result := *profile
	return &result
}

func copySession(session *model.Session) *model.Session {
	result := *session
	return &result
}
