// Package session implements the tokens ledger: issuance, one-shot
// profile selection, status checks, atomic rotation and the recurring
// expiry sweep, along with the short-lived server join tickets.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elyby/yggdrasil/db"
	"github.com/elyby/yggdrasil/model"
)

var now = time.Now

type Emitter interface {
	Emit(name string, args ...interface{})
}

func NewManager(repo db.SessionsRepository, emitter Emitter) *Manager {
	return &Manager{
		SessionsRepo: repo,
		Emitter:      emitter,
		Expiration:   15 * 24 * time.Hour,
		GCPeriod:     30 * time.Second,
	}
}

type Manager struct {
	SessionsRepo db.SessionsRepository
	Emitter      Emitter

	// Sessions created more than Expiration ago are treated as
	// nonexistent and are physically removed by the sweep.
	Expiration time.Duration
	GCPeriod   time.Duration

	// Serializes multi-step mutations (currently only Refresh), so
	// a stale access token can never mint two live successors.
	mutex sync.Mutex
	done  chan struct{}
}

// NewSession issues a valid session for the account. When clientToken
// is empty a new one is generated.
func (m *Manager) NewSession(accountId string, clientToken string) (*model.Session, error) {
	if clientToken == "" {
		clientToken = strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	session := &model.Session{
		AccessToken: generateAccessToken(),
		ClientToken: clientToken,
		AccountId:   accountId,
		CreatedAt:   now(),
		Status:      model.SessionValid,
	}

	err := m.SessionsRepo.SaveSession(session)
	if err != nil {
		return nil, err
	}

	m.emit("sessions:created", session.AccountId)

	return session, nil
}

// SelectProfile attaches the profile to the session. The attachment is
// a one-shot operation: it succeeds only when the session is valid and
// holds no profile yet.
func (m *Manager) SelectProfile(accessToken string, profileId string) (bool, error) {
	return m.SessionsRepo.SelectSessionProfile(accessToken, profileId)
}

// FindByToken performs a raw lookup regardless of the session status.
// Expired sessions are reported as absent even before the sweep
// removes them.
func (m *Manager) FindByToken(accessToken string) (*model.Session, error) {
	session, err := m.SessionsRepo.FindSessionByToken(accessToken)
	if err != nil {
		return nil, err
	}

	if session == nil || m.isExpired(session) {
		return nil, nil
	}

	return session, nil
}

// FindValidByToken returns the session only when its status is valid.
func (m *Manager) FindValidByToken(accessToken string) (*model.Session, error) {
	session, err := m.FindByToken(accessToken)
	if err != nil {
		return nil, err
	}

	if session == nil || session.Status != model.SessionValid {
		return nil, nil
	}

	return session, nil
}

// Check reports whether the token identifies a live session and, when
// clientToken is not empty, whether it matches the stored one.
func (m *Manager) Check(accessToken string, clientToken string, allowTemporarilyInvalid bool) (bool, error) {
	session, err := m.FindByToken(accessToken)
	if err != nil {
		return false, err
	}

	if session == nil {
		return false, nil
	}

	switch session.Status {
	case model.SessionValid:
		// always acceptable
	case model.SessionTemporarilyInvalid:
		if !allowTemporarilyInvalid {
			return false, nil
		}
	case model.SessionInvalid:
		return false, nil
	default:
		return false, nil
	}

	return clientToken == "" || session.ClientToken == clientToken, nil
}

// Refresh atomically replaces the session behind accessToken with a
// freshly minted one for the same account and client token, optionally
// attaching the requested profile to the successor, and invalidates
// the old session. Nil is returned when the token is unknown or the
// supplied client token does not match. When two refreshes race over
// the same token, exactly one of them wins.
func (m *Manager) Refresh(accessToken string, clientToken string, profileId string) (*model.Session, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, err := m.FindByToken(accessToken)
	if err != nil {
		return nil, err
	}

	if session == nil || session.Status == model.SessionInvalid {
		return nil, nil
	}

	if clientToken != "" && clientToken != session.ClientToken {
		return nil, nil
	}

	newSession, err := m.NewSession(session.AccountId, session.ClientToken)
	if err != nil {
		return nil, err
	}

	if profileId != "" {
		ok, err := m.SelectProfile(newSession.AccessToken, profileId)
		if err == nil && !ok {
			err = &ProfileNotSelectedError{ProfileId: profileId}
		}

		if err != nil {
			// Roll the minted session back: the region is exclusive,
			// so the compensation is exact.
			_ = m.SessionsRepo.RemoveSession(newSession.AccessToken)
			return nil, err
		}

		newSession.ProfileId = profileId
	}

	err = m.SessionsRepo.InvalidateSession(session.AccessToken)
	if err != nil {
		_ = m.SessionsRepo.RemoveSession(newSession.AccessToken)
		return nil, err
	}

	m.emit("sessions:refreshed", session.AccountId)

	return newSession, nil
}

func (m *Manager) Invalidate(accessToken string) error {
	return m.SessionsRepo.InvalidateSession(accessToken)
}

func (m *Manager) InvalidateAll(accountId string) error {
	return m.SessionsRepo.InvalidateAccountSessions(accountId)
}

// TemporarilyInvalidateForProfile soft-revokes the valid sessions
// holding the profile. Used when an identity-bearing attribute of the
// profile (its name) changes.
func (m *Manager) TemporarilyInvalidateForProfile(profileId string) error {
	return m.SessionsRepo.TemporarilyInvalidateProfileSessions(profileId)
}

// Start launches the recurring sweep that physically removes sessions
// past their expiration, regardless of status.
func (m *Manager) Start() {
	if m.done != nil {
		return
	}

	m.done = make(chan struct{})
	ticker := time.NewTicker(m.GCPeriod)
	go func() {
		for {
			select {
			case <-m.done:
				ticker.Stop()
				return
			case <-ticker.C:
				_ = m.SessionsRepo.RemoveSessionsCreatedBefore(now().Add(-m.Expiration))
			}
		}
	}()
}

func (m *Manager) Stop() {
	if m.done == nil {
		return
	}

	close(m.done)
	m.done = nil
}

// The expiry check strictly precedes any status check: a session past
// its expiration never authenticates, even when the sweep has not
// removed it yet.
func (m *Manager) isExpired(session *model.Session) bool {
	return session.CreatedAt.Add(m.Expiration).Before(now())
}

func (m *Manager) emit(name string, args ...interface{}) {
	if m.Emitter != nil {
		m.Emitter.Emit(name, args...)
	}
}

func generateAccessToken() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic(err)
	}

	return hex.EncodeToString(bytes)
}
