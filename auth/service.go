// Package auth implements the authentication protocol on top of the
// accounts, sessions and profiles services: it maps every protocol
// operation onto the domain calls and the protocol-level errors.
package auth

import (
	"errors"

	"github.com/elyby/yggdrasil/model"
	"github.com/elyby/yggdrasil/session"
	"github.com/elyby/yggdrasil/signer"
)

type AccountsAuthenticator interface {
	Login(email string, password string) (*model.Account, error)
	FindById(id string) (*model.Account, error)
}

// AttemptsLimiter throttles the credentials-based operations. Exceeded
// must be consulted before the credentials are even looked at.
type AttemptsLimiter interface {
	Exceeded(key string) bool
	Failure(key string)
}

type SessionsManager interface {
	NewSession(accountId string, clientToken string) (*model.Session, error)
	SelectProfile(accessToken string, profileId string) (bool, error)
	FindByToken(accessToken string) (*model.Session, error)
	FindValidByToken(accessToken string) (*model.Session, error)
	Check(accessToken string, clientToken string, allowTemporarilyInvalid bool) (bool, error)
	Refresh(accessToken string, clientToken string, profileId string) (*model.Session, error)
	Invalidate(accessToken string) error
	InvalidateAll(accountId string) error
}

type ProfilesFinder interface {
	FindById(id string) (*model.Profile, error)
	FindByName(name string) (*model.Profile, error)
	ListForAccount(accountId string) ([]*model.Profile, error)
}

type JoinTickets interface {
	Put(profileId string, serverId string)
	Match(profileId string, serverId string) bool
}

type ProfilesSerializer interface {
	Serialize(profile *model.Profile, withProperties bool, signed bool) (*signer.ProfileResponse, error)
}

type Emitter interface {
	Emit(name string, args ...interface{})
}

// The profiles batch endpoint caps the request size.
const maxProfilesPerRequest = 8

func NewService(
	accounts AccountsAuthenticator,
	limiter AttemptsLimiter,
	sessions SessionsManager,
	profiles ProfilesFinder,
	tickets JoinTickets,
	serializer ProfilesSerializer,
	emitter Emitter,
) *Service {
	return &Service{
		Accounts:   accounts,
		Limiter:    limiter,
		Sessions:   sessions,
		Profiles:   profiles,
		Tickets:    tickets,
		Serializer: serializer,
		Emitter:    emitter,
	}
}

type Service struct {
	Accounts   AccountsAuthenticator
	Limiter    AttemptsLimiter
	Sessions   SessionsManager
	Profiles   ProfilesFinder
	Tickets    JoinTickets
	Serializer ProfilesSerializer
	Emitter    Emitter
}

type UserResponse struct {
	Id    string             `json:"id"`
	Props []*signer.Property `json:"properties"`
}

type AuthenticateResult struct {
	AccessToken       string                    `json:"accessToken"`
	ClientToken       string                    `json:"clientToken"`
	AvailableProfiles []*signer.ProfileResponse `json:"availableProfiles"`
	SelectedProfile   *signer.ProfileResponse   `json:"selectedProfile,omitempty"`
	User              *UserResponse             `json:"user,omitempty"`
}

type RefreshResult struct {
	AccessToken     string                  `json:"accessToken"`
	ClientToken     string                  `json:"clientToken"`
	SelectedProfile *signer.ProfileResponse `json:"selectedProfile,omitempty"`
	User            *UserResponse           `json:"user,omitempty"`
}

// Authenticate verifies the credentials and issues a fresh session.
// A rate-limited caller receives the same error as a caller with wrong
// credentials, so the limiter state cannot be probed. When the account
// owns exactly one profile it is attached to the session right away.
func (s *Service) Authenticate(email string, password string, clientToken string, requestUser bool) (*AuthenticateResult, error) {
	if s.Limiter.Exceeded(email) {
		s.emit("authentication:rate_limited", email)
		return nil, &InvalidCredentialsError{}
	}

	account, err := s.Accounts.Login(email, password)
	if err != nil {
		return nil, err
	}

	if account == nil {
		s.Limiter.Failure(email)
		s.emit("authentication:failed", email)
		return nil, &InvalidCredentialsError{}
	}

	newSession, err := s.Sessions.NewSession(account.Id, clientToken)
	if err != nil {
		return nil, err
	}

	profiles, err := s.Profiles.ListForAccount(account.Id)
	if err != nil {
		return nil, err
	}

	result := &AuthenticateResult{
		AccessToken:       newSession.AccessToken,
		ClientToken:       newSession.ClientToken,
		AvailableProfiles: make([]*signer.ProfileResponse, 0, len(profiles)),
	}

	for _, profile := range profiles {
		serialized, err := s.Serializer.Serialize(profile, false, false)
		if err != nil {
			return nil, err
		}

		result.AvailableProfiles = append(result.AvailableProfiles, serialized)
	}

	if len(profiles) == 1 {
		selected, err := s.Sessions.SelectProfile(newSession.AccessToken, profiles[0].Id)
		if err != nil {
			return nil, err
		}

		if selected {
			result.SelectedProfile = result.AvailableProfiles[0]
		}
	}

	if requestUser {
		result.User = serializeUser(account)
	}

	s.emit("authentication:success", account.Id)

	return result, nil
}

// Refresh rotates the session behind accessToken. The requested profile
// is validated up front: asking to attach a profile to a session that
// already holds one is a malformed request, asking for someone else's
// profile is indistinguishable from a bad token. Without an explicit
// request the successor keeps the profile of the predecessor.
func (s *Service) Refresh(accessToken string, clientToken string, requestedProfileId string, requestUser bool) (*RefreshResult, error) {
	oldSession, err := s.Sessions.FindByToken(accessToken)
	if err != nil {
		return nil, err
	}

	if oldSession == nil {
		return nil, &InvalidTokenError{}
	}

	profileId := oldSession.ProfileId
	if requestedProfileId != "" && requestedProfileId != oldSession.ProfileId {
		if oldSession.ProfileId != "" {
			return nil, &IllegalArgumentError{}
		}

		profile, err := s.Profiles.FindById(requestedProfileId)
		if err != nil {
			return nil, err
		}

		if profile == nil {
			return nil, &IllegalArgumentError{}
		}

		if profile.AccountId != oldSession.AccountId {
			return nil, &InvalidTokenError{}
		}

		profileId = requestedProfileId
	}

	newSession, err := s.Sessions.Refresh(accessToken, clientToken, profileId)
	if err != nil {
		var notSelected *session.ProfileNotSelectedError
		if errors.As(err, &notSelected) {
			// The profile was validated above, so losing the attach
			// means it was revoked or removed concurrently.
			return nil, &InvalidTokenError{}
		}

		return nil, err
	}

	if newSession == nil {
		return nil, &InvalidTokenError{}
	}

	result := &RefreshResult{
		AccessToken: newSession.AccessToken,
		ClientToken: newSession.ClientToken,
	}

	if newSession.ProfileId != "" {
		profile, err := s.Profiles.FindById(newSession.ProfileId)
		if err != nil {
			return nil, err
		}

		if profile != nil {
			result.SelectedProfile, err = s.Serializer.Serialize(profile, false, false)
			if err != nil {
				return nil, err
			}
		}
	}

	if requestUser {
		account, err := s.Accounts.FindById(newSession.AccountId)
		if err != nil {
			return nil, err
		}

		if account != nil {
			result.User = serializeUser(account)
		}
	}

	return result, nil
}

// Validate reports nothing on success and fails for every session that
// is not strictly valid.
func (s *Service) Validate(accessToken string, clientToken string) error {
	ok, err := s.Sessions.Check(accessToken, clientToken, false)
	if err != nil {
		return err
	}

	if !ok {
		return &InvalidTokenError{}
	}

	return nil
}

// Invalidate succeeds unconditionally: revoking an unknown token is
// indistinguishable from revoking a known one.
func (s *Service) Invalidate(accessToken string) error {
	return s.Sessions.Invalidate(accessToken)
}

// SignOut invalidates every session of the account identified by the
// credentials. It shares the limiter with Authenticate.
func (s *Service) SignOut(email string, password string) error {
	if s.Limiter.Exceeded(email) {
		s.emit("authentication:rate_limited", email)
		return &InvalidCredentialsError{}
	}

	account, err := s.Accounts.Login(email, password)
	if err != nil {
		return err
	}

	if account == nil {
		s.Limiter.Failure(email)
		s.emit("authentication:failed", email)
		return &InvalidCredentialsError{}
	}

	return s.Sessions.InvalidateAll(account.Id)
}

// Join records the intent of the profile to join the server identified
// by serverId. It requires a strictly valid session holding exactly the
// claimed profile.
func (s *Service) Join(accessToken string, profileId string, serverId string) error {
	joinSession, err := s.Sessions.FindValidByToken(accessToken)
	if err != nil {
		return err
	}

	if joinSession == nil || joinSession.ProfileId == "" || joinSession.ProfileId != profileId {
		return &InvalidTokenError{}
	}

	s.Tickets.Put(profileId, serverId)
	s.emit("session:join", profileId, serverId)

	return nil
}

// HasJoined resolves the server-side half of the handshake. Every
// negative outcome is reported identically as an absent profile. When
// expectedIp is not empty it must match the caller's remote ip.
func (s *Service) HasJoined(username string, serverId string, expectedIp string, remoteIp string) (*signer.ProfileResponse, error) {
	profile, err := s.Profiles.FindByName(username)
	if err != nil {
		return nil, err
	}

	if profile == nil {
		return nil, nil
	}

	if !s.Tickets.Match(profile.Id, serverId) {
		return nil, nil
	}

	if expectedIp != "" && expectedIp != remoteIp {
		return nil, nil
	}

	s.emit("session:has_joined", profile.Id, serverId)

	return s.Serializer.Serialize(profile, true, true)
}

// Profile returns the full public representation of the profile or nil
// when it does not exist.
func (s *Service) Profile(profileId string, signed bool) (*signer.ProfileResponse, error) {
	profile, err := s.Profiles.FindById(profileId)
	if err != nil {
		return nil, err
	}

	if profile == nil {
		return nil, nil
	}

	return s.Serializer.Serialize(profile, true, signed)
}

// ProfilesByNames resolves up to maxProfilesPerRequest names into bare
// profile representations. Unknown names are silently skipped,
// duplicates are collapsed.
func (s *Service) ProfilesByNames(names []string) ([]*signer.ProfileResponse, error) {
	if len(names) > maxProfilesPerRequest {
		return nil, &TooManyProfilesRequestedError{}
	}

	result := make([]*signer.ProfileResponse, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		profile, err := s.Profiles.FindByName(name)
		if err != nil {
			return nil, err
		}

		if profile == nil || seen[profile.Id] {
			continue
		}

		seen[profile.Id] = true

		serialized, err := s.Serializer.Serialize(profile, false, false)
		if err != nil {
			return nil, err
		}

		result = append(result, serialized)
	}

	return result, nil
}

func serializeUser(account *model.Account) *UserResponse {
	return &UserResponse{
		Id: account.Id,
		Props: []*signer.Property{
			{Name: "preferredLanguage", Value: account.Lang},
		},
	}
}

func (s *Service) emit(name string, args ...interface{}) {
	if s.Emitter != nil {
		s.Emitter.Emit(name, args...)
	}
}
