// Package redis is the production storage backend. Records are kept as
// zlib-compressed json blobs, secondary indexes live in plain hashes,
// sets and a sorted set for the sessions creation time.
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/mediocregopher/radix/v4"

	"github.com/elyby/yggdrasil/db"
	"github.com/elyby/yggdrasil/model"
)

const emailToAccountKey = "hash:email-to-account"
const nameToProfileKey = "hash:name-to-profile"
const sessionsCreatedAtKey = "zset:sessions-created-at"

type Redis struct {
	client     radix.Client
	context    context.Context
	serializer db.RecordSerializer
}

func New(ctx context.Context, serializer db.RecordSerializer, addr string, poolSize int) (*Redis, error) {
	client, err := (radix.PoolConfig{Size: poolSize}).New(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Redis{
		client:     client,
		context:    ctx,
		serializer: serializer,
	}, nil
}

func (r *Redis) FindAccountById(id string) (*model.Account, error) {
	var account *model.Account
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		var err error
		account, err = r.findAccountById(ctx, conn, id)

		return err
	}))

	return account, err
}

func (r *Redis) findAccountById(ctx context.Context, conn radix.Conn, id string) (*model.Account, error) {
	var encodedResult []byte
	err := conn.Do(ctx, radix.Cmd(&encodedResult, "GET", accountKey(id)))
	if err != nil {
		return nil, err
	}

	if len(encodedResult) == 0 {
		return nil, nil
	}

	var account model.Account
	err = r.serializer.Deserialize(encodedResult, &account)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *Redis) FindAccountByEmail(email string) (*model.Account, error) {
	var account *model.Account
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		id, err := r.findAccountIdByEmail(ctx, conn, email)
		if err != nil || id == "" {
			return err
		}

		account, err = r.findAccountById(ctx, conn, id)

		return err
	}))

	return account, err
}

func (r *Redis) findAccountIdByEmail(ctx context.Context, conn radix.Conn, email string) (string, error) {
	var id string
	return id, conn.Do(ctx, radix.Cmd(&id, "HGET", emailToAccountKey, emailHashKey(email)))
}

func (r *Redis) SaveAccount(account *model.Account) (bool, error) {
	var saved bool
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		existingId, err := r.findAccountIdByEmail(ctx, conn, account.Email)
		if err != nil {
			return err
		}

		if existingId != "" && existingId != account.Id {
			return nil
		}

		serialized, err := r.serializer.Serialize(account)
		if err != nil {
			return err
		}

		err = conn.Do(ctx, radix.Cmd(nil, "MULTI"))
		if err != nil {
			return err
		}

		err = conn.Do(ctx, radix.FlatCmd(nil, "SET", accountKey(account.Id), serialized))
		if err != nil {
			return err
		}

		err = conn.Do(ctx, radix.FlatCmd(nil, "HSET", emailToAccountKey, emailHashKey(account.Email), account.Id))
		if err != nil {
			return err
		}

		err = conn.Do(ctx, radix.Cmd(nil, "EXEC"))
		if err != nil {
			return err
		}

		saved = true

		return nil
	}))

	return saved, err
}

func (r *Redis) RemoveAccount(id string) error {
	return r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		account, err := r.findAccountById(ctx, conn, id)
		if err != nil || account == nil {
			return err
		}

		var profileIds []string
		err = conn.Do(ctx, radix.Cmd(&profileIds, "SMEMBERS", accountProfilesKey(id)))
		if err != nil {
			return err
		}

		for _, profileId := range profileIds {
			err = r.removeProfile(ctx, conn, profileId)
			if err != nil {
				return err
			}
		}

		var tokens []string
		err = conn.Do(ctx, radix.Cmd(&tokens, "SMEMBERS", accountSessionsKey(id)))
		if err != nil {
			return err
		}

		for _, token := range tokens {
			err = r.removeSession(ctx, conn, token)
			if err != nil {
				return err
			}
		}

		err = conn.Do(ctx, radix.Cmd(nil, "MULTI"))
		if err != nil {
			return err
		}

		err = conn.Do(ctx, radix.Cmd(nil, "HDEL", emailToAccountKey, emailHashKey(account.Email)))
		if err != nil {
			return err
		}

		err = conn.Do(ctx, radix.Cmd(nil, "DEL", accountKey(id), accountProfilesKey(id), accountSessionsKey(id)))
		if err != nil {
			return err
		}

		return conn.Do(ctx, radix.Cmd(nil, "EXEC"))
	}))
}

func (r *Redis) FindProfileById(id string) (*model.Profile, error) {
	var profile *model.Profile
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		var err error
		profile, err = r.findProfileById(ctx, conn, id)

		return err
	}))

	return profile, err
}

func (r *Redis) findProfileById(ctx context.Context, conn radix.Conn, id string) (*model.Profile, error) {
	var encodedResult []byte
	err := conn.Do(ctx, radix.Cmd(&encodedResult, "GET", profileKey(id)))
	if err != nil {
		return nil, err
	}

	if len(encodedResult) == 0 {
		return nil, nil
	}

	var profile model.Profile
	err = r.serializer.Deserialize(encodedResult, &profile)
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *Redis) FindProfileByName(name string) (*model.Profile, error) {
	var profile *model.Profile
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		id, err := r.findProfileIdByName(ctx, conn, name)
		if err != nil || id == "" {
			return err
		}

		profile, err = r.findProfileById(ctx, conn, id)

		return err
	}))

	return profile, err
}

func (r *Redis) findProfileIdByName(ctx context.Context, conn radix.Conn, name string) (string, error) {
	var id string
	return id, conn.Do(ctx, radix.Cmd(&id, "HGET", nameToProfileKey, nameHashKey(name)))
}

func (r *Redis) FindAccountProfiles(accountId string) ([]*model.Profile, error) {
	var profiles []*model.Profile
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		var profileIds []string
		err := conn.Do(ctx, radix.Cmd(&profileIds, "SMEMBERS", accountProfilesKey(accountId)))
		if err != nil {
			return err
		}

		profiles = make([]*model.Profile, 0, len(profileIds))
		for _, profileId := range profileIds {
			profile, err := r.findProfileById(ctx, conn, profileId)
			if err != nil {
				return err
			}

			if profile != nil {
				profiles = append(profiles, profile)
			}
		}

		return nil
	}))

	return profiles, err
}

func (r *Redis) SaveProfile(profile *model.Profile) (bool, error) {
	var saved bool
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		existingId, err := r.findProfileIdByName(ctx, conn, profile.Name)
		if err != nil {
			return err
		}

		if existingId != "" && existingId != profile.Id {
			return nil
		}

		err = r.saveProfile(ctx, conn, profile)
		if err != nil {
			return err
		}

		saved = true

		return nil
	}))

	return saved, err
}

func (r *Redis) saveProfile(ctx context.Context, conn radix.Conn, profile *model.Profile) error {
	serialized, err := r.serializer.Serialize(profile)
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "MULTI"))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.FlatCmd(nil, "SET", profileKey(profile.Id), serialized))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.FlatCmd(nil, "HSET", nameToProfileKey, nameHashKey(profile.Name), profile.Id))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "SADD", accountProfilesKey(profile.AccountId), profile.Id))
	if err != nil {
		return err
	}

	return conn.Do(ctx, radix.Cmd(nil, "EXEC"))
}

func (r *Redis) UpdateProfileName(id string, name string) (bool, error) {
	var updated bool
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		profile, err := r.findProfileById(ctx, conn, id)
		if err != nil || profile == nil {
			return err
		}

		existingId, err := r.findProfileIdByName(ctx, conn, name)
		if err != nil {
			return err
		}

		if existingId != "" && existingId != id {
			return nil
		}

		oldNameKey := nameHashKey(profile.Name)
		profile.Name = name
		err = r.saveProfile(ctx, conn, profile)
		if err != nil {
			return err
		}

		if oldNameKey != nameHashKey(name) {
			err = conn.Do(ctx, radix.Cmd(nil, "HDEL", nameToProfileKey, oldNameKey))
			if err != nil {
				return err
			}
		}

		updated = true

		return nil
	}))

	return updated, err
}

func (r *Redis) UpdateProfileSkin(id string, skinHash string, isSlim bool) (bool, error) {
	return r.updateProfile(id, func(profile *model.Profile) {
		profile.SkinHash = skinHash
		profile.IsSlim = isSlim
	})
}

func (r *Redis) UpdateProfileCape(id string, capeHash string) (bool, error) {
	return r.updateProfile(id, func(profile *model.Profile) {
		profile.CapeHash = capeHash
	})
}

func (r *Redis) updateProfile(id string, mutate func(profile *model.Profile)) (bool, error) {
	var updated bool
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		profile, err := r.findProfileById(ctx, conn, id)
		if err != nil || profile == nil {
			return err
		}

		mutate(profile)
		err = r.saveProfile(ctx, conn, profile)
		if err != nil {
			return err
		}

		updated = true

		return nil
	}))

	return updated, err
}

func (r *Redis) RemoveProfile(id string) error {
	return r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		return r.removeProfile(ctx, conn, id)
	}))
}

func (r *Redis) removeProfile(ctx context.Context, conn radix.Conn, id string) error {
	profile, err := r.findProfileById(ctx, conn, id)
	if err != nil || profile == nil {
		return err
	}

	var tokens []string
	err = conn.Do(ctx, radix.Cmd(&tokens, "SMEMBERS", profileSessionsKey(id)))
	if err != nil {
		return err
	}

	for _, token := range tokens {
		err = r.removeSession(ctx, conn, token)
		if err != nil {
			return err
		}
	}

	err = conn.Do(ctx, radix.Cmd(nil, "MULTI"))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "HDEL", nameToProfileKey, nameHashKey(profile.Name)))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "SREM", accountProfilesKey(profile.AccountId), id))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "DEL", profileKey(id), profileSessionsKey(id)))
	if err != nil {
		return err
	}

	return conn.Do(ctx, radix.Cmd(nil, "EXEC"))
}

func (r *Redis) FindSessionByToken(accessToken string) (*model.Session, error) {
	var session *model.Session
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		var err error
		session, err = r.findSessionByToken(ctx, conn, accessToken)

		return err
	}))

	return session, err
}

func (r *Redis) findSessionByToken(ctx context.Context, conn radix.Conn, accessToken string) (*model.Session, error) {
	var encodedResult []byte
	err := conn.Do(ctx, radix.Cmd(&encodedResult, "GET", sessionKey(accessToken)))
	if err != nil {
		return nil, err
	}

	if len(encodedResult) == 0 {
		return nil, nil
	}

	var session model.Session
	err = r.serializer.Deserialize(encodedResult, &session)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *Redis) SaveSession(session *model.Session) error {
	return r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		return r.saveSession(ctx, conn, session)
	}))
}

func (r *Redis) saveSession(ctx context.Context, conn radix.Conn, session *model.Session) error {
	serialized, err := r.serializer.Serialize(session)
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "MULTI"))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.FlatCmd(nil, "SET", sessionKey(session.AccessToken), serialized))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "SADD", accountSessionsKey(session.AccountId), session.AccessToken))
	if err != nil {
		return err
	}

	if session.ProfileId != "" {
		err = conn.Do(ctx, radix.Cmd(nil, "SADD", profileSessionsKey(session.ProfileId), session.AccessToken))
		if err != nil {
			return err
		}
	}

	err = conn.Do(ctx, radix.FlatCmd(nil, "ZADD", sessionsCreatedAtKey, session.CreatedAt.Unix(), session.AccessToken))
	if err != nil {
		return err
	}

	return conn.Do(ctx, radix.Cmd(nil, "EXEC"))
}

func (r *Redis) SelectSessionProfile(accessToken string, profileId string) (bool, error) {
	var selected bool
	err := r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		session, err := r.findSessionByToken(ctx, conn, accessToken)
		if err != nil || session == nil {
			return err
		}

		if session.Status != model.SessionValid || session.ProfileId != "" {
			return nil
		}

		session.ProfileId = profileId
		err = r.saveSession(ctx, conn, session)
		if err != nil {
			return err
		}

		selected = true

		return nil
	}))

	return selected, err
}

func (r *Redis) InvalidateSession(accessToken string) error {
	return r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		return r.markSession(ctx, conn, accessToken, model.SessionInvalid, false)
	}))
}

func (r *Redis) InvalidateAccountSessions(accountId string) error {
	return r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		var tokens []string
		err := conn.Do(ctx, radix.Cmd(&tokens, "SMEMBERS", accountSessionsKey(accountId)))
		if err != nil {
			return err
		}

		for _, token := range tokens {
			err = r.markSession(ctx, conn, token, model.SessionInvalid, false)
			if err != nil {
				return err
			}
		}

		return nil
	}))
}

func (r *Redis) TemporarilyInvalidateProfileSessions(profileId string) error {
	return r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		var tokens []string
		err := conn.Do(ctx, radix.Cmd(&tokens, "SMEMBERS", profileSessionsKey(profileId)))
		if err != nil {
			return err
		}

		for _, token := range tokens {
			err = r.markSession(ctx, conn, token, model.SessionTemporarilyInvalid, true)
			if err != nil {
				return err
			}
		}

		return nil
	}))
}

// markSession rewrites the session status. With onlyValid set, sessions
// in any other state keep their current status: the downgrade never
// resurrects an invalidated session.
func (r *Redis) markSession(ctx context.Context, conn radix.Conn, accessToken string, status model.SessionStatus, onlyValid bool) error {
	session, err := r.findSessionByToken(ctx, conn, accessToken)
	if err != nil || session == nil {
		return err
	}

	if onlyValid && session.Status != model.SessionValid {
		return nil
	}

	session.Status = status

	return r.saveSession(ctx, conn, session)
}

func (r *Redis) RemoveSession(accessToken string) error {
	return r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		return r.removeSession(ctx, conn, accessToken)
	}))
}

func (r *Redis) removeSession(ctx context.Context, conn radix.Conn, accessToken string) error {
	session, err := r.findSessionByToken(ctx, conn, accessToken)
	if err != nil || session == nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "MULTI"))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "SREM", accountSessionsKey(session.AccountId), accessToken))
	if err != nil {
		return err
	}

	if session.ProfileId != "" {
		err = conn.Do(ctx, radix.Cmd(nil, "SREM", profileSessionsKey(session.ProfileId), accessToken))
		if err != nil {
			return err
		}
	}

	err = conn.Do(ctx, radix.Cmd(nil, "ZREM", sessionsCreatedAtKey, accessToken))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.Cmd(nil, "DEL", sessionKey(accessToken)))
	if err != nil {
		return err
	}

	return conn.Do(ctx, radix.Cmd(nil, "EXEC"))
}

func (r *Redis) RemoveSessionsCreatedBefore(edge time.Time) error {
	return r.client.Do(r.context, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		var tokens []string
		err := conn.Do(ctx, radix.FlatCmd(&tokens, "ZRANGEBYSCORE", sessionsCreatedAtKey, "-inf", edge.Unix()))
		if err != nil {
			return err
		}

		for _, token := range tokens {
			err = r.removeSession(ctx, conn, token)
			if err != nil {
				return err
			}
		}

		return nil
	}))
}

func (r *Redis) FindTextureByHash(hash string) ([]byte, error) {
	var data []byte
	err := r.client.Do(r.context, radix.Cmd(&data, "GET", textureKey(hash)))
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, nil
	}

	return data, nil
}

func (r *Redis) SaveTexture(hash string, data []byte) error {
	// Texture blobs are immutable, so NX keeps the first write.
	return r.client.Do(r.context, radix.FlatCmd(nil, "SET", textureKey(hash), data, "NX"))
}

func (r *Redis) Ping() error {
	return r.client.Do(r.context, radix.Cmd(nil, "PING"))
}

func accountKey(id string) string {
	return "accounts:" + id
}

func profileKey(id string) string {
	return "profiles:" + id
}

func sessionKey(accessToken string) string {
	return "sessions:" + accessToken
}

func textureKey(hash string) string {
	return "textures:" + hash
}

func accountProfilesKey(accountId string) string {
	return "set:account-profiles:" + accountId
}

func accountSessionsKey(accountId string) string {
	return "set:account-sessions:" + accountId
}

func profileSessionsKey(profileId string) string {
	return "set:profile-sessions:" + profileId
}

func emailHashKey(email string) string {
	return strings.ToLower(email)
}

func nameHashKey(name string) string {
	return strings.ToLower(name)
}
