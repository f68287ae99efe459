package di

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/defval/di"
	"github.com/spf13/viper"

	"github.com/elyby/yggdrasil/account"
	"github.com/elyby/yggdrasil/auth"
	"github.com/elyby/yggdrasil/db"
	"github.com/elyby/yggdrasil/http"
	"github.com/elyby/yggdrasil/profiles"
	"github.com/elyby/yggdrasil/session"
	"github.com/elyby/yggdrasil/signer"
	"github.com/elyby/yggdrasil/textures"
)

var servicesDiOptions = di.Options(
	di.Provide(newAccountsManager,
		di.As(new(auth.AccountsAuthenticator)),
		di.As(new(http.AccountsManager)),
	),
	di.Provide(newAttemptsLimiter, di.As(new(auth.AttemptsLimiter))),
	di.Provide(newSessionsManager,
		di.As(new(auth.SessionsManager)),
		di.As(new(http.SessionsFinder)),
		di.As(new(profiles.SessionsRevoker)),
	),
	di.Provide(newJoinStorage, di.As(new(auth.JoinTickets))),
	di.Provide(newProfilesManager,
		di.As(new(auth.ProfilesFinder)),
		di.As(new(http.ProfilesManager)),
		di.As(new(http.ProfileTexturesUpdater)),
	),
	di.Provide(newTexturesManager, di.As(new(http.TexturesStore))),
	di.Provide(newTexturesSigner,
		di.As(new(signer.TexturesSigner)),
		di.As(new(http.PublicKeyProvider)),
	),
	di.Provide(newProfilesSerializer, di.As(new(auth.ProfilesSerializer))),
	di.Provide(newAuthService,
		di.As(new(http.AuthService)),
		di.As(new(http.SessionService)),
	),
)

func newAccountsManager(repo db.AccountsRepository) *account.Manager {
	return account.NewManager(repo)
}

func newAttemptsLimiter() *account.Limiter {
	return account.NewLimiter()
}

func newSessionsManager(config *viper.Viper, repo db.SessionsRepository, emitter session.Emitter) *session.Manager {
	config.SetDefault("session.expiration", 15*24*time.Hour)
	config.SetDefault("session.gc_period", 30*time.Second)

	manager := session.NewManager(repo, emitter)
	manager.Expiration = config.GetDuration("session.expiration")
	manager.GCPeriod = config.GetDuration("session.gc_period")

	return manager
}

func newJoinStorage(config *viper.Viper) *session.JoinStorage {
	config.SetDefault("join.ttl", 30*time.Second)

	storage := session.NewJoinStorage()
	storage.TTL = config.GetDuration("join.ttl")

	return storage
}

func newProfilesManager(repo db.ProfilesRepository, revoker profiles.SessionsRevoker) *profiles.Manager {
	return profiles.NewManager(repo, revoker)
}

func newTexturesManager(repo db.TexturesRepository) *textures.Manager {
	return textures.NewManager(repo)
}

func newTexturesSigner(config *viper.Viper) (*signer.Signer, error) {
	keyStr := config.GetString("yggdrasil.signing.key")
	if keyStr == "" {
		return nil, errors.New("yggdrasil.signing.key must be set in order to sign profiles")
	}

	var keyBytes []byte
	if strings.HasPrefix(keyStr, "base64:") {
		base64Value := keyStr[7:]
		decodedKey, err := base64.URLEncoding.DecodeString(base64Value)
		if err != nil {
			return nil, err
		}

		keyBytes = decodedKey
	} else {
		keyBytes = []byte(keyStr)
	}

	key, err := signer.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, err
	}

	return signer.NewSigner(key), nil
}

func newProfilesSerializer(config *viper.Viper, texturesSigner signer.TexturesSigner) *signer.ProfilesSerializer {
	config.SetDefault("textures.base_url", "http://localhost")

	return signer.NewProfilesSerializer(
		strings.TrimSuffix(config.GetString("textures.base_url"), "/"),
		texturesSigner,
	)
}

func newAuthService(
	accounts auth.AccountsAuthenticator,
	limiter auth.AttemptsLimiter,
	sessions auth.SessionsManager,
	profilesFinder auth.ProfilesFinder,
	tickets auth.JoinTickets,
	serializer auth.ProfilesSerializer,
	emitter auth.Emitter,
) *auth.Service {
	return auth.NewService(accounts, limiter, sessions, profilesFinder, tickets, serializer, emitter)
}
