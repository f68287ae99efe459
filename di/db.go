package di

import (
	"context"
	"fmt"

	"github.com/defval/di"
	"github.com/spf13/viper"

	"github.com/elyby/yggdrasil/db"
	"github.com/elyby/yggdrasil/db/memory"
	"github.com/elyby/yggdrasil/db/redis"
	"github.com/elyby/yggdrasil/eventsubscribers"
)

var dbDiOptions = di.Options(
	di.Provide(newStorageBackend,
		di.As(new(db.AccountsRepository)),
		di.As(new(db.ProfilesRepository)),
		di.As(new(db.SessionsRepository)),
		di.As(new(db.TexturesRepository)),
	),
)

// storageBackend is the union of the repositories every backend must
// provide.
type storageBackend interface {
	db.AccountsRepository
	db.ProfilesRepository
	db.SessionsRepository
	db.TexturesRepository
	db.Pingable
}

func newStorageBackend(container *di.Container, ctx context.Context, config *viper.Viper) (storageBackend, error) {
	config.SetDefault("storage.backend", "redis")

	var backend storageBackend
	switch config.GetString("storage.backend") {
	case "redis":
		config.SetDefault("storage.redis.host", "localhost")
		config.SetDefault("storage.redis.port", 6379)
		config.SetDefault("storage.redis.poolSize", 10)

		conn, err := redis.New(
			ctx,
			db.NewZlibEncoder(&db.JsonSerializer{}),
			fmt.Sprintf("%s:%d", config.GetString("storage.redis.host"), config.GetInt("storage.redis.port")),
			config.GetInt("storage.redis.poolSize"),
		)
		if err != nil {
			return nil, err
		}

		backend = conn
	case "memory":
		backend = memory.New()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.GetString("storage.backend"))
	}

	if err := container.Provide(func() *namedHealthChecker {
		return &namedHealthChecker{
			Name:    "storage",
			Checker: eventsubscribers.DatabaseChecker(backend),
		}
	}); err != nil {
		return nil, err
	}

	return backend, nil
}
