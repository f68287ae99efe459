package di

import (
	"net/http"
	"slices"
	"strings"

	"github.com/defval/di"
	"github.com/etherlabsio/healthcheck/v2"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"

	. "github.com/elyby/yggdrasil/http"
)

var handlersDiOptions = di.Options(
	di.Provide(newHandlerFactory, di.As(new(http.Handler))),
	di.Provide(newSessionserverHandler, di.WithName("sessionserver")),
	di.Provide(newAuthserverHandler, di.WithName("authserver")),
	di.Provide(newTexturesHandler, di.WithName("textures")),
	di.Provide(newApiHandler, di.WithName("api")),
)

func newHandlerFactory(
	container *di.Container,
	config *viper.Viper,
	emitter Emitter,
) (*mux.Router, error) {
	config.SetDefault("modules", []string{"yggdrasil"})
	enabledModules := config.GetStringSlice("modules")

	// gorilla.mux has no native way to combine multiple routers.
	// The sessionserver module owns the root prefix (the metadata
	// document lives at /), so its router is the base one; the other
	// routers carry full paths and are attached by prefix without
	// stripping.
	var router *mux.Router
	if slices.Contains(enabledModules, "yggdrasil") {
		if err := container.Resolve(&router, di.Name("sessionserver")); err != nil {
			return nil, err
		}

		var authserverRouter *mux.Router
		if err := container.Resolve(&authserverRouter, di.Name("authserver")); err != nil {
			return nil, err
		}

		var texturesRouter *mux.Router
		if err := container.Resolve(&texturesRouter, di.Name("textures")); err != nil {
			return nil, err
		}

		router.PathPrefix("/authserver").Handler(authserverRouter)
		router.PathPrefix("/textures").Handler(texturesRouter)
		// Must be attached before the management api below: mux picks
		// the first matching route and /api would shadow /api/user.
		router.PathPrefix("/api/user").Handler(texturesRouter)
	} else {
		router = mux.NewRouter()
	}

	router.StrictSlash(true)
	requestEventsMiddleware := CreateRequestEventsMiddleware(emitter, "yggdrasil")
	router.Use(requestEventsMiddleware)
	// NotFoundHandler doesn't call for registered middlewares, so we must wrap it manually.
	// See https://github.com/gorilla/mux/issues/416#issuecomment-600079279
	router.NotFoundHandler = requestEventsMiddleware(http.HandlerFunc(NotFoundHandler))

	if slices.Contains(enabledModules, "api") {
		var apiRouter *mux.Router
		if err := container.Resolve(&apiRouter, di.Name("api")); err != nil {
			return nil, err
		}

		var authenticator Authenticator
		if err := container.Resolve(&authenticator); err != nil {
			return nil, err
		}

		apiRouter.Use(CreateAuthenticationMiddleware(authenticator, AdminScope))

		mount(router, "/api", apiRouter)
	}

	// Resolve health checkers last, because all the services required by the application
	// must first be initialized and each of them can publish its own checkers
	var healthCheckers []*namedHealthChecker
	if has, _ := container.Has(&healthCheckers); has {
		if err := container.Resolve(&healthCheckers); err != nil {
			return nil, err
		}

		checkersOptions := make([]healthcheck.Option, len(healthCheckers))
		for i, checker := range healthCheckers {
			checkersOptions[i] = healthcheck.WithChecker(checker.Name, checker.Checker)
		}

		router.Handle("/healthcheck", healthcheck.Handler(checkersOptions...)).Methods("GET")
	}

	return router, nil
}

func newSessionserverHandler(
	config *viper.Viper,
	authService SessionService,
	publicKeyProvider PublicKeyProvider,
	emitter Emitter,
) *mux.Router {
	config.SetDefault("yggdrasil.server_name", "Yggdrasil Auth Server")

	return (&Sessionserver{
		Session:     authService,
		Signer:      publicKeyProvider,
		ServerName:  config.GetString("yggdrasil.server_name"),
		SkinDomains: config.GetStringSlice("yggdrasil.skin_domains"),
		Emitter:     emitter,
	}).Handler()
}

func newAuthserverHandler(authService AuthService, emitter Emitter) *mux.Router {
	return (&Authserver{
		Auth:    authService,
		Emitter: emitter,
	}).Handler()
}

func newTexturesHandler(
	sessions SessionsFinder,
	store TexturesStore,
	profilesUpdater ProfileTexturesUpdater,
	emitter Emitter,
) *mux.Router {
	return (&Textures{
		Sessions: sessions,
		Store:    store,
		Profiles: profilesUpdater,
		Emitter:  emitter,
	}).Handler()
}

func newApiHandler(
	accountsManager AccountsManager,
	profilesManager ProfilesManager,
	emitter Emitter,
) *mux.Router {
	return (&Api{
		Accounts: accountsManager,
		Profiles: profilesManager,
		Emitter:  emitter,
	}).Handler()
}

func mount(router *mux.Router, path string, handler http.Handler) {
	router.PathPrefix(path).Handler(
		http.StripPrefix(
			strings.TrimSuffix(path, "/"),
			handler,
		),
	)
}

type namedHealthChecker struct {
	Name    string
	Checker healthcheck.Checker
}
