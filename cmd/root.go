package cmd

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/defval/di"
	"github.com/mono83/slf"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appDi "github.com/elyby/yggdrasil/di"
	appHttp "github.com/elyby/yggdrasil/http"
	"github.com/elyby/yggdrasil/session"
	"github.com/elyby/yggdrasil/version"
)

var RootCmd = &cobra.Command{
	Use:     "yggdrasil",
	Short:   "Implementation of the Minecraft authentication protocol server",
	Version: version.Version(),
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func shouldGetContainer() *di.Container {
	container, err := appDi.New()
	if err != nil {
		panic(err)
	}

	return container
}

func startServer(modules []string) {
	container := shouldGetContainer()

	var config *viper.Viper
	err := container.Resolve(&config)
	if err != nil {
		log.Fatal(err)
	}

	config.Set("modules", modules)

	err = container.Invoke(func(
		ctx context.Context,
		server *http.Server,
		sessions *session.Manager,
		joinStorage *session.JoinStorage,
		logger slf.Logger,
	) {
		sessions.Start()
		defer sessions.Stop()

		joinStorage.Start()
		defer joinStorage.Stop()

		appHttp.StartServer(ctx, server, logger)
	})
	if err != nil {
		log.Fatal(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
}
