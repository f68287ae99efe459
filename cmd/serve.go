package cmd

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP handler for the authentication protocol",
	Run: func(cmd *cobra.Command, args []string) {
		startServer([]string{"yggdrasil", "api"})
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
