package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elyby/yggdrasil/http"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Creates a new token, which allows to interact with the management api",
	RunE: func(cmd *cobra.Command, args []string) error {
		container := shouldGetContainer()
		var auth *http.JwtAuth
		err := container.Resolve(&auth)
		if err != nil {
			return err
		}

		token, err := auth.NewToken(http.AdminScope)
		if err != nil {
			return fmt.Errorf("unable to create a new token: %v", err)
		}

		fmt.Println(string(token))

		return nil
	},
}

func init() {
	RootCmd.AddCommand(tokenCmd)
}
