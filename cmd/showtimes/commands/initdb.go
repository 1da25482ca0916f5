package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initDbCmd)
}

var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Creates the dataset schema if it does not exist yet.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := loadEnv(cmd.Context())
		defer e.Close()
		fmt.Fprintln(rootCmd.OutOrStdout(), "schema is up to date")
	},
}
