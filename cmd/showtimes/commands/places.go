package commands

import (
	"fmt"
	"strings"

	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/geocode"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(placesCmd)
}

var placesCmd = &cobra.Command{
	Use:   "places <query>",
	Short: "Suggests city names for a partial query using the geocoding service.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		client := geocode.NewClient(cfg.Geocode, telemetry.SlogAPI{})
		for _, place := range client.Autocomplete(cmd.Context(), strings.Join(args, " ")) {
			fmt.Fprintln(rootCmd.OutOrStdout(), place)
		}
	},
}
