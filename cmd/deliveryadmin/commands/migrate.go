package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"fooddelivery/pkg/database"
)

var withSample bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the order statuses",
	Long: `Create or update the schema and seed the fixed list of order statuses.

Examples:
  deliveryadmin migrate            # schema and statuses only
  deliveryadmin migrate --sample   # also add the sample restaurant, customers and couriers`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if withSample && !a.conf.Database.SeedSample {
			if err := database.SeedSample(a.db); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&withSample, "sample", false, "seed sample data")
	rootCmd.AddCommand(migrateCmd)
}
