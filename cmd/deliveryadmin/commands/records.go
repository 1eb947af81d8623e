package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fooddelivery/pkg/models"
)

var depsCmd = &cobra.Command{
	Use:   "deps <kind> <id>",
	Short: "Show what depends on a record",
	Long: `Show the records that reference the given one.

Examples:
  deliveryadmin deps order 1
  deliveryadmin deps restaurant 3`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseRecordArgs(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		dependents, err := a.guard.CheckDependents(cmd.Context(), kind, id)
		if err != nil {
			return err
		}
		if len(dependents) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s #%d has no dependent records\n", kind, id)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEPENDENT\tCOUNT")
		for _, d := range dependents {
			fmt.Fprintf(w, "%s\t%d\n", d.Label, d.Count)
		}
		return w.Flush()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <kind> <id>",
	Short: "Delete a record unless other data depends on it",
	Long: `Delete a record. Orders take their items, delivery and review with
them; a restaurant takes its dishes unless one of them was ever ordered.
Everything else is refused while it is still referenced.

Examples:
  deliveryadmin delete order 1
  deliveryadmin delete dish 5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseRecordArgs(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.guard.Delete(cmd.Context(), kind, id)
		if !res.OK {
			return errors.New(res.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the order statistics as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.stats.Summary(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(depsCmd, deleteCmd, statsCmd)
}

func parseRecordArgs(args []string) (models.Kind, uint, error) {
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return 0, 0, err
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || id == 0 {
		return 0, 0, fmt.Errorf("invalid id %q", args[1])
	}
	return kind, uint(id), nil
}
