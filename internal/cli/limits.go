package cli

import (
	"sort"

	"github.com/spf13/cobra"
)

var limitsCmd = &cobra.Command{
	Use:   "limits [sobject...]",
	Short: "Show org limits, or record counts for the named sObjects",
	RunE:  runLimits,
}

func init() {
	rootCmd.AddCommand(limitsCmd)
}

func runLimits(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	client, err := newClient(store)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) > 0 {
		counts, err := client.Limits().RecordCount(ctx, args)
		if err != nil {
			return err
		}
		for _, name := range args {
			cmd.Printf("%-40s %d\n", name, counts[name])
		}
		return nil
	}

	limits, err := client.Limits().Get(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(limits))
	for name := range limits {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd.Printf("%-50s %12s %12s\n", "LIMIT", "REMAINING", "MAX")
	for _, name := range names {
		limit := limits[name]
		cmd.Printf("%-50s %12d %12d\n", name, limit.Remaining, limit.Max)
	}
	return nil
}
