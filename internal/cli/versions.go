package cli

import (
	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List API versions available on the org",
	RunE:  runVersions,
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}

func runVersions(cmd *cobra.Command, _ []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	client, err := newClient(store)
	if err != nil {
		return err
	}

	versions, err := client.Versions(cmd.Context())
	if err != nil {
		return err
	}
	for _, v := range versions {
		marker := " "
		if v.Version == client.Version() {
			marker = "*"
		}
		cmd.Printf("%s %-8s %s\n", marker, v.Version, v.Label)
	}
	return nil
}
