package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fondat/salesforce-go/internal/describecache"
	"github.com/fondat/salesforce-go/internal/logger"
	"github.com/fondat/salesforce-go/salesforce"
)

var sobjectsCmd = &cobra.Command{
	Use:   "sobjects",
	Short: "Inspect sObject metadata",
}

var sobjectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sObjects in the org",
	RunE:  runSObjectsList,
}

var sobjectsDescribeCmd = &cobra.Command{
	Use:   "describe [name]",
	Short: "Show describe metadata for an sObject",
	Args:  cobra.ExactArgs(1),
	RunE:  runSObjectsDescribe,
}

var (
	flagDescribeNoCache bool
	flagDescribeJSON    bool
)

func init() {
	sobjectsDescribeCmd.Flags().BoolVar(&flagDescribeNoCache, "no-cache", false, "bypass the local describe cache")
	sobjectsDescribeCmd.Flags().BoolVar(&flagDescribeJSON, "json", false, "print raw describe JSON")
	sobjectsCmd.AddCommand(sobjectsListCmd)
	sobjectsCmd.AddCommand(sobjectsDescribeCmd)
	rootCmd.AddCommand(sobjectsCmd)
}

func runSObjectsList(cmd *cobra.Command, _ []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	client, err := newClient(store)
	if err != nil {
		return err
	}

	describe, err := client.SObjects().List(cmd.Context())
	if err != nil {
		return err
	}

	for _, sobject := range describe.SObjects {
		marker := " "
		if sobject.Custom {
			marker = "*"
		}
		cmd.Printf("%s %-40s %s\n", marker, sobject.Name, sobject.Label)
	}
	cmd.Printf("\n%d sobjects (* = custom)\n", len(describe.SObjects))
	return nil
}

func runSObjectsDescribe(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	client, err := newClient(store)
	if err != nil {
		return err
	}

	meta, err := describeWithCache(cmd, client, args[0])
	if err != nil {
		return err
	}

	if flagDescribeJSON {
		encoded, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(encoded))
		return nil
	}

	cmd.Printf("%s (%s)\n", meta.Name, meta.Label)
	cmd.Printf("key prefix: %s  custom: %t  queryable: %t\n\n", meta.KeyPrefix, meta.Custom, meta.Queryable)
	for _, field := range meta.Fields {
		nillable := ""
		if field.Nillable {
			nillable = "  nillable"
		}
		cmd.Printf("  %-40s %-15s%s\n", field.Name, field.Type, nillable)
	}
	cmd.Printf("\n%d fields\n", len(meta.Fields))
	return nil
}

// describeWithCache fetches describe metadata through the local sqlite
// cache unless --no-cache is set. Cache failures degrade to a direct
// describe.
func describeWithCache(cmd *cobra.Command, client *salesforce.Client, name string) (*salesforce.SObject, error) {
	ctx := cmd.Context()

	if flagDescribeNoCache {
		return client.SObjects().Describe(ctx, name)
	}

	cache, err := describecache.Open("")
	if err != nil {
		logger.Warn("describe cache unavailable: %v", err)
		return client.SObjects().Describe(ctx, name)
	}
	defer cache.Close()

	instance, err := client.InstanceURL(ctx)
	if err != nil {
		return nil, err
	}

	if meta, ok, err := cache.Get(ctx, instance, client.Version(), name); err == nil && ok {
		logger.Debug("describe cache hit: %s", name)
		return meta, nil
	}

	meta, err := client.SObjects().Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(ctx, instance, client.Version(), meta); err != nil {
		logger.Warn("describe cache store failed: %v", err)
	}
	return meta, nil
}
