package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fondat/salesforce-go/internal/logger"
	"github.com/fondat/salesforce-go/salesforce/bulk"
)

var queryCmd = &cobra.Command{
	Use:   "query [sobject]",
	Short: "Run a bulk query and write CSV results",
	Long: `Runs an asynchronous Bulk API 2.0 query against an sObject and
streams the results as CSV to stdout or a file.

Examples:
  sfq query Account --fields Id,Name,Website --order-by Name
  sfq query Opportunity --where "CloseDate = THIS_QUARTER" --out opps.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var (
	flagQueryFields   string
	flagQueryWhere    string
	flagQueryOrderBy  string
	flagQueryLimit    int
	flagQueryPageSize int
	flagQueryTimeout  time.Duration
	flagQueryOut      string
)

func init() {
	queryCmd.Flags().StringVar(&flagQueryFields, "fields", "", "comma-separated fields (default: all non-compound fields)")
	queryCmd.Flags().StringVar(&flagQueryWhere, "where", "", "SOQL condition expression")
	queryCmd.Flags().StringVar(&flagQueryOrderBy, "order-by", "", "result ordering")
	queryCmd.Flags().IntVar(&flagQueryLimit, "limit", 0, "maximum number of rows (0 = no limit)")
	queryCmd.Flags().IntVar(&flagQueryPageSize, "page-size", 0, "rows per results page")
	queryCmd.Flags().DurationVar(&flagQueryTimeout, "timeout", 10*time.Minute, "how long to wait for the job to complete")
	queryCmd.Flags().StringVar(&flagQueryOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	client, err := newClient(store)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	meta, err := describeWithCache(cmd, client, args[0])
	if err != nil {
		return err
	}

	opts := bulk.Options{
		Where:       flagQueryWhere,
		OrderBy:     flagQueryOrderBy,
		Limit:       flagQueryLimit,
		PageSize:    flagQueryPageSize,
		WaitTimeout: flagQueryTimeout,
	}
	if flagQueryFields != "" {
		for _, field := range strings.Split(flagQueryFields, ",") {
			opts.Fields = append(opts.Fields, strings.TrimSpace(field))
		}
	}

	query, err := bulk.NewQuery(client, meta, opts)
	if err != nil {
		return err
	}
	logger.Debug("bulk query: %s", query.Statement())

	rows, err := query.Open(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	var out io.Writer = cmd.OutOrStdout()
	if flagQueryOut != "" {
		file, err := os.Create(flagQueryOut)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	writer := csv.NewWriter(out)
	count := 0
	for rows.Next(ctx) {
		if count == 0 {
			if err := writer.Write(rows.Header()); err != nil {
				return err
			}
		}
		header := rows.Header()
		row := rows.Row()
		record := make([]string, len(header))
		for i, name := range header {
			record[i] = row[name]
		}
		if err := writer.Write(record); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	if flagQueryOut != "" {
		cmd.Printf("%d rows written to %s\n", count, flagQueryOut)
	}
	return nil
}
