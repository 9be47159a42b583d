package cli

import (
	"github.com/spf13/cobra"

	"github.com/fondat/salesforce-go/salesforce/bulk"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage bulk query jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bulk query jobs",
	RunE:  runJobsList,
}

var jobsGetCmd = &cobra.Command{
	Use:   "get [job-id]",
	Short: "Show the state of a bulk query job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsGet,
}

var jobsAbortCmd = &cobra.Command{
	Use:   "abort [job-id]",
	Short: "Abort a bulk query job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsAbort,
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete [job-id]",
	Short: "Delete a bulk query job and its results",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsDelete,
}

var flagJobsCursor string

func init() {
	jobsListCmd.Flags().StringVar(&flagJobsCursor, "cursor", "", "resume listing from a previous cursor")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsAbortCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
	rootCmd.AddCommand(jobsCmd)
}

func jobsResource() (*bulk.JobsResource, error) {
	store, err := newStore()
	if err != nil {
		return nil, err
	}
	client, err := newClient(store)
	if err != nil {
		return nil, err
	}
	return bulk.Jobs(client), nil
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	jobs, err := jobsResource()
	if err != nil {
		return err
	}

	cursor, err := bulk.DecodeCursor(flagJobsCursor)
	if err != nil {
		return err
	}

	page, err := jobs.List(cmd.Context(), cursor)
	if err != nil {
		return err
	}

	cmd.Printf("%-20s %-20s %-14s %s\n", "ID", "OBJECT", "STATE", "CREATED")
	for _, job := range page.Jobs {
		cmd.Printf("%-20s %-20s %-14s %s\n", job.ID, job.Object, job.State, job.CreatedDate.Format("2006-01-02 15:04:05"))
	}
	if page.Cursor != nil {
		cmd.Printf("\nMore results: --cursor %s\n", page.Cursor.Encode())
	}
	return nil
}

func runJobsGet(cmd *cobra.Command, args []string) error {
	jobs, err := jobsResource()
	if err != nil {
		return err
	}

	job, err := jobs.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("ID:        %s\n", job.ID)
	cmd.Printf("Object:    %s\n", job.Object)
	cmd.Printf("Operation: %s\n", job.Operation)
	cmd.Printf("State:     %s\n", job.State)
	cmd.Printf("Created:   %s by %s\n", job.CreatedDate.Format("2006-01-02 15:04:05"), job.CreatedByID)
	if job.NumberRecordsProcessed != nil {
		cmd.Printf("Records:   %d\n", *job.NumberRecordsProcessed)
	}
	return nil
}

func runJobsAbort(cmd *cobra.Command, args []string) error {
	jobs, err := jobsResource()
	if err != nil {
		return err
	}
	if err := jobs.Abort(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Job %s aborted.\n", args[0])
	return nil
}

func runJobsDelete(cmd *cobra.Command, args []string) error {
	jobs, err := jobsResource()
	if err != nil {
		return err
	}
	if err := jobs.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Job %s deleted.\n", args[0])
	return nil
}
