// Package bulk accesses the Salesforce Bulk API 2.0 query surface:
// asynchronous query jobs and their CSV results.
package bulk

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fondat/salesforce-go/salesforce"
)

// Operation is a bulk query operation type.
type Operation string

const (
	// OperationQuery selects current records.
	OperationQuery Operation = "query"

	// OperationQueryAll additionally selects deleted and archived
	// records.
	OperationQueryAll Operation = "queryAll"
)

// State is a query job lifecycle state.
type State string

const (
	StateUploadComplete State = "UploadComplete"
	StateInProgress     State = "InProgress"
	StateAborted        State = "Aborted"
	StateJobComplete    State = "JobComplete"
	StateFailed         State = "Failed"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateAborted || s == StateJobComplete || s == StateFailed
}

// headerLocator carries the next results page locator. The literal
// value "null" means the results are exhausted.
const headerLocator = "Sforce-Locator"

// Job is the server-side description of a query job.
type Job struct {
	ID                     string     `json:"id"`
	Operation              Operation  `json:"operation"`
	Object                 string     `json:"object"`
	CreatedByID            string     `json:"createdById"`
	CreatedDate            time.Time  `json:"createdDate"`
	SystemModstamp         *time.Time `json:"systemModstamp,omitempty"`
	State                  State      `json:"state"`
	ConcurrencyMode        string     `json:"concurrencyMode"`
	ContentType            string     `json:"contentType"`
	APIVersion             float64    `json:"apiVersion"`
	JobType                string     `json:"jobType,omitempty"`
	LineEnding             string     `json:"lineEnding"`
	ColumnDelimiter        string     `json:"columnDelimiter"`
	NumberRecordsProcessed *int64     `json:"numberRecordsProcessed,omitempty"`
	Retries                *int       `json:"retries,omitempty"`
	TotalProcessingTime    *int64     `json:"totalProcessingTime,omitempty"`
}

// JobsPage is one page of a job listing.
type JobsPage struct {
	Jobs   []Job
	Cursor *Cursor
}

// ResultsPage is one page of CSV results. The first row is the CSV
// header. Locator is the cursor for the next page, empty when
// exhausted.
type ResultsPage struct {
	Rows    [][]string
	Locator string
}

// createJobRequest is the job creation body.
type createJobRequest struct {
	Operation   Operation `json:"operation"`
	Query       string    `json:"query"`
	ContentType string    `json:"contentType,omitempty"`
}

// listJobsResponse is the job listing body.
type listJobsResponse struct {
	Done           bool   `json:"done"`
	Records        []Job  `json:"records"`
	NextRecordsURL string `json:"nextRecordsUrl"`
}

// JobsResource accesses bulk query jobs.
type JobsResource struct {
	client *salesforce.Client
}

// Jobs returns the query jobs resource.
func Jobs(client *salesforce.Client) *JobsResource {
	return &JobsResource{client: client}
}

// path resolves the query jobs collection path.
func (r *JobsResource) path(ctx context.Context) (string, error) {
	jobs, err := r.client.Path(ctx, "jobs")
	if err != nil {
		return "", err
	}
	return jobs + "/query", nil
}

// Create creates a query job.
func (r *JobsResource) Create(ctx context.Context, op Operation, soql string) (*Job, error) {
	path, err := r.path(ctx)
	if err != nil {
		return nil, err
	}
	var job Job
	req := salesforce.Request{
		Method: "POST",
		Path:   path + "/",
		Body:   createJobRequest{Operation: op, Query: soql},
	}
	if err := r.client.DoJSON(ctx, req, &job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &job, nil
}

// Get fetches the state of a query job.
func (r *JobsResource) Get(ctx context.Context, id string) (*Job, error) {
	path, err := r.path(ctx)
	if err != nil {
		return nil, err
	}
	var job Job
	if err := r.client.DoJSON(ctx, salesforce.Request{Method: "GET", Path: path + "/" + id}, &job); err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

// Delete removes a query job and its stored results.
func (r *JobsResource) Delete(ctx context.Context, id string) error {
	path, err := r.path(ctx)
	if err != nil {
		return err
	}
	if err := r.client.DoJSON(ctx, salesforce.Request{Method: "DELETE", Path: path + "/" + id}, nil); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// Abort moves a query job to the Aborted state.
func (r *JobsResource) Abort(ctx context.Context, id string) error {
	path, err := r.path(ctx)
	if err != nil {
		return err
	}
	req := salesforce.Request{
		Method: "PATCH",
		Path:   path + "/" + id,
		Body:   map[string]State{"state": StateAborted},
	}
	if err := r.client.DoJSON(ctx, req, nil); err != nil {
		return fmt.Errorf("abort job %s: %w", id, err)
	}
	return nil
}

// List returns one page of query jobs. Pass the previous page's
// cursor to resume; nil starts from the beginning.
func (r *JobsResource) List(ctx context.Context, cursor *Cursor) (*JobsPage, error) {
	params := url.Values{"jobType": {"V2Query"}}

	var path string
	if cursor != nil {
		next, err := url.Parse(cursor.Next)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		path = next.Path
		for name, values := range next.Query() {
			params[name] = values
		}
	} else {
		var err error
		path, err = r.path(ctx)
		if err != nil {
			return nil, err
		}
	}

	var resp listJobsResponse
	req := salesforce.Request{Method: "GET", Path: path, Params: params}
	if err := r.client.DoJSON(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	page := &JobsPage{Jobs: resp.Records}
	if resp.NextRecordsURL != "" {
		page.Cursor = NewCursor(resp.NextRecordsURL)
	}
	return page, nil
}

// Results fetches one page of a completed job's results as CSV rows.
// The first row of every page is the CSV header. limit caps the
// record count per page; locator resumes from a previous page's
// Locator. A job that has produced no results yet is reported as
// ErrResultsNotReady.
func (r *JobsResource) Results(ctx context.Context, id string, limit int, locator string) (*ResultsPage, error) {
	path, err := r.path(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{"maxRecords": {strconv.Itoa(limit)}}
	if locator != "" {
		params.Set("locator", locator)
	}
	req := salesforce.Request{
		Method: "GET",
		Path:   path + "/" + id + "/results",
		Header: http.Header{"Accept": {"text/csv"}},
		Params: params,
	}

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("job %s results: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, fmt.Errorf("job %s: %w", id, ErrResultsNotReady)
	}

	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("job %s results: parse csv: %w", id, err)
	}

	next := resp.Header.Get(headerLocator)
	if next == "null" {
		next = ""
	}
	return &ResultsPage{Rows: rows, Locator: next}, nil
}
