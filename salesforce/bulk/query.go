package bulk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fondat/salesforce-go/salesforce"
)

const (
	// DefaultPageSize is the default number of records per results
	// page.
	DefaultPageSize = 1000

	// pollInitial and pollMax bound the job completion poll interval.
	// The interval doubles between polls.
	pollInitial = time.Second
	pollMax     = time.Minute
)

// Options configure a bulk sObject query.
type Options struct {
	// Fields to select. Defaults to every non-compound field of the
	// sObject.
	Fields []string

	// Where is the SOQL condition expression, without the WHERE
	// keyword.
	Where string

	// OrderBy orders the results, without the ORDER BY keyword.
	OrderBy string

	// Limit caps the number of result rows; 0 means no limit.
	Limit int

	// PageSize is the number of rows fetched per results page.
	PageSize int

	// WaitTimeout bounds how long Open waits for the job to complete;
	// 0 means wait until the context is done.
	WaitTimeout time.Duration
}

// Query is a bulk data query over one sObject.
type Query struct {
	jobs *JobsResource
	stmt string
	opts Options
}

// NewQuery builds a bulk query for the described sObject. Field
// selection is validated against the describe metadata: unknown fields
// and compound-type fields (address, location) are rejected.
func NewQuery(client *salesforce.Client, meta *salesforce.SObject, opts Options) (*Query, error) {
	fields := opts.Fields
	if fields == nil {
		for _, f := range meta.Fields {
			if !f.Type.Compound() {
				fields = append(fields, f.Name)
			}
		}
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}
	for _, name := range fields {
		field := meta.Field(name)
		if field == nil {
			return nil, &FieldError{Field: name, Reason: "unknown field"}
		}
		if field.Type.Compound() {
			return nil, &FieldError{Field: name, Reason: fmt.Sprintf("cannot query %s type field", field.Type)}
		}
	}

	var stmt strings.Builder
	stmt.WriteString("SELECT ")
	stmt.WriteString(strings.Join(fields, ", "))
	stmt.WriteString(" FROM ")
	stmt.WriteString(meta.Name)
	if opts.Where != "" {
		stmt.WriteString(" WHERE ")
		stmt.WriteString(opts.Where)
	}
	if opts.OrderBy != "" {
		stmt.WriteString(" ORDER BY ")
		stmt.WriteString(opts.OrderBy)
	}
	if opts.Limit > 0 {
		fmt.Fprintf(&stmt, " LIMIT %d", opts.Limit)
	}

	return &Query{jobs: Jobs(client), stmt: stmt.String(), opts: opts}, nil
}

// Statement returns the SOQL statement the query will run.
func (q *Query) Statement() string {
	return q.stmt
}

// Open creates the query job, waits for it to complete, and returns a
// row iterator. The caller must Close the rows; closing deletes the
// job best-effort.
func (q *Query) Open(ctx context.Context) (*Rows, error) {
	job, err := q.jobs.Create(ctx, OperationQuery, q.stmt)
	if err != nil {
		return nil, err
	}

	rows := &Rows{
		jobs:     q.jobs,
		jobID:    job.ID,
		pageSize: q.opts.PageSize,
	}
	if rows.pageSize <= 0 {
		rows.pageSize = DefaultPageSize
	}

	if err := q.waitComplete(ctx, job.ID); err != nil {
		rows.Close()
		return nil, err
	}
	return rows, nil
}

// waitComplete polls the job until it reaches a terminal state,
// backing off from pollInitial to pollMax.
func (q *Query) waitComplete(ctx context.Context, id string) error {
	if q.opts.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.opts.WaitTimeout)
		defer cancel()
	}

	interval := pollInitial
	for {
		job, err := q.jobs.Get(ctx, id)
		if err != nil {
			return err
		}
		switch job.State {
		case StateJobComplete:
			return nil
		case StateAborted, StateFailed:
			return &JobError{ID: id, State: job.State}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("bulk: waiting for job %s: %w", id, ctx.Err())
		case <-time.After(interval):
		}
		interval *= 2
		if interval > pollMax {
			interval = pollMax
		}
	}
}

// Rows iterates over bulk query results.
type Rows struct {
	jobs     *JobsResource
	jobID    string
	pageSize int

	header  []string
	buf     [][]string
	locator string
	started bool
	done    bool
	closed  bool
	row     map[string]string
	err     error
}

// Next advances to the next row. It returns false when iteration ends;
// consult Err to distinguish exhaustion from failure.
func (r *Rows) Next(ctx context.Context) bool {
	if r.closed || r.err != nil {
		return false
	}

	for len(r.buf) == 0 {
		if r.started && (r.done || r.locator == "") {
			return false
		}
		if err := r.fetchPage(ctx); err != nil {
			r.err = err
			return false
		}
	}

	raw := r.buf[0]
	r.buf = r.buf[1:]

	row := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if i < len(raw) {
			row[name] = raw[i]
		}
	}
	r.row = row
	return true
}

// fetchPage loads the next results page. Every page starts with a CSV
// header row, which is stripped into r.header.
func (r *Rows) fetchPage(ctx context.Context) error {
	page, err := r.jobs.Results(ctx, r.jobID, r.pageSize, r.locator)
	if err != nil {
		return err
	}
	r.started = true
	r.locator = page.Locator
	r.done = page.Locator == ""

	if len(page.Rows) == 0 {
		return nil
	}
	r.header = page.Rows[0]
	r.buf = page.Rows[1:]
	return nil
}

// Header returns the CSV header columns, available after the first
// successful Next.
func (r *Rows) Header() []string {
	return r.header
}

// Row returns the current row, keyed by the CSV header columns.
func (r *Rows) Row() map[string]string {
	return r.row
}

// Err returns the error that ended iteration, if any.
func (r *Rows) Err() error {
	return r.err
}

// JobID returns the underlying query job id.
func (r *Rows) JobID() string {
	return r.jobID
}

// Close deletes the query job. Deletion failures are ignored; the
// org garbage-collects jobs after seven days regardless.
func (r *Rows) Close() {
	if r.closed {
		return
	}
	r.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.jobs.Delete(ctx, r.jobID)
}
