package salesforce

import (
	"context"
	"fmt"
	"net/url"
)

// QueryResult is one page of a synchronous SOQL query.
type QueryResult struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	NextRecordsURL string   `json:"nextRecordsUrl"`
	Records        []Record `json:"records"`
}

// Query runs a synchronous SOQL query and returns the first page of
// results. Use QueryMore with NextRecordsURL to page through the rest,
// or QueryAll to collect everything.
func (c *Client) Query(ctx context.Context, soql string) (*QueryResult, error) {
	path, err := c.Path(ctx, "query")
	if err != nil {
		return nil, err
	}
	var result QueryResult
	req := Request{Method: "GET", Path: path, Params: url.Values{"q": {soql}}}
	if err := c.DoJSON(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return &result, nil
}

// QueryMore fetches the next page of a query result.
func (c *Client) QueryMore(ctx context.Context, nextRecordsURL string) (*QueryResult, error) {
	var result QueryResult
	req := Request{Method: "GET", Path: nextRecordsURL}
	if err := c.DoJSON(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("query more: %w", err)
	}
	return &result, nil
}

// QueryAll runs a SOQL query and follows nextRecordsUrl until all
// records are collected.
func (c *Client) QueryAll(ctx context.Context, soql string) ([]Record, error) {
	result, err := c.Query(ctx, soql)
	if err != nil {
		return nil, err
	}

	records := result.Records
	for !result.Done && result.NextRecordsURL != "" {
		select {
		case <-ctx.Done():
			return records, ctx.Err()
		default:
		}

		result, err = c.QueryMore(ctx, result.NextRecordsURL)
		if err != nil {
			return nil, err
		}
		records = append(records, result.Records...)
	}
	return records, nil
}
