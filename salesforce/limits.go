package salesforce

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Limit is one org limit: its cap and what remains of it.
type Limit struct {
	Max       int `json:"Max"`
	Remaining int `json:"Remaining"`
}

// Limits maps limit names to their current state.
type Limits map[string]Limit

// LimitsResource accesses org limits.
type LimitsResource struct {
	client *Client
}

// Limits returns the org limits resource.
func (c *Client) Limits() *LimitsResource {
	return &LimitsResource{client: c}
}

// Get fetches all org limits.
func (r *LimitsResource) Get(ctx context.Context) (Limits, error) {
	path, err := r.client.Path(ctx, "limits")
	if err != nil {
		return nil, err
	}
	var limits Limits
	if err := r.client.DoJSON(ctx, Request{Method: "GET", Path: path + "/"}, &limits); err != nil {
		return nil, fmt.Errorf("get limits: %w", err)
	}
	return limits, nil
}

// recordCountResponse is the recordCount endpoint body.
type recordCountResponse struct {
	SObjectCounts []struct {
		Count int    `json:"count"`
		Name  string `json:"name"`
	} `json:"sObjectCounts"`
}

// RecordCount returns the approximate record count for each named
// sObject.
func (r *LimitsResource) RecordCount(ctx context.Context, names []string) (map[string]int, error) {
	path, err := r.client.Path(ctx, "limits")
	if err != nil {
		return nil, err
	}
	req := Request{
		Method: "GET",
		Path:   path + "/recordCount",
		Params: url.Values{"sObjects": {strings.Join(names, ",")}},
	}
	var resp recordCountResponse
	if err := r.client.DoJSON(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("record count: %w", err)
	}

	counts := make(map[string]int, len(resp.SObjectCounts))
	for _, c := range resp.SObjectCounts {
		counts[c.Name] = c.Count
	}
	return counts, nil
}
