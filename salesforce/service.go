package salesforce

import (
	"context"
	"fmt"
)

// servicePath is the version-independent service root.
const servicePath = "/services/data"

// Version describes one API version available on the org.
type Version struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Version string `json:"version"`
}

// Versions lists the API versions available on the org.
func (c *Client) Versions(ctx context.Context) ([]Version, error) {
	var versions []Version
	err := c.DoJSON(ctx, Request{Method: "GET", Path: servicePath}, &versions)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// Resources returns the resource discovery map for the client's API
// version: resource name to path. The map is fetched once and cached.
func (c *Client) Resources(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	cached := c.resources
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var resources map[string]string
	path := fmt.Sprintf("%s/v%s", servicePath, c.version)
	if err := c.DoJSON(ctx, Request{Method: "GET", Path: path}, &resources); err != nil {
		return nil, fmt.Errorf("discover resources: %w", err)
	}

	c.mu.Lock()
	c.resources = resources
	c.mu.Unlock()
	return resources, nil
}

// Path resolves a named entry from the resource discovery map.
func (c *Client) Path(ctx context.Context, resource string) (string, error) {
	resources, err := c.Resources(ctx)
	if err != nil {
		return "", err
	}
	path, ok := resources[resource]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
	}
	return path, nil
}
