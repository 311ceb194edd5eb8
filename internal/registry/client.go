// Package registry talks to the npm-style package registry the deployment
// is validated against before anything is uploaded.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
)

// requestTimeout bounds every registry call; exceeding it fails the call
// rather than hanging the pipeline.
const requestTimeout = 10 * time.Second

// Client handles communication with the package registry.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a registry client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// PackageState is the registry's view of a package.
type PackageState struct {
	Exists        bool
	LatestVersion string
	Versions      []string
}

// packageDocument is the subset of the registry packument we read.
type packageDocument struct {
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]json.RawMessage `json:"versions"`
}

// FetchPackageState queries the registry for the package by exact name.
// A 404 is a valid outcome (the package has never been published); every
// other non-success status, timeout or malformed payload is an error.
func (c *Client) FetchPackageState(ctx context.Context, name string) (*PackageState, error) {
	endpoint := fmt.Sprintf("%s/%s", c.BaseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrRegistryUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query %s: %v", pkgerrors.ErrRegistryUnavailable, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &PackageState{Exists: false}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: registry returned status %d for %s", pkgerrors.ErrRegistryUnavailable, resp.StatusCode, name)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read registry response: %v", pkgerrors.ErrRegistryUnavailable, err)
	}

	var doc packageDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid registry payload for %s: %v", pkgerrors.ErrRegistryUnavailable, name, err)
	}

	state := &PackageState{
		Exists:        true,
		LatestVersion: doc.DistTags["latest"],
	}
	for v := range doc.Versions {
		state.Versions = append(state.Versions, v)
	}
	return state, nil
}

// CheckPublishPermission queries the package's collaborator info with the
// caller's registry credential. Both 200 and 404 mean the caller may
// publish: a package that does not exist yet can be claimed by its first
// publisher. 401 and 403 mean "may not publish" and are not errors.
func (c *Client) CheckPublishPermission(ctx context.Context, name, token string) (bool, error) {
	endpoint := fmt.Sprintf("%s/-/package/%s/collaborators", c.BaseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", pkgerrors.ErrRegistryUnavailable, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: failed to query collaborators for %s: %v", pkgerrors.ErrRegistryUnavailable, name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	}
	return false, fmt.Errorf("%w: collaborator check returned status %d for %s", pkgerrors.ErrRegistryUnavailable, resp.StatusCode, name)
}
