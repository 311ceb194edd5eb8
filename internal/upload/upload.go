// Package upload transmits the deployment artifact and its metadata
// envelope to the hosting API. One attempt per run; retries are not this
// component's business.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkgship-dev/pkgship/internal/config"
	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
	"github.com/schollz/progressbar/v3"
)

// uploadTimeout bounds the whole upload transaction.
const uploadTimeout = 5 * time.Minute

// Client posts deployment requests to the hosting API.
type Client struct {
	UploadURL  string
	HTTPClient *http.Client

	// ShowProgress renders a transfer progress bar on stderr.
	ShowProgress bool
}

// NewClient creates an upload client for the hosting API endpoint.
func NewClient(uploadURL string) *Client {
	return &Client{
		UploadURL: strings.TrimSpace(uploadURL),
		HTTPClient: &http.Client{
			Timeout: uploadTimeout,
		},
	}
}

// Request is everything the hosting API needs to publish a proxy artifact
// on the caller's behalf.
type Request struct {
	ArtifactPath      string
	PackageName       string
	PackageVersion    string
	EntryPoint        string
	CredentialContent string
	Config            *config.DeployConfig
}

// Response is the hosting API's acknowledgment.
type Response struct {
	URL          string `json:"url"`
	DeploymentID string `json:"deploymentId"`
}

// Upload streams the artifact plus the metadata envelope as one multipart
// request, authenticated with the deploy token. A non-2xx status is a
// terminal error carrying the server's diagnostic body; network failures
// propagate with their cause preserved.
func (c *Client) Upload(ctx context.Context, r *Request) (*Response, error) {
	artifact, err := os.Open(r.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open artifact: %v", pkgerrors.ErrUploadFailed, err)
	}
	defer func() { _ = artifact.Close() }()

	stat, err := artifact.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot stat artifact: %v", pkgerrors.ErrUploadFailed, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(c.writeBody(mw, r, artifact, stat.Size()))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL, pr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+r.Config.AuthToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrUploadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The diagnostic body is bounded; the server controls its size.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		diag := strings.TrimSpace(string(body))
		if diag == "" {
			diag = "no diagnostic provided"
		}
		return nil, fmt.Errorf("%w: hosting API returned status %d: %s", pkgerrors.ErrUploadFailed, resp.StatusCode, diag)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read hosting API response: %v", pkgerrors.ErrUploadFailed, err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: invalid hosting API response: %v", pkgerrors.ErrUploadFailed, err)
	}
	return &out, nil
}

// writeBody emits the multipart fields followed by the artifact binary.
func (c *Client) writeBody(mw *multipart.Writer, r *Request, artifact io.Reader, size int64) error {
	fields := map[string]string{
		"packageName":           r.PackageName,
		"packageVersion":        r.PackageVersion,
		"deployRegion":          r.Config.DeployRegion,
		"packageType":           r.Config.PackageType,
		"entryPointPath":        r.EntryPoint,
		"credentialFileContent": r.CredentialContent,
	}
	if r.Config.EntryArgsIndex != "" {
		fields["entryArgsIndex"] = r.Config.EntryArgsIndex
	}
	if r.Config.RuntimeSelector != "" {
		fields["runtimeSelector"] = r.Config.RuntimeSelector
	}
	if r.Config.MemoryBudgetMB != 0 {
		fields["memoryBudgetMB"] = strconv.Itoa(r.Config.MemoryBudgetMB)
	}

	// Deterministic field order keeps request logs comparable.
	for _, name := range []string{
		"packageName", "packageVersion", "deployRegion", "packageType",
		"entryPointPath", "credentialFileContent", "entryArgsIndex",
		"runtimeSelector", "memoryBudgetMB",
	} {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if err := mw.WriteField(name, value); err != nil {
			return err
		}
	}

	for _, kv := range []struct {
		name    string
		mapping map[string]string
	}{
		{"injectedHeaders", r.Config.InjectedHeaders},
		{"injectedEnv", r.Config.InjectedEnv},
	} {
		name, mapping := kv.name, kv.mapping
		if len(mapping) == 0 {
			continue
		}
		encoded, err := json.Marshal(mapping)
		if err != nil {
			return err
		}
		if err := mw.WriteField(name, string(encoded)); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", filepath.Base(r.ArtifactPath))
	if err != nil {
		return err
	}

	reader := artifact
	if c.ShowProgress {
		bar := progressbar.DefaultBytes(size, "uploading")
		reader = io.TeeReader(artifact, bar)
	}
	if _, err := io.Copy(part, reader); err != nil {
		return err
	}
	return mw.Close()
}
