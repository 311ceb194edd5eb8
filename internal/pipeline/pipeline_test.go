package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pkgship-dev/pkgship/internal/archive"
	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	// Keep the user's real ~/.npmrc out of the run.
	t.Setenv("HOME", t.TempDir())
	return root
}

// registryStub serves one package state: empty latest means "not published".
func registryStub(latest string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if latest == "" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dist-tags": map[string]string{"latest": latest},
			"versions":  map[string]any{latest: map[string]any{}},
		})
	}))
}

// uploadStub records the received archive entries and envelope fields.
type uploadStub struct {
	calls   atomic.Int32
	entries []string
	fields  map[string]string
	status  int
}

func (u *uploadStub) server(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		require.NoError(t, r.ParseMultipartForm(8<<20))

		u.fields = map[string]string{}
		for name, values := range r.MultipartForm.Value {
			u.fields[name] = values[0]
		}

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		raw, err := io.ReadAll(f)
		require.NoError(t, err)
		zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
		require.NoError(t, err)
		u.entries = nil
		for _, zf := range zr.File {
			u.entries = append(u.entries, zf.Name)
		}

		if u.status != 0 {
			w.WriteHeader(u.status)
			_, _ = w.Write([]byte("synthetic hosting failure"))
			return
		}
		_, _ = w.Write([]byte(`{"url":"https://pkg.example","deploymentId":"dep-42"}`))
	}))
}

const sourceConfig = `{"authToken":"t","deployRegion":"us-east-1","packageType":"source-project"}`

func TestRunSourceProjectEndToEnd(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkgship.json": sourceConfig,
		"package.json": `{"name":"pkg","version":"1.0.0","files":["index.js"],"main":"index.js"}`,
		"index.js":     "module.exports = 1",
	})

	reg := registryStub("")
	defer reg.Close()
	up := &uploadStub{}
	upServer := up.server(t)
	defer upServer.Close()

	res, err := Run(context.Background(), Options{
		Root:        root,
		RegistryURL: reg.URL,
		UploadURL:   upServer.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "pkg", res.PackageName)
	assert.Equal(t, "1.0.0", res.PackageVersion)
	assert.Equal(t, 2, res.ArchivedCount)
	assert.Equal(t, "https://pkg.example", res.DeploymentURL)
	assert.Equal(t, "dep-42", res.DeploymentID)

	assert.Equal(t, int32(1), up.calls.Load())
	assert.ElementsMatch(t, []string{"package.json", "index.js"}, up.entries)
	assert.Equal(t, "pkg", up.fields["packageName"])
	assert.Equal(t, "index.js", up.fields["entryPointPath"])

	_, statErr := os.Stat(archive.Path(root))
	assert.True(t, os.IsNotExist(statErr), "artifact must not outlive the run")
}

func TestRunVersionNotHigherIsControlled(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkgship.json": sourceConfig,
		"package.json": `{"name":"pkg","version":"1.0.0","files":["index.js"],"main":"index.js"}`,
		"index.js":     "x",
	})

	reg := registryStub("1.0.0")
	defer reg.Close()
	up := &uploadStub{}
	upServer := up.server(t)
	defer upServer.Close()

	_, err := Run(context.Background(), Options{
		Root:        root,
		RegistryURL: reg.URL,
		UploadURL:   upServer.URL,
	})
	require.ErrorIs(t, err, pkgerrors.ErrPublishNotAllowed)
	assert.True(t, pkgerrors.Controlled(err))
	assert.Contains(t, err.Error(), "not higher")

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageRegistryValidate, stageErr.Stage)

	assert.Equal(t, int32(0), up.calls.Load(), "nothing may be uploaded")
	_, statErr := os.Stat(archive.Path(root))
	assert.True(t, os.IsNotExist(statErr), "no artifact may be created before validation passes")
}

func TestRunArtifactProjectEndToEnd(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkgship.json":      `{"authToken":"t","deployRegion":"us-east-1","packageType":"build-artifact-project"}`,
		"project.yaml":      "name: svc\nversion: 0.1.0\nscripts:\n  start: main.js\n",
		"build/main.js":     "m",
		"build/lib/util.js": "u",
		"build/notes.txt":   "skipped",
	})

	reg := registryStub("")
	defer reg.Close()
	up := &uploadStub{}
	upServer := up.server(t)
	defer upServer.Close()

	res, err := Run(context.Background(), Options{
		Root:        root,
		RegistryURL: reg.URL,
		UploadURL:   upServer.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ArchivedCount)
	assert.ElementsMatch(t, []string{
		"project.yaml",
		"artifacts/main.js",
		"artifacts/lib/util.js",
	}, up.entries)
	assert.Equal(t, "main.js", up.fields["entryPointPath"])
}

func TestRunEmptyBuildDirFailsBeforeArchive(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkgship.json":    `{"authToken":"t","deployRegion":"us-east-1","packageType":"build-artifact-project"}`,
		"project.yaml":    "name: svc\nversion: 0.1.0\nscripts:\n  start: main.js\n",
		"build/notes.txt": "no deployable artifacts here",
	})

	reg := registryStub("")
	defer reg.Close()
	up := &uploadStub{}
	upServer := up.server(t)
	defer upServer.Close()

	_, err := Run(context.Background(), Options{
		Root:        root,
		RegistryURL: reg.URL,
		UploadURL:   upServer.URL,
	})
	require.ErrorIs(t, err, pkgerrors.ErrNoArtifactsFound)
	assert.Equal(t, int32(0), up.calls.Load())

	_, statErr := os.Stat(archive.Path(root))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunUploadFailureStillCleansUp(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkgship.json": sourceConfig,
		"package.json": `{"name":"pkg","version":"1.0.0","files":["index.js"],"main":"index.js"}`,
		"index.js":     "x",
	})

	reg := registryStub("")
	defer reg.Close()
	up := &uploadStub{status: http.StatusInternalServerError}
	upServer := up.server(t)
	defer upServer.Close()

	_, err := Run(context.Background(), Options{
		Root:        root,
		RegistryURL: reg.URL,
		UploadURL:   upServer.URL,
	})
	require.ErrorIs(t, err, pkgerrors.ErrUploadFailed)
	assert.Contains(t, err.Error(), "synthetic hosting failure")
	assert.False(t, pkgerrors.Controlled(err))

	_, statErr := os.Stat(archive.Path(root))
	assert.True(t, os.IsNotExist(statErr), "artifact cleanup runs on the failure path too")
}

func TestRunDryRunBuildsNothing(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkgship.json": sourceConfig,
		"package.json": `{"name":"pkg","version":"1.0.0","files":["index.js","lib"],"main":"index.js"}`,
		"index.js":     "x",
		"lib/a.js":     "a",
	})

	reg := registryStub("")
	defer reg.Close()
	up := &uploadStub{}
	upServer := up.server(t)
	defer upServer.Close()

	res, err := Run(context.Background(), Options{
		Root:        root,
		RegistryURL: reg.URL,
		UploadURL:   upServer.URL,
		DryRun:      true,
	})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, []string{"package.json", "index.js", "lib/a.js"}, res.Files)
	assert.Equal(t, int32(0), up.calls.Load())

	_, statErr := os.Stat(archive.Path(root))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunManifestWithoutFilesWarns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkgship.json": sourceConfig,
		"package.json": `{"name":"pkg","version":"1.0.0","main":"index.js"}`,
		"index.js":     "unreferenced",
	})

	reg := registryStub("")
	defer reg.Close()
	up := &uploadStub{}
	upServer := up.server(t)
	defer upServer.Close()

	res, err := Run(context.Background(), Options{
		Root:        root,
		RegistryURL: reg.URL,
		UploadURL:   upServer.URL,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "declares no files")
	assert.Equal(t, []string{"package.json"}, up.entries, "no implicit default file set")
}

func TestRunMissingConfigIsControlled(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json": `{"name":"pkg","version":"1.0.0","main":"index.js"}`,
	})

	_, err := Run(context.Background(), Options{Root: root})
	require.ErrorIs(t, err, pkgerrors.ErrConfigInvalid)
	assert.True(t, pkgerrors.Controlled(err))

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageConfigLoad, stageErr.Stage)
}

func TestRunInvalidConfigTagsValidateStage(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkgship.json": `{"authToken":"t","deployRegion":"us-east-1","runtimeSelector":"node16"}`,
		"package.json": `{"name":"pkg","version":"1.0.0","main":"index.js"}`,
	})

	_, err := Run(context.Background(), Options{Root: root})
	require.ErrorIs(t, err, pkgerrors.ErrConfigInvalid)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageConfigValidate, stageErr.Stage, "a config that parses but fails validation is not a load failure")
}
