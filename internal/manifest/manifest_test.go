package manifest

import (
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	return dir
}

func TestDiscoverSourceProject(t *testing.T) {
	dir := writeManifest(t, SourceFileName, `{
		"name": "pkg",
		"version": "1.0.0",
		"files": ["index.js", "lib/**/*.js"],
		"bin": {"pkg": "./bin/pkg.js"}
	}`)

	info, err := Discover(dir, true)
	require.NoError(t, err)
	assert.Equal(t, "pkg", info.Name)
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "./bin/pkg.js", info.EntryPoint)
	assert.Equal(t, []string{"index.js", "lib/**/*.js"}, info.DeclaredFiles)
	assert.Equal(t, SourceFileName, info.FileName)
}

func TestDiscoverMissingManifest(t *testing.T) {
	_, err := Discover(t.TempDir(), true)
	assert.ErrorIs(t, err, pkgerrors.ErrManifestMissing)
}

func TestEntryPointResolution(t *testing.T) {
	tests := []struct {
		name      string
		manifest  string
		wantEntry string
		wantErr   bool
	}{
		{
			name:      "string bin",
			manifest:  `{"name":"p","version":"1.0.0","bin":"cli.js"}`,
			wantEntry: "cli.js",
		},
		{
			name:      "single entry bin table",
			manifest:  `{"name":"p","version":"1.0.0","bin":{"p":"run.js"}}`,
			wantEntry: "run.js",
		},
		{
			name:     "ambiguous bin table",
			manifest: `{"name":"p","version":"1.0.0","bin":{"a":"a.js","b":"b.js"}}`,
			wantErr:  true,
		},
		{
			name:      "main fallback",
			manifest:  `{"name":"p","version":"1.0.0","main":"index.js"}`,
			wantEntry: "index.js",
		},
		{
			name:     "no entry point at all",
			manifest: `{"name":"p","version":"1.0.0"}`,
			wantErr:  true,
		},
		{
			name:     "empty bin string",
			manifest: `{"name":"p","version":"1.0.0","bin":""}`,
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeManifest(t, SourceFileName, tt.manifest)
			info, err := Discover(dir, true)
			if tt.wantErr {
				require.ErrorIs(t, err, pkgerrors.ErrManifestInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEntry, info.EntryPoint)
		})
	}
}

func TestDiscoverRequiresNameAndVersion(t *testing.T) {
	for _, manifest := range []string{
		`{"version":"1.0.0","main":"index.js"}`,
		`{"name":"p","main":"index.js"}`,
	} {
		dir := writeManifest(t, SourceFileName, manifest)
		_, err := Discover(dir, true)
		assert.ErrorIs(t, err, pkgerrors.ErrManifestInvalid)
	}
}

func TestDiscoverBuildProject(t *testing.T) {
	dir := writeManifest(t, ProjectFileName, `
name: svc
version: 2.1.0
scripts:
  start: server.js
  lint: run-lint.js
`)

	info, err := Discover(dir, false)
	require.NoError(t, err)
	assert.Equal(t, "svc", info.Name)
	assert.Equal(t, "2.1.0", info.Version)
	assert.Equal(t, "server.js", info.EntryPoint, "first script is the entry point")
	assert.Nil(t, info.DeclaredFiles)
}

func TestDiscoverBuildProjectNoScripts(t *testing.T) {
	dir := writeManifest(t, ProjectFileName, "name: svc\nversion: 1.0.0\n")
	_, err := Discover(dir, false)
	assert.ErrorIs(t, err, pkgerrors.ErrManifestInvalid)
}

func TestVersionAdvisory(t *testing.T) {
	ok := &Info{Version: "1.2.3"}
	assert.Empty(t, ok.VersionAdvisory())

	loose := &Info{Version: "1.2.3.4"}
	assert.NotEmpty(t, loose.VersionAdvisory())
}
