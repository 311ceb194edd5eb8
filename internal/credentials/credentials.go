// Package credentials exposes the registry credential-file contract: locate
// an .npmrc, surface its raw content for the upload envelope, and extract
// the auth token used for registry permission checks. Anything beyond that
// contract is out of scope here.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the registry credential file name.
const FileName = ".npmrc"

// Envelope carries the credential file content alongside the token parsed
// out of it. A project with no credential file gets a zero Envelope, which
// is valid: first-time publishes need no ownership proof.
type Envelope struct {
	Path    string
	Content string
	Token   string
}

// Locate finds the credential file, preferring the project root over the
// user's home directory. An empty string means no file was found.
func Locate(root string) string {
	local := filepath.Join(root, FileName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	global := filepath.Join(home, FileName)
	if _, err := os.Stat(global); err == nil {
		return global
	}
	return ""
}

// Load reads the credential file and extracts the first _authToken value.
func Load(path string) (*Envelope, error) {
	if path == "" {
		return &Envelope{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file %s: %w", path, err)
	}
	content := string(raw)
	return &Envelope{
		Path:    path,
		Content: content,
		Token:   extractToken(content),
	}, nil
}

// extractToken scans for lines of the form //host/:_authToken=VALUE.
func extractToken(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.HasSuffix(strings.TrimSpace(key), "_authToken") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
