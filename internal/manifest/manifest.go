// Package manifest discovers and parses the project metadata file for the
// two supported project shapes: an npm-style package.json for source
// projects, and a build-tool project.yaml for build-artifact projects.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
	"golang.org/x/mod/semver"
)

// Manifest file names per project shape.
const (
	SourceFileName  = "package.json"
	ProjectFileName = "project.yaml"
)

// Info is the project identity extracted from the manifest.
type Info struct {
	Name    string
	Version string

	// EntryPoint is the single resolvable entry point of the deployment.
	EntryPoint string

	// DeclaredFiles is the raw files list from a source-project manifest.
	// Nil for build-artifact projects.
	DeclaredFiles []string

	// FileName is the manifest's base name within the project root.
	FileName string
}

// Discover loads and validates the manifest for the given project shape.
// sourceProject selects package.json; otherwise project.yaml is used.
func Discover(root string, sourceProject bool) (*Info, error) {
	name := ProjectFileName
	if sourceProject {
		name = SourceFileName
	}

	path := filepath.Join(root, name)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s does not exist in %s", pkgerrors.ErrManifestMissing, name, root)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", pkgerrors.ErrManifestInvalid, path, err)
	}

	var info *Info
	if sourceProject {
		info, err = parsePackageJSON(raw)
	} else {
		info, err = parseProjectYAML(raw)
	}
	if err != nil {
		return nil, err
	}

	info.FileName = name
	if info.Name == "" {
		return nil, fmt.Errorf("%w: %s has no package name", pkgerrors.ErrManifestInvalid, name)
	}
	if info.Version == "" {
		return nil, fmt.Errorf("%w: %s has no version", pkgerrors.ErrManifestInvalid, name)
	}
	return info, nil
}

// VersionAdvisory returns a warning when the manifest version is not valid
// semver. Registry ordering uses a loose numeric comparison either way, so
// this is informational only.
func (i *Info) VersionAdvisory() string {
	if semver.IsValid("v" + i.Version) {
		return ""
	}
	return fmt.Sprintf("version %q is not valid semver; ordering against the registry may be surprising", i.Version)
}
