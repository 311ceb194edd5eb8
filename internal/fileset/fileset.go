// Package fileset computes the exact set of project-relative paths to
// package for a deployment. It is a pure function of the filesystem and the
// manifest; nothing here touches the network.
package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
)

// BuildDirName is the build output directory expected for build-artifact
// projects.
const BuildDirName = "build"

// artifactExtensions lists the file extensions that qualify as deployable
// build artifacts. Anything else in the build directory is ignored.
var artifactExtensions = map[string]bool{
	".js":   true,
	".mjs":  true,
	".cjs":  true,
	".json": true,
	".node": true,
	".wasm": true,
}

// FileSet is the ordered, deduplicated set of relative path patterns to
// package. It always contains the manifest file as its first entry and is
// immutable once resolved.
type FileSet struct {
	// Entries are include patterns in declaration order: plain files,
	// directories, or globs.
	Entries []string

	// Warnings are non-fatal signals surfaced to the operator.
	Warnings []string

	excludes *exclusions
}

// ResolveSource computes the file set for a source-project. The manifest
// file itself is always included. When the manifest declares no files, the
// set degrades to the manifest alone and a warning is recorded; there is no
// implicit default. Entries prefixed with '!' are collected as exclusions.
func ResolveSource(manifestName string, declared []string, extraExcludes ...string) *FileSet {
	fs := &FileSet{}

	var excludePatterns []string
	excludePatterns = append(excludePatterns, extraExcludes...)

	seen := map[string]bool{}
	add := func(entry string) {
		entry = strings.TrimPrefix(filepath.ToSlash(entry), "./")
		if entry == "" || seen[entry] {
			return
		}
		seen[entry] = true
		fs.Entries = append(fs.Entries, entry)
	}

	add(manifestName)
	var declaredCount int
	for _, pattern := range declared {
		if stripped, ok := strings.CutPrefix(pattern, "!"); ok {
			excludePatterns = append(excludePatterns, stripped)
			continue
		}
		declaredCount++
		add(pattern)
	}

	if declaredCount == 0 {
		fs.Warnings = append(fs.Warnings,
			fmt.Sprintf("manifest declares no files; packaging only %s", manifestName))
	}

	fs.excludes = newExclusions(excludePatterns)
	return fs
}

// Excluded reports whether the relative path is suppressed by an exclusion
// pattern. The manifest file is never excluded.
func (fs *FileSet) Excluded(rel string) bool {
	if len(fs.Entries) > 0 && rel == fs.Entries[0] {
		return false
	}
	return fs.excludes.Match(filepath.ToSlash(rel))
}

// Expand resolves every entry against the project root and returns the
// concrete relative file paths, in entry order, exclusions applied.
func (fs *FileSet) Expand(root string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, entry := range fs.Entries {
		files, err := fs.ExpandEntry(root, entry)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// ExpandEntry resolves a single entry: a regular file yields itself, a
// directory yields its full recursive contents, and a glob yields every
// matching file under its fixed prefix. A glob whose prefix does not exist
// contributes nothing; that is a sanctioned no-op, not an error.
func (fs *FileSet) ExpandEntry(root, entry string) ([]string, error) {
	if hasWildcard(entry) {
		return fs.expandGlob(root, entry)
	}

	full := filepath.Join(root, filepath.FromSlash(entry))
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot stat %s: %v", pkgerrors.ErrArchiveBuildFailed, entry, err)
	}

	if !info.IsDir() {
		if fs.Excluded(entry) {
			return nil, nil
		}
		return []string{entry}, nil
	}

	var out []string
	err = filepath.WalkDir(full, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !fs.Excluded(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: cannot walk %s: %v", pkgerrors.ErrArchiveBuildFailed, entry, err)
	}
	return out, nil
}

// ArtifactSet is the resolved file set for a build-artifact project.
type ArtifactSet struct {
	// MetadataFile is the build project file name, placed at the archive root.
	MetadataFile string

	// Files are artifact paths relative to the build output directory, in
	// deterministic walk order.
	Files []string
}

// ResolveArtifacts locates the build output directory under root and
// collects every file with a qualifying artifact extension. An absent build
// directory or an empty result is a hard failure: the operator must build
// before deploying.
func ResolveArtifacts(root, metadataFile string) (*ArtifactSet, error) {
	buildDir := filepath.Join(root, BuildDirName)
	info, err := os.Stat(buildDir)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s/ does not exist in %s; run your build first",
			pkgerrors.ErrNoArtifactsFound, BuildDirName, root)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot stat %s: %v", pkgerrors.ErrNoArtifactsFound, buildDir, err)
	}

	set := &ArtifactSet{MetadataFile: metadataFile}
	err = filepath.WalkDir(buildDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !artifactExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(buildDir, path)
		if err != nil {
			return err
		}
		set.Files = append(set.Files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: cannot walk %s: %v", pkgerrors.ErrNoArtifactsFound, buildDir, err)
	}

	if len(set.Files) == 0 {
		return nil, fmt.Errorf("%w: %s/ holds no deployable artifacts; run your build first",
			pkgerrors.ErrNoArtifactsFound, BuildDirName)
	}
	return set, nil
}
