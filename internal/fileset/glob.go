package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
)

func hasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// fixedPrefix returns the pattern's leading path segments up to, but not
// including, the first segment that contains a wildcard.
func fixedPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	var fixed []string
	for _, seg := range segments {
		if hasWildcard(seg) {
			break
		}
		fixed = append(fixed, seg)
	}
	return strings.Join(fixed, "/")
}

// expandGlob walks the pattern's fixed prefix and returns every file whose
// root-relative path matches. A prefix that does not exist on disk silently
// contributes nothing; that is the only sanctioned silence here. A pattern
// that fails to compile is a manifest defect and an I/O fault mid-walk
// aborts rather than shipping a partial set.
func (fs *FileSet) expandGlob(root, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("%w: invalid file pattern %q: %v", pkgerrors.ErrManifestInvalid, pattern, err)
	}

	prefix := fixedPrefix(pattern)
	base := root
	if prefix != "" {
		base = filepath.Join(root, filepath.FromSlash(prefix))
	}
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil, nil
	}

	var out []string
	walkErr := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
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
		if g.Match(rel) && !fs.Excluded(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("%w: cannot walk %s: %v", pkgerrors.ErrArchiveBuildFailed, pattern, walkErr)
	}
	return out, nil
}

// exclusions holds compiled exclusion patterns. A bare directory name d
// (no wildcard, no trailing separator) additionally matches d/* and d/**
// so that excluding "node_modules" suppresses both the directory entry and
// its full recursive contents, however the include side enumerated them.
type exclusions struct {
	globs []glob.Glob
}

func newExclusions(patterns []string) *exclusions {
	e := &exclusions{}
	for _, p := range patterns {
		p = strings.TrimSuffix(filepath.ToSlash(p), "/")
		if p == "" {
			continue
		}
		if !hasWildcard(p) {
			for _, variant := range []string{p, p + "/*", p + "/**"} {
				if g, err := glob.Compile(variant, '/'); err == nil {
					e.globs = append(e.globs, g)
				}
			}
			continue
		}
		if g, err := glob.Compile(p, '/'); err == nil {
			e.globs = append(e.globs, g)
		}
	}
	return e
}

func (e *exclusions) Match(rel string) bool {
	if e == nil {
		return false
	}
	for _, g := range e.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}
