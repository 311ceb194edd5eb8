// Package archive builds the single compressed artifact transmitted to the
// hosting API. Both builders produce deterministic zips: fixed entry order
// and zeroed timestamps, so an unchanged tree archives byte-for-byte
// identically across runs.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
	"github.com/pkgship-dev/pkgship/internal/fileset"
)

// ArtifactName is the fixed archive file name inside the project directory.
// The file is created fresh each run and must never outlive the process.
const ArtifactName = ".pkgship-deploy.zip"

// ArtifactsPrefix is the archive-internal directory holding build artifacts
// for build-artifact projects.
const ArtifactsPrefix = "artifacts"

// Path returns the artifact location for a project root.
func Path(root string) string {
	return filepath.Join(root, ArtifactName)
}

// Remove deletes the artifact at path, tolerating its absence. It is called
// unconditionally on every pipeline exit path.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// BuildSource archives a resolved source-project file set at outPath and
// returns the number of files written. Entries resolve tolerantly (an
// unmatched glob is skipped), but a read failure on a file that resolution
// just confirmed is an unexpected I/O fault and aborts the build.
func BuildSource(root, outPath string, fs *fileset.FileSet) (int, error) {
	files, err := fs.Expand(root)
	if err != nil {
		return 0, err
	}

	return write(outPath, files, func(rel string) (io.ReadCloser, string, error) {
		f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, "", fmt.Errorf("%w: cannot read %s: %v", pkgerrors.ErrArchiveBuildFailed, rel, err)
		}
		return f, rel, nil
	})
}

// BuildArtifacts archives a build-artifact project at outPath: the build
// metadata file at the archive root and every artifact under artifacts/,
// preserving the layout relative to the build directory. An artifact that
// vanished since resolution is a race with an external mutation and fails
// the build rather than being skipped.
func BuildArtifacts(root, outPath string, set *fileset.ArtifactSet) (int, error) {
	entries := make([]string, 0, len(set.Files)+1)
	entries = append(entries, set.MetadataFile)
	entries = append(entries, set.Files...)

	return write(outPath, entries, func(rel string) (io.ReadCloser, string, error) {
		src := filepath.Join(root, filepath.FromSlash(rel))
		name := rel
		if rel != set.MetadataFile {
			src = filepath.Join(root, fileset.BuildDirName, filepath.FromSlash(rel))
			name = ArtifactsPrefix + "/" + rel
		}

		f, err := os.Open(src)
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s disappeared before archiving", pkgerrors.ErrMissingArtifact, rel)
		}
		if err != nil {
			return nil, "", fmt.Errorf("%w: cannot read %s: %v", pkgerrors.ErrArchiveBuildFailed, rel, err)
		}
		return f, name, nil
	})
}

// write produces the zip at outPath, replacing any stale file already there.
type opener func(rel string) (io.ReadCloser, string, error)

func write(outPath string, entries []string, open opener) (int, error) {
	if err := Remove(outPath); err != nil {
		return 0, fmt.Errorf("%w: cannot remove stale artifact: %v", pkgerrors.ErrArchiveBuildFailed, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("%w: cannot create %s: %v", pkgerrors.ErrArchiveBuildFailed, outPath, err)
	}
	defer func() { _ = out.Close() }()

	zw := zip.NewWriter(out)
	count := 0
	for _, rel := range entries {
		rc, name, err := open(rel)
		if err != nil {
			_ = zw.Close()
			return count, err
		}

		// Fixed header fields keep rebuilds of an unchanged tree identical.
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		})
		if err == nil {
			_, err = io.Copy(w, rc)
		}
		_ = rc.Close()
		if err != nil {
			_ = zw.Close()
			return count, fmt.Errorf("%w: cannot archive %s: %v", pkgerrors.ErrArchiveBuildFailed, rel, err)
		}
		count++
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("%w: cannot finalize archive: %v", pkgerrors.ErrArchiveBuildFailed, err)
	}
	if err := out.Close(); err != nil {
		return count, fmt.Errorf("%w: cannot flush archive: %v", pkgerrors.ErrArchiveBuildFailed, err)
	}
	return count, nil
}
