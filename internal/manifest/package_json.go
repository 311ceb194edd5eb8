package manifest

import (
	"encoding/json"
	"fmt"

	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
)

// packageJSON mirrors the subset of package.json the pipeline cares about.
type packageJSON struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Files   []string        `json:"files"`
	Main    string          `json:"main"`
	Bin     json.RawMessage `json:"bin"`
}

func parsePackageJSON(raw []byte) (*Info, error) {
	var pkg packageJSON
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("%w: cannot parse %s: %v", pkgerrors.ErrManifestInvalid, SourceFileName, err)
	}

	entry, err := resolveBinEntry(pkg)
	if err != nil {
		return nil, err
	}

	return &Info{
		Name:          pkg.Name,
		Version:       pkg.Version,
		EntryPoint:    entry,
		DeclaredFiles: pkg.Files,
	}, nil
}

// resolveBinEntry picks the single deployment entry point. The bin field may
// be a plain string or a name-to-path map; a map with more than one entry is
// ambiguous and rejected. Without bin, the main field is used.
func resolveBinEntry(pkg packageJSON) (string, error) {
	if len(pkg.Bin) > 0 {
		var single string
		if err := json.Unmarshal(pkg.Bin, &single); err == nil {
			if single == "" {
				return "", fmt.Errorf("%w: bin entry is empty", pkgerrors.ErrManifestInvalid)
			}
			return single, nil
		}

		var table map[string]string
		if err := json.Unmarshal(pkg.Bin, &table); err != nil {
			return "", fmt.Errorf("%w: bin must be a string or an object: %v", pkgerrors.ErrManifestInvalid, err)
		}
		switch len(table) {
		case 0:
			return "", fmt.Errorf("%w: bin table is empty", pkgerrors.ErrManifestInvalid)
		case 1:
			for _, path := range table {
				if path == "" {
					return "", fmt.Errorf("%w: bin entry is empty", pkgerrors.ErrManifestInvalid)
				}
				return path, nil
			}
		}
		return "", fmt.Errorf("%w: bin declares %d entry points, exactly one is required", pkgerrors.ErrManifestInvalid, len(table))
	}

	if pkg.Main != "" {
		return pkg.Main, nil
	}
	return "", fmt.Errorf("%w: no entry point (set bin or main in %s)", pkgerrors.ErrManifestInvalid, SourceFileName)
}
