package manifest

import (
	"fmt"

	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
	"gopkg.in/yaml.v3"
)

// projectYAML mirrors the build-tool project file. Scripts are decoded as a
// yaml.Node so the declaration order survives; the first script is the
// deployment entry point.
type projectYAML struct {
	Name    string    `yaml:"name"`
	Version string    `yaml:"version"`
	Scripts yaml.Node `yaml:"scripts"`
}

func parseProjectYAML(raw []byte) (*Info, error) {
	var proj projectYAML
	if err := yaml.Unmarshal(raw, &proj); err != nil {
		return nil, fmt.Errorf("%w: cannot parse %s: %v", pkgerrors.ErrManifestInvalid, ProjectFileName, err)
	}

	entry, err := firstScript(&proj.Scripts)
	if err != nil {
		return nil, err
	}

	return &Info{
		Name:       proj.Name,
		Version:    proj.Version,
		EntryPoint: entry,
	}, nil
}

func firstScript(node *yaml.Node) (string, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) < 2 {
		return "", fmt.Errorf("%w: %s declares no scripts", pkgerrors.ErrManifestInvalid, ProjectFileName)
	}
	// Mapping nodes alternate key and value entries.
	value := node.Content[1]
	if value.Value == "" {
		return "", fmt.Errorf("%w: first script in %s is empty", pkgerrors.ErrManifestInvalid, ProjectFileName)
	}
	return value.Value, nil
}
