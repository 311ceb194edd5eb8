package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"slices"

	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
)

// DefaultFileName is the deployment config file looked up in the project root.
const DefaultFileName = "pkgship.json"

// Package types supported by the deployment pipeline.
const (
	PackageTypeSource   = "source-project"
	PackageTypeArtifact = "build-artifact-project"
)

// allowed values for the optional selectors
var (
	allowedRuntimes = []string{"node18", "node20", "node22"}
	allowedMemoryMB = []int{128, 256, 512, 1024, 2048}
)

// DeployConfig is the per-project deployment configuration. It is read once
// per run, after environment substitution, and never mutated.
type DeployConfig struct {
	AuthToken       string            `json:"authToken"`
	DeployRegion    string            `json:"deployRegion"`
	PackageType     string            `json:"packageType,omitempty"`
	EntryArgsIndex  string            `json:"entryArgsIndex,omitempty"`
	InjectedHeaders map[string]string `json:"injectedHeaders,omitempty"`
	InjectedEnv     map[string]string `json:"injectedEnv,omitempty"`
	RuntimeSelector string            `json:"runtimeSelector,omitempty"`
	MemoryBudgetMB  int               `json:"memoryBudgetMB,omitempty"`
}

// envPlaceholder matches ${ENV.NAME} placeholders inside the raw config text.
var envPlaceholder = regexp.MustCompile(`\$\{ENV\.([A-Za-z_][A-Za-z0-9_]*)\}`)

// SubstituteEnv replaces every ${ENV.NAME} placeholder with the value of the
// NAME environment variable, or the empty string when unset. The pass is
// total: malformed placeholders are left as-is and nothing ever fails here.
// Validation of the resulting values happens in Validate.
func SubstituteEnv(raw []byte) []byte {
	return envPlaceholder.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envPlaceholder.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Parse reads, substitutes and decodes the deployment config at path
// without validating it. Callers that need a usable config should prefer
// Load; Parse exists so loading and validation can be reported as distinct
// failures.
func Parse(path string) (*DeployConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", pkgerrors.ErrConfigInvalid, path, err)
	}

	var cfg DeployConfig
	if err := json.Unmarshal(SubstituteEnv(raw), &cfg); err != nil {
		return nil, fmt.Errorf("%w: cannot parse %s: %v", pkgerrors.ErrConfigInvalid, path, err)
	}

	if cfg.PackageType == "" {
		cfg.PackageType = PackageTypeSource
	}
	return &cfg, nil
}

// Load reads, substitutes and parses the deployment config at path.
// The returned config is already validated.
func Load(path string) (*DeployConfig, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and the selector allow-lists.
func (c *DeployConfig) Validate() error {
	if c.AuthToken == "" {
		return fmt.Errorf("%w: authToken is required", pkgerrors.ErrConfigInvalid)
	}
	if c.DeployRegion == "" {
		return fmt.Errorf("%w: deployRegion is required", pkgerrors.ErrConfigInvalid)
	}
	if c.PackageType != PackageTypeSource && c.PackageType != PackageTypeArtifact {
		return fmt.Errorf("%w: packageType %q is not supported (use %s or %s)",
			pkgerrors.ErrConfigInvalid, c.PackageType, PackageTypeSource, PackageTypeArtifact)
	}
	if c.RuntimeSelector != "" && !slices.Contains(allowedRuntimes, c.RuntimeSelector) {
		return fmt.Errorf("%w: runtimeSelector %q is not supported (allowed: %v)",
			pkgerrors.ErrConfigInvalid, c.RuntimeSelector, allowedRuntimes)
	}
	if c.MemoryBudgetMB != 0 && !slices.Contains(allowedMemoryMB, c.MemoryBudgetMB) {
		return fmt.Errorf("%w: memoryBudgetMB %d is not supported (allowed: %v)",
			pkgerrors.ErrConfigInvalid, c.MemoryBudgetMB, allowedMemoryMB)
	}
	return nil
}
