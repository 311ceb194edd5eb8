package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings holds process-environment configuration for the CLI itself,
// as opposed to the per-project DeployConfig.
type Settings struct {
	RegistryURL string `env:"REGISTRY_URL" envDefault:"https://registry.npmjs.org"`
	UploadURL   string `env:"UPLOAD_URL" envDefault:"https://api.pkgship.dev/v1/deployments"`
	Verbose     bool   `env:"VERBOSE" envDefault:"false"`
}

// NewSettings loads settings from the environment, honoring a local .env
// file when present.
func NewSettings() (*Settings, error) {
	// Best effort; a missing .env file is the normal case.
	_ = godotenv.Load()

	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Prefix: "PKGSHIP_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment settings: %w", err)
	}
	return &s, nil
}
