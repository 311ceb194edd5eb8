package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkgship-dev/pkgship/internal/archive"
	"github.com/pkgship-dev/pkgship/internal/config"
	"github.com/pkgship-dev/pkgship/pkg/printer"
	"github.com/spf13/cobra"
)

// defaultConfig is what shipctl init writes. The auth token stays out of
// the file on purpose; it is substituted from the environment at deploy
// time.
const defaultConfig = `{
  "authToken": "${ENV.PKGSHIP_TOKEN}",
  "deployRegion": "us-east-1",
  "packageType": "source-project"
}
`

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a default deployment config into the project",
	Long: `Write a default pkgship.json into the project directory and add it,
along with the transient deployment archive, to the project's ignore files.`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runInit,
	Example: `shipctl init ./my-package`,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	cfgPath := filepath.Join(root, config.DefaultFileName)
	if _, err := os.Stat(cfgPath); err == nil {
		printer.PrintInfo(fmt.Sprintf("%s already exists, leaving it untouched", config.DefaultFileName))
	} else {
		if err := os.WriteFile(cfgPath, []byte(defaultConfig), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfgPath, err)
		}
		printer.PrintSuccess("Created " + config.DefaultFileName)
	}

	ignoreEntries := []string{config.DefaultFileName, archive.ArtifactName}
	if err := appendIgnoreEntries(filepath.Join(root, ".gitignore"), ignoreEntries, true); err != nil {
		return err
	}
	if err := appendIgnoreEntries(filepath.Join(root, ".npmignore"), ignoreEntries, false); err != nil {
		return err
	}

	printer.PrintInfo("Set PKGSHIP_TOKEN in your environment, then run 'shipctl deploy'.")
	return nil
}

// appendIgnoreEntries adds the given entries to an ignore file, skipping
// ones already present. When create is false a missing file is left alone.
func appendIgnoreEntries(path string, entries []string, create bool) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if !create {
			return nil
		}
		raw = nil
	} else if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	existing := map[string]bool{}
	for _, line := range strings.Split(string(raw), "\n") {
		existing[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range entries {
		if !existing[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var b strings.Builder
	b.Write(raw)
	if len(raw) > 0 && !strings.HasSuffix(string(raw), "\n") {
		b.WriteString("\n")
	}
	for _, entry := range missing {
		b.WriteString(entry + "\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	printer.PrintSuccess(fmt.Sprintf("Updated %s", filepath.Base(path)))
	return nil
}
