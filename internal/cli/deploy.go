package cli

import (
	"errors"
	"fmt"

	"github.com/pkgship-dev/pkgship/internal/config"
	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
	"github.com/pkgship-dev/pkgship/internal/pipeline"
	"github.com/pkgship-dev/pkgship/pkg/printer"
	"github.com/spf13/cobra"
)

var (
	deployDryRun     bool
	deployVerbose    bool
	deployConfigFile string
)

var deployCmd = &cobra.Command{
	Use:   "deploy [directory]",
	Short: "Validate, package and upload the project for deployment",
	Long: `Validate the project against the package registry, build the deployment
archive and upload it to the hosting API.

The target directory must contain a pkgship.json deployment config plus the
project manifest (package.json for source projects, project.yaml for
build-artifact projects).`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runDeploy,
	Example: `shipctl deploy ./my-package --dry-run`,
}

func init() {
	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false, "Resolve and validate only; build and upload are skipped")
	deployCmd.Flags().BoolVarP(&deployVerbose, "verbose", "v", false, "Show progress output")
	deployCmd.Flags().StringVar(&deployConfigFile, "config", config.DefaultFileName, "Deployment config file name within the project directory")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	settings, err := config.NewSettings()
	if err != nil {
		printer.PrintError(err.Error())
		return err
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.Options{
		Root:        root,
		ConfigFile:  deployConfigFile,
		RegistryURL: settings.RegistryURL,
		UploadURL:   settings.UploadURL,
		DryRun:      deployDryRun,
		Verbose:     deployVerbose || settings.Verbose,
	})

	if res != nil {
		for _, warning := range res.Warnings {
			printer.PrintWarning(warning)
		}
	}

	if err != nil {
		printFailure(err)
		return err
	}

	if res.DryRun {
		printer.PrintInfo(fmt.Sprintf("Would deploy %s@%s with %d entries:", res.PackageName, res.PackageVersion, len(res.Files)))
		for _, f := range res.Files {
			printer.PrintDim("  " + f)
		}
		return nil
	}

	printer.PrintSuccess(fmt.Sprintf("Deployed %s@%s (%d files)", res.PackageName, res.PackageVersion, res.ArchivedCount))
	if res.DeploymentURL != "" {
		printer.PrintInfo("Available at: " + res.DeploymentURL)
	}
	return nil
}

// printFailure renders controlled validation outcomes as a clean one-liner
// and unexpected faults with their full cause chain.
func printFailure(err error) {
	var stageErr *pipeline.StageError
	if pkgerrors.Controlled(err) && errors.As(err, &stageErr) {
		printer.PrintError(stageErr.Err.Error())
		return
	}
	printer.PrintError(printer.WrapDiagnostic(err.Error()))
}
