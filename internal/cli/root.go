package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// buildVersion is injected at build time via -ldflags.
var buildVersion = "dev"

var rootCmd = &cobra.Command{
	Use:   "shipctl",
	Short: "Package deployment CLI",
	Long: `shipctl packages a local project, validates it against the package
registry and uploads it to the hosting API so a proxy artifact can be
published on your behalf.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and translates any failure into a non-zero
// exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the shipctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(buildVersion)
		},
	})
}

// Root exposes the command tree for tests.
func Root() *cobra.Command {
	return rootCmd
}
