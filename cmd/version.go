package cmd

import (
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"fppgen.dev/pkg/fppgen/internal/domain/backends"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the build version, the Go version and the supported source extensions.",
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if ok && info.Main.Version != "" {
				cmd.Println("fppgen version\t", info.Main.Version)
				cmd.Println("go version\t", info.GoVersion)
			} else {
				cmd.Println("version: unknown")
			}

			cmd.Println("backends\t", strings.Join(backends.Extensions(), ", "))
		},
	}
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
