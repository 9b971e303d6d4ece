package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fppgen.dev/pkg/fppgen/internal/domain"
)

var forceJSONFlag []string

var generateFlagKeys = map[string]string{
	noParseFlagName:  noParseConfigKey,
	quietFlagName:    quietConfigKey,
	parallelFlagName: parallelConfigKey,
	noCleanFlagName:  noCleanConfigKey,
}

const generateLongDescription = `Generate a question directory next to each source file.

The directory is named after the file stem and holds question.html, solution,
server.py, info.json and a tests/ directory with the backend's fixtures. An
existing info.json is kept unless --force-json names the source or the source
carries an info.json region.

` + sourcesHelp

// generateCmd represents the generate command.
var generateCmd = newGenerateCmd()

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [sources...]",
		Short: "Generate faded Parsons questions",
		Long:  generateLongDescription,
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindFlagsToConfig(cmd, generateFlagKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet := viper.GetBool(quietConfigKey)
			wf := newWorkflow(cmd, quiet)

			return wf.Generate(cmd.Context(), domain.BatchArgs{
				Paths:     parsePaths(args),
				ForceJSON: parsePaths(forceJSONFlag),
				NoParse:   viper.GetBool(noParseConfigKey),
				Threads:   parallelism(viper.GetInt(parallelConfigKey)),
				Clean:     !viper.GetBool(noCleanConfigKey),
			})
		},
	}

	configureGenerateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func configureGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&forceJSONFlag, forceJSONFlagName, nil, "source whose info.json is regenerated (can be repeated)")
	cmd.Flags().Bool(noParseFlagName, false, "skip name extraction and write the default server.py")
	cmd.Flags().BoolP(quietFlagName, "q", false, "only report failures and the batch summary")
	cmd.Flags().IntP(parallelFlagName, "p", defaultParallel, "number of sources generated concurrently")
	cmd.Flags().Bool(noCleanFlagName, false, "skip the backend's dependency packaging step")
}

func parallelism(n int) uint {
	if n < 1 {
		return 1
	}

	return uint(n)
}
