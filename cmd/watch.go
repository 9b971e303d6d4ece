package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fppgen.dev/pkg/fppgen/internal/domain"
)

var watchFlagKeys = map[string]string{
	debounceFlagName: debounceConfigKey,
	noParseFlagName:  noParseConfigKey,
	quietFlagName:    quietConfigKey,
	noCleanFlagName:  noCleanConfigKey,
}

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [sources...]",
		Short: "Regenerate questions whenever their sources change",
		Long: `Generate every source once, then regenerate a source each time it is saved
until interrupted.

` + sourcesHelp,
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindFlagsToConfig(cmd, watchFlagKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			wf := newWorkflow(cmd, viper.GetBool(quietConfigKey))

			return wf.Watch(cmd.Context(), domain.WatchArgs{
				Paths:    parsePaths(args),
				NoParse:  viper.GetBool(noParseConfigKey),
				Clean:    !viper.GetBool(noCleanConfigKey),
				Debounce: viper.GetDuration(debounceConfigKey),
			})
		},
	}

	cmd.Flags().Duration(debounceFlagName, domain.DefaultDebounce, "time a source must be unchanged before regenerating")
	cmd.Flags().Bool(noParseFlagName, false, "skip name extraction and write the default server.py")
	cmd.Flags().BoolP(quietFlagName, "q", false, "only report failures")
	cmd.Flags().Bool(noCleanFlagName, false, "skip the backend's dependency packaging step")

	return cmd
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
