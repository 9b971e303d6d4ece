// Package cmd provides the root command and CLI setup for fppgen.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fppgen.dev/pkg/fppgen/internal/adapter"
	"fppgen.dev/pkg/fppgen/internal/controller"
	"fppgen.dev/pkg/fppgen/internal/domain"
	"fppgen.dev/pkg/fppgen/internal/domain/backends"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

// newWorkflow builds the workflow for a command. Tests replace it.
var newWorkflow = wireWorkflow

var verboseFlag bool

const sourcesHelp = `Sources are resolved relative to ./, questions/, ../../questions/ and ../../
in that order. Without sources every .py, .rb and .rspec file in questions/ (or
../../questions/) is used.`

const rootLongDescription = `fppgen turns annotated solution files into faded Parsons questions: a
prompt with blanks, a reference solution, a server manifest and the autograder
fixtures for the question's backend.

` + sourcesHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fppgen",
		Short:         "Faded Parsons question generator",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(logFileFlagName, defaultLogFilename, "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// bindFlagsToConfig binds a command's flags to their Viper keys. Several commands
// share keys, so binding is deferred until the command runs.
func bindFlagsToConfig(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		bindFlagToConfig(cmd.Flags().Lookup(name), key)
	}
}

// wireWorkflow assembles the adapters, backends and UI behind a command.
func wireWorkflow(cmd *cobra.Command, quiet bool) domain.Workflow {
	logger := slog.Default()
	fsAdapter := adapter.NewLocalSourceFSAdapter()

	deps := backends.Dependencies{
		FS:           fsAdapter,
		Patch:        adapter.NewLocalPatchAdapter(viper.GetString(patchBinaryConfigKey)),
		Commands:     adapter.NewLocalCommandRunnerAdapter(),
		Names:        adapter.NewPythonNameExtractorAdapter(),
		SetupCommand: viper.GetString(setupCommandConfigKey),
		Logger:       logger,
	}

	return domain.NewWorkflow(
		fsAdapter,
		adapter.NewFSNotifySourceWatcherAdapter(logger),
		controller.NewUI(cmd, quiet),
		domain.NewGenerator(fsAdapter, deps, logger),
	)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
