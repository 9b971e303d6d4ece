package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"fppgen.dev/pkg/fppgen/internal/domain"
	"fppgen.dev/pkg/fppgen/internal/domain/backends"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "fppgen"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	forceJSONFlagName = "force-json"
	noParseFlagName   = "no-parse"
	quietFlagName     = "quiet"
	parallelFlagName  = "parallel"
	noCleanFlagName   = "no-clean"
	debounceFlagName  = "debounce"
	logFileFlagName   = "log-file"
	verboseFlagName   = "verbose"

	noParseConfigKey      = "generate.no_parse"
	quietConfigKey        = "generate.quiet"
	parallelConfigKey     = "generate.parallel"
	noCleanConfigKey      = "generate.no_clean"
	debounceConfigKey     = "watch.debounce"
	setupCommandConfigKey = "backends.setup_command"
	patchBinaryConfigKey  = "backends.patch_binary"

	defaultParallel    = 1
	defaultPatchBinary = "patch"

	envPrefix = "FPPGEN"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".fppgen.log"
	defaultLogLevel      = "info"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

func init() {
	setupConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		slog.Warn("failed to read config file", "file", configFileName, "error", err)
	}
}

func setupConfig() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setConfigDefaults()
}

func setConfigDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)

	viper.SetDefault(noParseConfigKey, false)
	viper.SetDefault(quietConfigKey, false)
	viper.SetDefault(parallelConfigKey, defaultParallel)
	viper.SetDefault(noCleanConfigKey, false)
	viper.SetDefault(debounceConfigKey, domain.DefaultDebounce.String())
	viper.SetDefault(setupCommandConfigKey, backends.DefaultSetupCommand)
	viper.SetDefault(patchBinaryConfigKey, defaultPatchBinary)

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels are accepted too (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger points the default slog logger at a rotating log file. It
// logs at the configured level, or Debug when verbose is set.
func configureLogger(logPath string, verbose bool) *slog.Logger {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	logLevel := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	if verbose {
		logLevel = slog.LevelDebug
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
