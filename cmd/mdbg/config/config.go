// Package config resolves cmd/mdbg's settings from, in priority order,
// explicit flags, MDBG_* environment variables, and
// $HOME/.config/mdbg/config.yaml, falling back to built-in defaults.
//
// Grounded on Manu343726-cucaracha's cmd/root.go viper/cobra wiring
// (AddConfigPath/SetConfigType/SetConfigName + AutomaticEnv), adapted
// from that repo's single global viper instance to one instance per
// invocation so tests don't share state across cases.
package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds cmd/mdbg's resolved settings.
type Config struct {
	// HistoryPath is where REPL line history is persisted.
	HistoryPath string
	// LogFilePath, if non-empty, receives JSON debug-event logs
	// alongside the stderr text log.
	LogFilePath string
	// LogLevel is the minimum level logged to every destination.
	LogLevel slog.Level
}

const (
	keyHistoryPath = "historyPath"
	keyLogFilePath = "logFilePath"
	keyLogLevel    = "logLevel"
)

// Load resolves a Config from flags, environment, and config file, in
// that priority order, falling back to defaults rooted at
// $HOME/.config/mdbg and $HOME/.cache/mdbg.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault(keyHistoryPath, filepath.Join(home, ".cache", "mdbg", "history"))
	v.SetDefault(keyLogFilePath, "")
	v.SetDefault(keyLogLevel, "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(home, ".config", "mdbg"))
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	v.SetEnvPrefix("MDBG")
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		level = slog.LevelInfo
	}

	return &Config{
		HistoryPath: v.GetString(keyHistoryPath),
		LogFilePath: v.GetString(keyLogFilePath),
		LogLevel:    level,
	}, nil
}
