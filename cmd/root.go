// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sevren0x/cartpilot/internal/config"
	"github.com/sevren0x/cartpilot/internal/observability"
)

// NewRootCommand builds a fresh root command. A new instance per invocation
// keeps flag state from leaking between executions.
func NewRootCommand() *cobra.Command {
	var cfgFile string
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:     "cartpilot",
		Short:   "Cartpilot drives a browser through a checkout funnel.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := initializeViper(cfgFile)
			if err != nil {
				return err
			}

			cfg, err = config.NewConfigFromViper(v)
			if err != nil {
				// Fall back to a usable logger so the failure is visible.
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "cartpilot",
				})
				return err
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Starting cartpilot", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is ./config.yaml or ~/.cartpilot/config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newRunCommand(func() *config.Config { return cfg }))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the CLI against the given context.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// initializeViper reads the config file and environment overrides.
func initializeViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".cartpilot"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CARTPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars still apply.
	}
	return v, nil
}
