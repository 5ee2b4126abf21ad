// Package cli implements the dgk-menu command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kristyson/DGK-Restaurante/internal/config"
	"github.com/kristyson/DGK-Restaurante/internal/store"
	"github.com/kristyson/DGK-Restaurante/internal/weather"
	"github.com/kristyson/DGK-Restaurante/pkg/client"
)

// Build information, set through -ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	flags = struct {
		EnvFile string
	}{}

	cfg config.Config

	root = &cobra.Command{
		Use:           "dgk-menu",
		Short:         "Manage the DGK restaurant menu",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(flags.EnvFile); err != nil {
				return err
			}
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			setupLogging(cfg)
			return nil
		},
	}
)

func init() {
	root.PersistentFlags().StringVarP(&flags.EnvFile, "env-file", "e", ".env", "dotenv file read before the environment")
	root.AddCommand(serveCmd, menuCmd, weatherCmd)
}

// Execute runs the root command.
func Execute() {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expanding env file path: %w", err)
	}
	if err := godotenv.Load(expanded); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading env file %s: %w", expanded, err)
	}
	return nil
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.DevMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "dgk-menu").Str("version", Version).Logger()
}

// newGateway builds the remote gateway from the loaded configuration.
func newGateway(cfg config.Config) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL:       cfg.ParseServerURL,
		ApplicationID: cfg.ParseAppID,
		ClientKey:     cfg.ParseClientKey,
		WeatherURL:    cfg.WeatherURL,
		Timezone:      cfg.WeatherTimezone,
		Timeout:       cfg.HTTPTimeout,
	})
}

func newStore(gw *client.Client, cfg config.Config) *store.Store {
	return store.New(gw, cfg.ParseClass, store.WithLogger(log.Logger))
}

func newPanel(gw *client.Client, cfg config.Config) *weather.Panel {
	return weather.NewPanel(gw, cfg.Locations(), weather.WithLogger(log.Logger))
}
