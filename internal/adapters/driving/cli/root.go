// Package cli provides the sercha-drive command line interface.
package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-drive/internal/core/services"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Services bundles what the commands drive.
type Services struct {
	Ingestion   driving.IngestionService
	Discovery   driving.DiscoveryService
	Retrieval   driving.RetrievalService
	Credentials driving.CredentialService

	FetchWorker     driving.Runner
	VectorizeWorker driving.Runner
	Scheduler       driving.Runner
}

// Connector opens the services for settings. The returned func releases
// them.
type Connector func(ctx context.Context, settings domain.Settings) (*Services, func() error, error)

// ConfigOpener opens the config store of a config directory; an empty
// directory selects the default.
type ConfigOpener func(configDir string) (driven.ConfigStore, error)

var (
	version = "dev"

	verbose   bool
	configDir string

	connect    Connector
	openConfig ConfigOpener
	getenv     = os.Getenv

	opened        *Services
	closeServices func() error
)

var rootCmd = &cobra.Command{
	Use:   "sercha-drive",
	Short: "Google Drive ingestion and retrieval",
	Long: `sercha-drive discovers a user's Google Drive files, extracts their text,
embeds it into a vector index and answers retrieval queries over it.

Run "sercha-drive worker fetch", "sercha-drive worker vectorize" and
"sercha-drive scheduler" to process the queues, then "sercha-drive sync"
to discover files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.sercha-drive)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetConnector sets how commands open their services.
func SetConnector(c Connector) {
	connect = c
}

// SetConfigOpener sets how commands open the config store.
func SetConfigOpener(o ConfigOpener) {
	openConfig = o
}

// Execute runs the root command with ctx and releases any services the
// command opened.
func Execute(ctx context.Context) error {
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("closing services: %v", err)
			}
			closeServices = nil
			opened = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// requireConfig opens the config store.
func requireConfig() (driven.ConfigStore, error) {
	if openConfig == nil {
		return nil, errors.New("config store not configured")
	}
	return openConfig(configDir)
}

// requireSettings loads and validates the settings from the config store
// and the environment. The data directory defaults to the config directory.
func requireSettings() (domain.Settings, error) {
	store, err := requireConfig()
	if err != nil {
		return domain.Settings{}, err
	}
	settings, err := services.LoadSettings(store, getenv)
	if settings.DataDir == "" {
		settings.DataDir = filepath.Dir(store.Path())
	}
	return settings, err
}

// requireServices opens the services on first use.
func requireServices(cmd *cobra.Command) (*Services, error) {
	if opened != nil {
		return opened, nil
	}
	if connect == nil {
		return nil, errors.New("services not configured")
	}
	settings, err := requireSettings()
	if err != nil {
		return nil, err
	}
	s, closer, err := connect(cmd.Context(), settings)
	if err != nil {
		return nil, err
	}
	opened = s
	closeServices = closer
	return s, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return errors.New("--user is required")
	}
	return nil
}
