// Package main provides the Data Ada CLI for chatting with the assistant,
// running the development server and managing uploads and projects.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dataada/go-sdk/pkg/backend"
	"github.com/dataada/go-sdk/pkg/client"
	"github.com/dataada/go-sdk/pkg/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	useMock    bool

	cfg    *config.Config
	logger *logrus.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dataada",
	Short: "Data Ada - conversational data analysis",
	Long: `Data Ada turns spreadsheets into answers and charts.

Settings come from an optional YAML file (--config) and DATAADA_* environment
variables, e.g. DATAADA_API_URL, DATAADA_USE_MOCK and DATAADA_DB_PATH.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if useMock {
			loaded.API.UseMock = true
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}

		cfg = loaded
		logger = cfg.Logger()
		logger.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Use the built-in simulator instead of the API")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(projectsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openBackend opens the local SQLite backend named by the configuration.
func openBackend() (*backend.SQLite, error) {
	db, err := backend.OpenSQLite(cfg.Storage.DatabasePath, backend.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open backend: %w", err)
	}
	return db, nil
}

// newClient builds a client from the configuration. db may be nil.
func newClient(db *backend.SQLite) (*client.Client, error) {
	cc, err := cfg.ClientConfig(logger)
	if err != nil {
		return nil, err
	}
	if db != nil {
		cc.Backend = db
	}
	return client.New(cc)
}
