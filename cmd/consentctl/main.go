// Command consentctl runs maintenance tasks against the consent database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wso2/case-consent-api/internal/system/config"
	"github.com/wso2/case-consent-api/internal/system/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "consentctl",
	Short: "Maintenance commands for the case consent service",
	Long: `consentctl applies the database schema, sweeps expired consents and
issues portal access tokens for local testing.

Configuration is read from the same deployment.yaml as the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to deployment.yaml")
	rootCmd.AddCommand(migrateCmd, sweepCmd, tokenCmd)
}

// loadConfig reads the deployment configuration and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.Init(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
