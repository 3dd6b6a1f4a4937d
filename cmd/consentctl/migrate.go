package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wso2/case-consent-api/internal/system/database"
)

var printSchema bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create any missing tables and indexes",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&printSchema, "print", false, "print the DDL instead of applying it")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if printSchema {
		statements, err := database.Schema(cfg.Database.Consent.Type)
		if err != nil {
			return err
		}
		for _, stmt := range statements {
			fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
		}
		return nil
	}

	db, err := database.Initialize(&cfg.Database.Consent)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := db.ApplySchema(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements to %s\n", applied, cfg.Database.Consent.Database)
	return nil
}
