package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wso2/case-consent-api/internal/audit"
	"github.com/wso2/case-consent-api/internal/consent"
	"github.com/wso2/case-consent-api/internal/consentrequest"
	"github.com/wso2/case-consent-api/internal/organization"
	"github.com/wso2/case-consent-api/internal/system/cache"
	"github.com/wso2/case-consent-api/internal/system/database"
	"github.com/wso2/case-consent-api/internal/system/database/provider"
	"github.com/wso2/case-consent-api/internal/system/log"
	"github.com/wso2/case-consent-api/internal/system/stores"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

var sweepInterval time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep-expired",
	Short: "Clear organization grants held by expired consents",
	Long: `Finds consents past their expiry that still hold organization grants,
clears those grants and records a consent_expired audit event for each.

With --interval the sweep repeats until the process is interrupted.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "repeat the sweep at this interval")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ExpirySweep"))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(&cfg.Database.Consent)
	if err != nil {
		return err
	}
	defer db.Close()

	viewCache, err := cache.NewViewCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer viewCache.Close()

	dbClient := provider.NewDBClient(db)
	registry := stores.NewStoreRegistry(
		dbClient,
		consent.NewConsentStore(dbClient),
		consentrequest.NewConsentRequestStore(dbClient),
		organization.NewOrganizationStore(dbClient),
		audit.NewAuditStore(dbClient),
	)
	service := consent.NewConsentService(registry, organization.NewOrganizationService(registry), viewCache, cfg.Consent)

	sweep := func(ctx context.Context) error {
		result, svcErr := service.SweepExpired(ctx, utils.GetCurrentTimeMillis())
		if svcErr != nil {
			return fmt.Errorf("sweep failed: %s", svcErr.ErrorDescription)
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
	}

	if sweepInterval <= 0 {
		return sweep(ctx)
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		if err := sweep(ctx); err != nil {
			logger.Error("Expiry sweep failed", log.Error(err))
		}
		select {
		case <-ctx.Done():
			logger.Info("Expiry sweep stopped")
			return nil
		case <-ticker.C:
		}
	}
}
