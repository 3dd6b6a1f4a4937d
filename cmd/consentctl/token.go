package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/wso2/case-consent-api/internal/access"
)

var (
	tokenSubject      string
	tokenPersonID     int64
	tokenOrgIDs       []int64
	tokenCapabilities []string
	tokenTTL          time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed portal access token",
	Long: `Issues a bearer token signed with the configured portal secret.

Examples:
  consentctl token --subject client-42 --person 42
  consentctl token --subject staff-1 --org 1 --capability manage_consents`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "profile ID the token is issued to")
	tokenCmd.Flags().Int64Var(&tokenPersonID, "person", 0, "person ID when the caller is a client")
	tokenCmd.Flags().Int64SliceVar(&tokenOrgIDs, "org", nil, "organization IDs the caller belongs to")
	tokenCmd.Flags().StringSliceVar(&tokenCapabilities, "capability", nil, "capabilities granted to the caller")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	claims := access.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: tokenSubject},
		OrgIDs:           tokenOrgIDs,
		Capabilities:     tokenCapabilities,
	}
	if tokenPersonID > 0 {
		claims.PersonID = &tokenPersonID
	}
	token, err := access.NewTokenManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).Issue(claims, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
