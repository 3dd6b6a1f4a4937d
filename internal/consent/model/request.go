package model

import (
	orgmodel "github.com/wso2/case-consent-api/internal/organization/model"
	"github.com/wso2/case-consent-api/internal/scope"
)

// SaveRequest is the JSON body for saving or overriding a consent.
type SaveRequest struct {
	Scope            string  `json:"scope" validate:"required,oneof=all_orgs selected_orgs none"`
	AllowedOrgIDs    []int64 `json:"allowedOrgIds" validate:"omitempty,dive,gt=0"`
	Method           string  `json:"method" validate:"omitempty,oneof=portal staff_assisted verbal documented migration"`
	Notes            string  `json:"notes" validate:"max=2000"`
	PolicyVersion    string  `json:"policyVersion" validate:"max=64"`
	AttestedByStaff  bool    `json:"attestedByStaff"`
	AttestedByClient bool    `json:"attestedByClient"`
}

// RenewRequest is the JSON body for renewing a consent. Scope and AllowedOrgIDs are
// optional and keep the existing values when absent.
type RenewRequest struct {
	PersonID         int64    `json:"personId" validate:"omitempty,gt=0"`
	Scope            *string  `json:"scope" validate:"omitempty,oneof=all_orgs selected_orgs none"`
	AllowedOrgIDs    *[]int64 `json:"allowedOrgIds"`
	PolicyVersion    string   `json:"policyVersion" validate:"max=64"`
	AttestedByStaff  bool     `json:"attestedByStaff"`
	AttestedByClient bool     `json:"attestedByClient"`
}

// RevokeRequest is the JSON body for revoking a consent.
type RevokeRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// SaveInput is the typed input for save and override.
type SaveInput struct {
	PersonID         int64
	Scope            scope.Scope
	AllowedOrgIDs    []int64
	Method           Method
	Notes            string
	PolicyVersion    string
	AttestedByStaff  bool
	AttestedByClient bool
}

// RenewInput is the typed input for renew. A nil Scope or AllowedOrgIDs keeps the existing value.
type RenewInput struct {
	ConsentID        string
	PersonID         int64
	Scope            *scope.Scope
	AllowedOrgIDs    []int64
	PolicyVersion    string
	AttestedByStaff  bool
	AttestedByClient bool
}

// RevokeInput is the typed input for revoke.
type RevokeInput struct {
	PersonID int64
	Reason   string
}

// ConsentView is what a profile page renders: the current consent and the roster it is judged against.
type ConsentView struct {
	PersonID      int64                   `json:"personId"`
	Consent       *Consent                `json:"consent"`
	Organizations []orgmodel.Organization `json:"organizations"`
}

// HistoryResponse lists every consent ever recorded for a person, newest first.
type HistoryResponse struct {
	Data []Consent `json:"data"`
}

// VisibilityResponse answers whether an organization may currently see a person's record.
type VisibilityResponse struct {
	PersonID  int64   `json:"personId"`
	OrgID     int64   `json:"orgId"`
	Visible   bool    `json:"visible"`
	ConsentID *string `json:"consentId,omitempty"`
}

// SweepResult reports the outcome of an expiry sweep.
type SweepResult struct {
	Expired    int      `json:"expired"`
	ConsentIDs []string `json:"consentIds"`
}
