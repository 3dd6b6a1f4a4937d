package model

import (
	"strings"

	"github.com/wso2/case-consent-api/internal/scope"
)

// Method records how a consent was captured.
type Method string

const (
	MethodPortal        Method = "portal"
	MethodStaffAssisted Method = "staff_assisted"
	MethodVerbal        Method = "verbal"
	MethodDocumented    Method = "documented"
	MethodMigration     Method = "migration"
)

// IsValid reports whether m is a known capture method.
func (m Method) IsValid() bool {
	switch m {
	case MethodPortal, MethodStaffAssisted, MethodVerbal, MethodDocumented, MethodMigration:
		return true
	}
	return false
}

// ParseMethod maps raw input onto a Method, returning fallback for anything unknown.
func ParseMethod(raw string, fallback Method) Method {
	m := Method(strings.ToLower(strings.TrimSpace(raw)))
	if m.IsValid() {
		return m
	}
	return fallback
}

// Status is derived from a consent's timestamps at read time.
type Status string

const (
	StatusActive     Status = "active"
	StatusExpired    Status = "expired"
	StatusRevoked    Status = "revoked"
	StatusSuperseded Status = "superseded"
)

// Consent is one consent decision for a person.
type Consent struct {
	ID               string      `json:"id"`
	PersonID         int64       `json:"personId"`
	Scope            scope.Scope `json:"scope"`
	Status           Status      `json:"status"`
	CapturedMethod   Method      `json:"capturedMethod"`
	CapturedOrgID    *int64      `json:"capturedOrgId,omitempty"`
	AttestedByStaff  bool        `json:"attestedByStaff"`
	AttestedByClient bool        `json:"attestedByClient"`
	Notes            *string     `json:"notes,omitempty"`
	PolicyVersion    string      `json:"policyVersion"`
	CreatedTime      int64       `json:"createdTime"`
	UpdatedTime      int64       `json:"updatedTime"`
	ExpiresTime      *int64      `json:"expiresTime,omitempty"`
	RevokedTime      *int64      `json:"revokedTime,omitempty"`
	CreatedBy        string      `json:"createdBy"`
	RevokedBy        *string     `json:"revokedBy,omitempty"`
	SupersededTime   *int64      `json:"supersededTime,omitempty"`
	SupersededBy     *string     `json:"supersededBy,omitempty"`

	AllowedOrgIDs []int64 `json:"allowedOrgIds"`
	BlockedOrgIDs []int64 `json:"blockedOrgIds"`
}

// DeriveStatus computes the consent status at now (epoch millis).
func (c *Consent) DeriveStatus(now int64) Status {
	switch {
	case c.RevokedTime != nil:
		return StatusRevoked
	case c.SupersededTime != nil:
		return StatusSuperseded
	case c.ExpiresTime != nil && *c.ExpiresTime <= now:
		return StatusExpired
	}
	return StatusActive
}

// IsCurrent reports whether c is the person's live record, expired or not.
func (c *Consent) IsCurrent() bool {
	return c.RevokedTime == nil && c.SupersededTime == nil
}

// Selection records whether one organization was allowed by a consent.
type Selection struct {
	ConsentID string `json:"consentId"`
	OrgID     int64  `json:"orgId"`
	Allowed   bool   `json:"allowed"`
}

// ApplySelections fills AllowedOrgIDs and BlockedOrgIDs from selection rows.
func (c *Consent) ApplySelections(selections []Selection) {
	c.AllowedOrgIDs = make([]int64, 0, len(selections))
	c.BlockedOrgIDs = make([]int64, 0, len(selections))
	for _, s := range selections {
		if s.Allowed {
			c.AllowedOrgIDs = append(c.AllowedOrgIDs, s.OrgID)
		} else {
			c.BlockedOrgIDs = append(c.BlockedOrgIDs, s.OrgID)
		}
	}
}
