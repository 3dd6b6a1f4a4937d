package model

import (
	consentmodel "github.com/wso2/case-consent-api/internal/consent/model"
	"github.com/wso2/case-consent-api/internal/scope"
)

// Status is the lifecycle state of a consent request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// IsValid reports whether s is a known request status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// IsResolved reports whether s is terminal.
func (s Status) IsResolved() bool {
	return s == StatusApproved || s == StatusDenied
}

// ConsentRequest is a partner organization's request to see a person's record.
type ConsentRequest struct {
	ID                 string   `json:"id"`
	PersonID           int64    `json:"personId"`
	RequestingOrgID    int64    `json:"requestingOrgId"`
	Purpose            string   `json:"purpose"`
	RequestedScopes    []string `json:"requestedScopes"`
	Status             Status   `json:"status"`
	RequestedBy        string   `json:"requestedBy"`
	RequestedTime      int64    `json:"requestedTime"`
	DecisionTime       *int64   `json:"decisionTime,omitempty"`
	DecisionBy         *string  `json:"decisionBy,omitempty"`
	DecisionReason     *string  `json:"decisionReason,omitempty"`
	ResultingConsentID *string  `json:"resultingConsentId,omitempty"`
}

// Decision is the terminal update applied to a pending request.
type Decision struct {
	Status             Status
	DecisionTime       int64
	DecisionBy         string
	DecisionReason     *string
	ResultingConsentID *string
}

// Apply copies the decision onto r.
func (d Decision) Apply(r *ConsentRequest) {
	r.Status = d.Status
	decisionTime := d.DecisionTime
	decisionBy := d.DecisionBy
	r.DecisionTime = &decisionTime
	r.DecisionBy = &decisionBy
	r.DecisionReason = d.DecisionReason
	r.ResultingConsentID = d.ResultingConsentID
}

// CreateRequest is the JSON body for requesting consent.
type CreateRequest struct {
	PersonID        int64    `json:"personId" validate:"required,gt=0"`
	Purpose         string   `json:"purpose" validate:"max=2000"`
	RequestedScopes []string `json:"requestedScopes" validate:"omitempty,max=20,dive,max=64"`
}

// ApproveRequest is the JSON body for approving a request. When Scope is absent the
// requesting organization is added to the person's current allow-list.
type ApproveRequest struct {
	Scope            *string `json:"scope" validate:"omitempty,oneof=all_orgs selected_orgs none"`
	AllowedOrgIDs    []int64 `json:"allowedOrgIds" validate:"omitempty,dive,gt=0"`
	Method           string  `json:"method" validate:"omitempty,oneof=portal staff_assisted verbal documented migration"`
	Notes            string  `json:"notes" validate:"max=2000"`
	PolicyVersion    string  `json:"policyVersion" validate:"max=64"`
	AttestedByStaff  bool    `json:"attestedByStaff"`
	AttestedByClient bool    `json:"attestedByClient"`
	Reason           string  `json:"reason" validate:"max=2000"`
}

// DenyRequest is the JSON body for denying a request.
type DenyRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// CreateInput is the typed input for creating a request.
type CreateInput struct {
	PersonID        int64
	Purpose         string
	RequestedScopes []string
}

// ApproveInput is the typed input for approving a request.
type ApproveInput struct {
	RequestID        string
	Scope            *scope.Scope
	AllowedOrgIDs    []int64
	Method           consentmodel.Method
	Notes            string
	PolicyVersion    string
	AttestedByStaff  bool
	AttestedByClient bool
	Reason           string
}

// DenyInput is the typed input for denying a request.
type DenyInput struct {
	RequestID string
	Reason    string
}

// ListFilter narrows the request queue.
type ListFilter struct {
	Status   Status
	PersonID *int64
	Limit    int
	Offset   int
}

// ListResponse is one page of the request queue.
type ListResponse struct {
	Data   []ConsentRequest `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ApproveResult carries the resolved request and the consent it produced.
type ApproveResult struct {
	Request *ConsentRequest       `json:"request"`
	Consent *consentmodel.Consent `json:"consent"`
}
