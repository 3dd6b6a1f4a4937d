package portal

import (
	"strings"

	consentmodel "github.com/wso2/case-consent-api/internal/consent/model"
	requestmodel "github.com/wso2/case-consent-api/internal/consentrequest/model"
	"github.com/wso2/case-consent-api/internal/scope"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

// Form field names posted by the portal pages.
const (
	FieldPersonID         = "person_id"
	FieldConsentID        = "consent_id"
	FieldConsentScope     = "consent_scope"
	FieldAllowedOrgIDs    = "org_allowed_ids[]"
	FieldConsentMethod    = "consent_method"
	FieldConsentNotes     = "consent_notes"
	FieldDecisionReason   = "decision_reason"
	FieldPolicyVersion    = "policy_version"
	FieldAttestedByStaff  = "attested_by_staff"
	FieldAttestedByClient = "attested_by_client"
	FieldPurpose          = "purpose"
	FieldRequestedScopes  = "requested_scopes[]"
)

// FieldErrors maps a form field name to the message shown next to it.
type FieldErrors map[string]string

// Add records msg for field, keeping the first message per field.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// consentForm is posted by the consent capture, override and renew actions.
type consentForm struct {
	PersonID         string   `form:"person_id" binding:"required"`
	ConsentID        string   `form:"consent_id"`
	Scope            string   `form:"consent_scope"`
	AllowedOrgIDs    []string `form:"org_allowed_ids[]"`
	Method           string   `form:"consent_method"`
	Notes            string   `form:"consent_notes" binding:"max=2000"`
	PolicyVersion    string   `form:"policy_version" binding:"max=64"`
	AttestedByStaff  string   `form:"attested_by_staff"`
	AttestedByClient string   `form:"attested_by_client"`
}

// revokeForm is posted by the revoke action.
type revokeForm struct {
	PersonID       string `form:"person_id" binding:"required"`
	DecisionReason string `form:"decision_reason" binding:"max=2000"`
}

// requestForm is posted when a partner organization asks for consent.
type requestForm struct {
	PersonID        string   `form:"person_id" binding:"required"`
	Purpose         string   `form:"purpose" binding:"max=2000"`
	RequestedScopes []string `form:"requested_scopes[]" binding:"max=20"`
}

// decisionForm is posted by the approve and deny actions.
type decisionForm struct {
	Scope            string   `form:"consent_scope"`
	AllowedOrgIDs    []string `form:"org_allowed_ids[]"`
	Method           string   `form:"consent_method"`
	Notes            string   `form:"consent_notes" binding:"max=2000"`
	DecisionReason   string   `form:"decision_reason" binding:"max=2000"`
	PolicyVersion    string   `form:"policy_version" binding:"max=64"`
	AttestedByStaff  string   `form:"attested_by_staff"`
	AttestedByClient string   `form:"attested_by_client"`
}

// checkbox reads an HTML checkbox value. Browsers post "on" for a ticked box and nothing otherwise.
func checkbox(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func parsePersonID(raw string, errs FieldErrors) int64 {
	personID, err := utils.ParseID("person", strings.TrimSpace(raw))
	if err != nil {
		errs.Add(FieldPersonID, err.Error())
	}
	return personID
}

// parseSave turns a consent form into a save input. A missing or unknown scope falls back
// to none so a malformed post never widens visibility.
func parseSave(f consentForm) (consentmodel.SaveInput, FieldErrors) {
	errs := FieldErrors{}
	input := consentmodel.SaveInput{
		PersonID:         parsePersonID(f.PersonID, errs),
		Scope:            scope.ParseScope(f.Scope, scope.None),
		AllowedOrgIDs:    utils.ParseIDs(f.AllowedOrgIDs),
		Method:           consentmodel.ParseMethod(f.Method, ""),
		Notes:            utils.SanitizeString(f.Notes),
		PolicyVersion:    strings.TrimSpace(f.PolicyVersion),
		AttestedByStaff:  checkbox(f.AttestedByStaff),
		AttestedByClient: checkbox(f.AttestedByClient),
	}
	if input.Scope == scope.SelectedOrgs && len(input.AllowedOrgIDs) == 0 {
		errs.Add(FieldAllowedOrgIDs, scope.ErrNoOrganizationSelected.Error())
	}
	return input, errs
}

// parseRenew turns a consent form into a renew input. An empty scope keeps the current one.
func parseRenew(f consentForm) (consentmodel.RenewInput, FieldErrors) {
	errs := FieldErrors{}
	input := consentmodel.RenewInput{
		ConsentID:        strings.TrimSpace(f.ConsentID),
		PersonID:         parsePersonID(f.PersonID, errs),
		PolicyVersion:    strings.TrimSpace(f.PolicyVersion),
		AttestedByStaff:  checkbox(f.AttestedByStaff),
		AttestedByClient: checkbox(f.AttestedByClient),
	}
	if !utils.IsValidUUID(input.ConsentID) {
		errs.Add(FieldConsentID, "consent is required")
	}
	input.Scope = parseScopeChange(f.Scope, errs)
	if len(f.AllowedOrgIDs) > 0 {
		input.AllowedOrgIDs = utils.ParseIDs(f.AllowedOrgIDs)
	}
	return input, errs
}

// parseScopeChange reads an optional scope change. Empty means keep the current scope;
// an unknown value is reported rather than narrowed to none.
func parseScopeChange(raw string, errs FieldErrors) *scope.Scope {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	s := scope.ParseScope(raw, "")
	if s == "" {
		errs.Add(FieldConsentScope, "choose a valid consent scope")
		return nil
	}
	return &s
}

func parseRevoke(f revokeForm) (consentmodel.RevokeInput, FieldErrors) {
	errs := FieldErrors{}
	return consentmodel.RevokeInput{
		PersonID: parsePersonID(f.PersonID, errs),
		Reason:   utils.SanitizeString(f.DecisionReason),
	}, errs
}

func parseRequest(f requestForm) (requestmodel.CreateInput, FieldErrors) {
	errs := FieldErrors{}
	input := requestmodel.CreateInput{
		PersonID:        parsePersonID(f.PersonID, errs),
		Purpose:         utils.SanitizeString(f.Purpose),
		RequestedScopes: make([]string, 0, len(f.RequestedScopes)),
	}
	if input.Purpose == "" {
		errs.Add(FieldPurpose, "purpose is required")
	}
	for _, raw := range f.RequestedScopes {
		if s := strings.ToLower(utils.SanitizeString(raw)); s != "" {
			input.RequestedScopes = append(input.RequestedScopes, s)
		}
	}
	return input, errs
}

// parseApprove leaves Scope nil when the approver did not pick one, so the request's
// organization is added to the existing allow-list.
func parseApprove(requestID string, f decisionForm) (requestmodel.ApproveInput, FieldErrors) {
	errs := FieldErrors{}
	input := requestmodel.ApproveInput{
		RequestID:        requestID,
		Method:           consentmodel.ParseMethod(f.Method, ""),
		Notes:            utils.SanitizeString(f.Notes),
		PolicyVersion:    strings.TrimSpace(f.PolicyVersion),
		AttestedByStaff:  checkbox(f.AttestedByStaff),
		AttestedByClient: checkbox(f.AttestedByClient),
		Reason:           utils.SanitizeString(f.DecisionReason),
	}
	if s := parseScopeChange(f.Scope, errs); s != nil {
		input.Scope = s
		input.AllowedOrgIDs = utils.ParseIDs(f.AllowedOrgIDs)
		if *s == scope.SelectedOrgs && len(input.AllowedOrgIDs) == 0 {
			errs.Add(FieldAllowedOrgIDs, scope.ErrNoOrganizationSelected.Error())
		}
	}
	return input, errs
}

func parseDeny(requestID string, f decisionForm) requestmodel.DenyInput {
	return requestmodel.DenyInput{RequestID: requestID, Reason: utils.SanitizeString(f.DecisionReason)}
}
