// Package validator converts consent request API bodies into typed service inputs.
package validator

import (
	"errors"
	"strings"

	consentmodel "github.com/wso2/case-consent-api/internal/consent/model"
	consentvalidator "github.com/wso2/case-consent-api/internal/consent/validator"
	"github.com/wso2/case-consent-api/internal/consentrequest/model"
	"github.com/wso2/case-consent-api/internal/scope"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

// ErrPurposeRequired is returned when a request carries no purpose.
var ErrPurposeRequired = errors.New("purpose is required")

// ToCreateInput validates a create request and produces the typed input.
func ToCreateInput(req model.CreateRequest) (model.CreateInput, error) {
	if err := consentvalidator.ValidateStruct(req); err != nil {
		return model.CreateInput{}, err
	}
	purpose := utils.SanitizeString(req.Purpose)
	if purpose == "" {
		return model.CreateInput{}, ErrPurposeRequired
	}
	return model.CreateInput{
		PersonID:        req.PersonID,
		Purpose:         purpose,
		RequestedScopes: cleanScopes(req.RequestedScopes),
	}, nil
}

// ToApproveInput validates an approve request and produces the typed input.
func ToApproveInput(requestID string, req model.ApproveRequest) (model.ApproveInput, error) {
	if err := validateRequestID(requestID); err != nil {
		return model.ApproveInput{}, err
	}
	if err := consentvalidator.ValidateStruct(req); err != nil {
		return model.ApproveInput{}, err
	}
	input := model.ApproveInput{
		RequestID:        requestID,
		Method:           consentmodel.ParseMethod(req.Method, ""),
		Notes:            utils.SanitizeString(req.Notes),
		PolicyVersion:    strings.TrimSpace(req.PolicyVersion),
		AttestedByStaff:  req.AttestedByStaff,
		AttestedByClient: req.AttestedByClient,
		Reason:           utils.SanitizeString(req.Reason),
	}
	if req.Scope != nil {
		s := scope.Scope(*req.Scope)
		input.Scope = &s
		input.AllowedOrgIDs = req.AllowedOrgIDs
	}
	return input, nil
}

// ToDenyInput validates a deny request and produces the typed input.
func ToDenyInput(requestID string, req model.DenyRequest) (model.DenyInput, error) {
	if err := validateRequestID(requestID); err != nil {
		return model.DenyInput{}, err
	}
	if err := consentvalidator.ValidateStruct(req); err != nil {
		return model.DenyInput{}, err
	}
	return model.DenyInput{RequestID: requestID, Reason: utils.SanitizeString(req.Reason)}, nil
}

func validateRequestID(requestID string) error {
	if utils.ValidateUUID(requestID) != nil {
		return errors.New("request ID must be a UUID")
	}
	return nil
}

func cleanScopes(raw []string) []string {
	scopes := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		s := strings.ToLower(utils.SanitizeString(r))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		scopes = append(scopes, s)
	}
	return scopes
}
