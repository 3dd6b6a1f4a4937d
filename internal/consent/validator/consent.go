// Package validator converts consent API requests into typed service inputs.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/wso2/case-consent-api/internal/consent/model"
	"github.com/wso2/case-consent-api/internal/scope"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct runs the struct tag rules and flattens any failures into one message.
func ValidateStruct(req interface{}) error {
	err := instance().Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// ToSaveInput validates a save request and produces the typed input.
func ToSaveInput(personID int64, req model.SaveRequest, defaultMethod model.Method) (model.SaveInput, error) {
	if personID <= 0 {
		return model.SaveInput{}, fmt.Errorf("person ID must be a positive integer")
	}
	if err := ValidateStruct(req); err != nil {
		return model.SaveInput{}, err
	}
	return model.SaveInput{
		PersonID:         personID,
		Scope:            scope.Scope(req.Scope),
		AllowedOrgIDs:    req.AllowedOrgIDs,
		Method:           model.ParseMethod(req.Method, defaultMethod),
		Notes:            utils.SanitizeString(req.Notes),
		PolicyVersion:    strings.TrimSpace(req.PolicyVersion),
		AttestedByStaff:  req.AttestedByStaff,
		AttestedByClient: req.AttestedByClient,
	}, nil
}

// ToRenewInput validates a renew request and produces the typed input.
func ToRenewInput(consentID string, req model.RenewRequest) (model.RenewInput, error) {
	if err := utils.ValidateUUID(consentID); err != nil {
		return model.RenewInput{}, fmt.Errorf("consent ID must be a UUID")
	}
	if err := ValidateStruct(req); err != nil {
		return model.RenewInput{}, err
	}
	input := model.RenewInput{
		ConsentID:        consentID,
		PersonID:         req.PersonID,
		PolicyVersion:    strings.TrimSpace(req.PolicyVersion),
		AttestedByStaff:  req.AttestedByStaff,
		AttestedByClient: req.AttestedByClient,
	}
	if req.Scope != nil {
		s := scope.Scope(*req.Scope)
		input.Scope = &s
	}
	if req.AllowedOrgIDs != nil {
		input.AllowedOrgIDs = append([]int64{}, (*req.AllowedOrgIDs)...)
	}
	return input, nil
}

// ToRevokeInput validates a revoke request and produces the typed input.
func ToRevokeInput(personID int64, req model.RevokeRequest) (model.RevokeInput, error) {
	if personID <= 0 {
		return model.RevokeInput{}, fmt.Errorf("person ID must be a positive integer")
	}
	if err := ValidateStruct(req); err != nil {
		return model.RevokeInput{}, err
	}
	return model.RevokeInput{PersonID: personID, Reason: utils.SanitizeString(req.Reason)}, nil
}
