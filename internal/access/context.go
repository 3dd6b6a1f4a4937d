// Package access carries the caller's identity, organization selection and
// capabilities into every consent operation as an explicit value.
package access

import (
	"context"
	"slices"

	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
)

// CapabilityManageConsents allows staff to override, approve, deny and revoke on behalf of a person.
const CapabilityManageConsents = "manage_consents"

// Context describes who is calling and on behalf of which organization.
type Context struct {
	ProfileID string
	// PersonID is set when the caller is the client whose record is being acted on.
	PersonID *int64
	// OrganizationID is the organization the caller selected for this request.
	OrganizationID  *int64
	OrganizationIDs []int64
	Capabilities    []string
}

// HasCapability reports whether the caller holds capability.
func (c Context) HasCapability(capability string) bool {
	return slices.Contains(c.Capabilities, capability)
}

// CanManageConsents reports whether the caller may manage consents for other people.
func (c Context) CanManageConsents() bool {
	return c.HasCapability(CapabilityManageConsents)
}

// IsPerson reports whether the caller is the given person.
func (c Context) IsPerson(personID int64) bool {
	return c.PersonID != nil && *c.PersonID == personID
}

// RequireProfile fails when the caller is anonymous.
func (c Context) RequireProfile() *serviceerror.ServiceError {
	if c.ProfileID == "" {
		return serviceerror.New(serviceerror.UnauthenticatedError)
	}
	return nil
}

// RequireOrganization returns the selected organization or a permission error.
func (c Context) RequireOrganization() (int64, *serviceerror.ServiceError) {
	if c.OrganizationID == nil {
		return 0, serviceerror.New(serviceerror.PermissionError)
	}
	return *c.OrganizationID, nil
}

// RequireConsentManager checks the caller has an organization selected and may manage consents.
func (c Context) RequireConsentManager() (int64, *serviceerror.ServiceError) {
	if err := c.RequireProfile(); err != nil {
		return 0, err
	}
	orgID, err := c.RequireOrganization()
	if err != nil {
		return 0, err
	}
	if !c.CanManageConsents() {
		return 0, serviceerror.New(serviceerror.PermissionError)
	}
	return orgID, nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying the access context.
func NewContext(ctx context.Context, actx Context) context.Context {
	return context.WithValue(ctx, contextKey{}, actx)
}

// FromContext extracts the access context stored by the middleware.
func FromContext(ctx context.Context) (Context, bool) {
	actx, ok := ctx.Value(contextKey{}).(Context)
	return actx, ok
}
