package model

// Audit actions written by consent operations.
const (
	ActionConsentCreated        = "consent_created"
	ActionConsentUpdated        = "consent_updated"
	ActionConsentRenewed        = "consent_renewed"
	ActionConsentRevoked        = "consent_revoked"
	ActionConsentRevokedAdmin   = "consent_revoked_admin"
	ActionConsentExpired        = "consent_expired"
	ActionConsentRequestCreated = "consent_request_created"
	ActionRequestApproved       = "consent_request_approved"
	ActionRequestDenied         = "consent_request_denied"
)

// Entity types referenced by audit events.
const (
	EntityTypeConsent        = "consent"
	EntityTypeConsentRequest = "consent_request"
	EntityTypePerson         = "person"
)

// Event is one append-only audit record.
type Event struct {
	ID             string                 `json:"id"`
	ActorProfileID string                 `json:"actorProfileId"`
	Action         string                 `json:"action"`
	EntityType     string                 `json:"entityType"`
	EntityRef      string                 `json:"entityRef"`
	Meta           map[string]interface{} `json:"meta,omitempty"`
	OrgID          *int64                 `json:"orgId,omitempty"`
	CreatedTime    int64                  `json:"createdTime"`
}

// ListResponse wraps a page of audit events.
type ListResponse struct {
	Data []Event `json:"data"`
}
