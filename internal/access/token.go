package access

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrOrganizationNotHeld = errors.New("organization is not available to this profile")
)

// Claims are the portal access token claims.
type Claims struct {
	jwt.RegisteredClaims
	PersonID     *int64   `json:"person_id,omitempty"`
	OrgIDs       []int64  `json:"org_ids,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// TokenManager signs and verifies HS256 portal tokens.
type TokenManager struct {
	secret []byte
	issuer string
}

func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for the given claims, valid for ttl.
func (m *TokenManager) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if m.issuer != "" {
		claims.Issuer = m.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Validate parses and verifies a token string.
func (m *TokenManager) Validate(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}
	return claims, nil
}

// BuildContext turns validated claims and the requested organization header into an access context.
// With no header the caller's only organization is selected, if they hold exactly one.
func BuildContext(claims *Claims, orgHeader string) (Context, error) {
	actx := Context{
		ProfileID:       claims.Subject,
		PersonID:        claims.PersonID,
		OrganizationIDs: claims.OrgIDs,
		Capabilities:    claims.Capabilities,
	}
	if orgHeader == "" {
		if len(claims.OrgIDs) == 1 {
			orgID := claims.OrgIDs[0]
			actx.OrganizationID = &orgID
		}
		return actx, nil
	}
	orgID, err := strconv.ParseInt(orgHeader, 10, 64)
	if err != nil || !slices.Contains(claims.OrgIDs, orgID) {
		return Context{}, ErrOrganizationNotHeld
	}
	actx.OrganizationID = &orgID
	return actx, nil
}
