// Package identity decodes the x-rh-identity header forwarded by the
// platform gateway and derives the composite user id that keys sessions.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// HeaderName is the request header carrying the base64 identity token.
const HeaderName = "x-rh-identity"

// Identity types.
const (
	TypeUser           = "User"
	TypeServiceAccount = "ServiceAccount"
	TypeSystem         = "System"
)

// System auth types.
const (
	AuthTypeUHC  = "uhc-auth"
	AuthTypeCert = "cert-auth"
)

// ErrMalformedIdentity is returned when a token is not base64 encoded JSON
// or lacks a field needed to identify the caller.
var ErrMalformedIdentity = errors.New("malformed identity")

// UnsupportedIdentityTypeError is returned for an identity type, or System
// auth type, that has no user id mapping.
type UnsupportedIdentityTypeError struct {
	Type     string
	AuthType string
}

func (e *UnsupportedIdentityTypeError) Error() string {
	if e.Type == TypeSystem {
		return fmt.Sprintf("unsupported identity auth_type %q for type %s", e.AuthType, e.Type)
	}
	return fmt.Sprintf("unsupported identity type %q", e.Type)
}

// Claims exposes the caller attributes the dialogue engine branches on.
type Claims interface {
	IsInternal() bool
	IsOrgAdmin() bool
	Email() string
}

// User is the sub-record of a User identity.
type User struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsOrgAdmin bool   `json:"is_org_admin"`
	IsInternal bool   `json:"is_internal"`
}

// ServiceAccount is the sub-record of a ServiceAccount identity.
type ServiceAccount struct {
	UserID   string `json:"user_id"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
}

// System is the sub-record of a System identity.
type System struct {
	CN        string `json:"cn"`
	ClusterID string `json:"cluster_id"`
	CertType  string `json:"cert_type"`
}

// Identity is the decoded "identity" object of the token.
type Identity struct {
	AccountNumber  string          `json:"account_number"`
	OrgID          string          `json:"org_id"`
	Type           string          `json:"type"`
	AuthType       string          `json:"auth_type"`
	User           *User           `json:"user,omitempty"`
	ServiceAccount *ServiceAccount `json:"service_account,omitempty"`
	System         *System         `json:"system,omitempty"`
}

type envelope struct {
	Identity *Identity `json:"identity"`
}

// IsValidShape reports whether token is decodable base64. It does not look
// at the payload.
func IsValidShape(token string) bool {
	_, err := decodeBase64(token)
	return err == nil
}

// Decode parses a base64 encoded identity token.
func Decode(token string) (*Identity, error) {
	raw, err := decodeBase64(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}
	if env.Identity == nil {
		return nil, fmt.Errorf("%w: missing identity", ErrMalformedIdentity)
	}
	if env.Identity.OrgID == "" {
		return nil, fmt.Errorf("%w: missing org_id", ErrMalformedIdentity)
	}
	if env.Identity.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedIdentity)
	}
	return env.Identity, nil
}

// DeriveUserID decodes token and returns its composite user id.
func DeriveUserID(token string) (string, error) {
	id, err := Decode(token)
	if err != nil {
		return "", err
	}
	return id.UserID()
}

// UserID returns the composite "{org_id}/{user_id}" key for the identity.
func (i *Identity) UserID() (string, error) {
	var userID string

	switch i.Type {
	case TypeUser:
		if i.User == nil {
			return "", fmt.Errorf("%w: missing user", ErrMalformedIdentity)
		}
		userID = i.User.UserID
	case TypeServiceAccount:
		if i.ServiceAccount == nil {
			return "", fmt.Errorf("%w: missing service_account", ErrMalformedIdentity)
		}
		userID = i.ServiceAccount.UserID
	case TypeSystem:
		if i.System == nil {
			return "", fmt.Errorf("%w: missing system", ErrMalformedIdentity)
		}
		switch i.AuthType {
		case AuthTypeUHC:
			if i.System.ClusterID == "" {
				return "", fmt.Errorf("%w: missing system.cluster_id", ErrMalformedIdentity)
			}
			userID = "cluster-" + i.System.ClusterID
		case AuthTypeCert:
			userID = i.System.CN
		default:
			return "", &UnsupportedIdentityTypeError{Type: i.Type, AuthType: i.AuthType}
		}
	default:
		return "", &UnsupportedIdentityTypeError{Type: i.Type, AuthType: i.AuthType}
	}

	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrMalformedIdentity)
	}
	return i.OrgID + "/" + userID, nil
}

// IsInternal reports whether the caller is a Red Hat associate.
func (i *Identity) IsInternal() bool {
	return i.User != nil && i.User.IsInternal
}

// IsOrgAdmin reports whether the caller administers its organization.
func (i *Identity) IsOrgAdmin() bool {
	return i.User != nil && i.User.IsOrgAdmin
}

// Email returns the user's email, or "" for non-user identities.
func (i *Identity) Email() string {
	if i.User == nil {
		return ""
	}
	return i.User.Email
}

func decodeBase64(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("empty token")
	}
	return base64.StdEncoding.DecodeString(token)
}

var _ Claims = (*Identity)(nil)
