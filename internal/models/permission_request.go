package models

import (
	"time"

	"github.com/google/uuid"
)

// PermissionFlag is a tri-state directive for a single capability. Unspecified
// means "merge with the existing or default value" rather than override it,
// which is why the zero value is deliberately not Revoke.
type PermissionFlag string

const (
	// PermissionUnspecified leaves the capability untouched during processing.
	PermissionUnspecified PermissionFlag = "unspecified"
	// PermissionGrant requests that the capability be granted.
	PermissionGrant PermissionFlag = "grant"
	// PermissionRevoke requests that the capability be revoked.
	PermissionRevoke PermissionFlag = "revoke"
)

// FlagFromBool converts an optional boolean (as accepted on the wire) into a
// PermissionFlag. nil maps to Unspecified, preserving the merge contract.
func FlagFromBool(b *bool) PermissionFlag {
	switch {
	case b == nil:
		return PermissionUnspecified
	case *b:
		return PermissionGrant
	default:
		return PermissionRevoke
	}
}

// Bool returns the explicit boolean value of the flag, or nil when the flag
// is unspecified.
func (f PermissionFlag) Bool() *bool {
	switch f {
	case PermissionGrant:
		v := true
		return &v
	case PermissionRevoke:
		v := false
		return &v
	default:
		return nil
	}
}

// Valid reports whether f is one of the three known flag values.
func (f PermissionFlag) Valid() bool {
	switch f {
	case PermissionUnspecified, PermissionGrant, PermissionRevoke:
		return true
	}
	return false
}

// WildcardTarget targets all users (in UserID) or all reachable realms
// (in RealmURL).
const WildcardTarget = "*"

// PermissionChangeRequest is one desired permission mutation. The requester
// writes every field except StatusCode/StatusMessage exactly once at
// construction; the authority writes StatusCode/StatusMessage exactly once
// when it finishes processing. The record is never mutated otherwise.
type PermissionChangeRequest struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is refreshed only when the authority applies the terminal
	// status; there is no other post-creation mutation.
	UpdatedAt time.Time `json:"updated_at"`

	// StatusCode is nil until the authority processes the request. 0 means
	// the change was applied; any other value is an error code.
	StatusCode    *int    `gorm:"index" json:"status_code"`
	StatusMessage *string `gorm:"type:text" json:"status_message"`

	// UserID targets a single user, or WildcardTarget for all users. Empty
	// iff the request uses metadata targeting.
	UserID        string  `gorm:"size:120;index" json:"user_id"`
	MetadataKey   *string `gorm:"size:120" json:"metadata_key"`
	MetadataValue *string `gorm:"size:255" json:"metadata_value"`

	RealmURL string `gorm:"size:255;not null" json:"realm_url"`

	MayRead   PermissionFlag `gorm:"type:varchar(12);not null;default:'unspecified'" json:"may_read"`
	MayWrite  PermissionFlag `gorm:"type:varchar(12);not null;default:'unspecified'" json:"may_write"`
	MayManage PermissionFlag `gorm:"type:varchar(12);not null;default:'unspecified'" json:"may_manage"`

	// RequestedBy is the authenticated principal that created the record.
	RequestedBy string `gorm:"size:120;index" json:"requested_by"`
}

// TableName specifies the table name for GORM
func (PermissionChangeRequest) TableName() string {
	return "permission_change_requests"
}

// Processed reports whether the authority has written a terminal status.
func (r *PermissionChangeRequest) Processed() bool {
	return r.StatusCode != nil
}

// MetadataTargeted reports whether the record uses metadata targeting.
func (r *PermissionChangeRequest) MetadataTargeted() bool {
	return r.MetadataKey != nil && r.MetadataValue != nil
}

func validateFlags(read, write, manage PermissionFlag) error {
	for _, f := range []PermissionFlag{read, write, manage} {
		if !f.Valid() {
			return NewValidationError("invalid permission flag: " + string(f))
		}
	}
	return nil
}

func validateRealmURL(realmURL string) error {
	if realmURL == "" {
		return NewValidationError("realm URL is required (use '*' for all reachable realms)")
	}
	return nil
}

// NewUserRequest builds a request targeting a single user (or all users via
// the wildcard). MetadataKey/MetadataValue stay nil. Flags left
// PermissionUnspecified keep their merge semantics all the way to the
// authority.
func NewUserRequest(userID, realmURL string, read, write, manage PermissionFlag) (*PermissionChangeRequest, error) {
	if userID == "" {
		return nil, NewValidationError("user ID is required (use '*' for all users)")
	}
	if err := validateRealmURL(realmURL); err != nil {
		return nil, err
	}
	if err := validateFlags(read, write, manage); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &PermissionChangeRequest{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
		RealmURL:  realmURL,
		MayRead:   read,
		MayWrite:  write,
		MayManage: manage,
	}, nil
}

// NewMetadataRequest builds a request targeting every user whose metadata
// matches key/value. UserID is set to the empty string, which distinguishes
// "no user targeting" from the all-users wildcard.
func NewMetadataRequest(key, value, realmURL string, read, write, manage PermissionFlag) (*PermissionChangeRequest, error) {
	if key == "" {
		return nil, NewValidationError("metadata key is required for metadata targeting")
	}
	if value == "" {
		return nil, NewValidationError("metadata value is required for metadata targeting")
	}
	if err := validateRealmURL(realmURL); err != nil {
		return nil, err
	}
	if err := validateFlags(read, write, manage); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &PermissionChangeRequest{
		ID:            uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
		UserID:        "",
		MetadataKey:   &key,
		MetadataValue: &value,
		RealmURL:      realmURL,
		MayRead:       read,
		MayWrite:      write,
		MayManage:     manage,
	}, nil
}

// Validate re-checks the targeting invariant on a stored record: exactly one
// of user targeting or metadata targeting must be populated. Constructors
// already enforce this; Validate guards records arriving from outside the
// constructors (e.g. a sync peer).
func (r *PermissionChangeRequest) Validate() error {
	userMode := r.UserID != ""
	metaMode := r.MetadataTargeted()
	if userMode && metaMode {
		return NewValidationError("request cannot target both a user and a metadata pair")
	}
	if !userMode && !metaMode {
		return NewValidationError("request must target a user or a metadata pair")
	}
	if err := validateRealmURL(r.RealmURL); err != nil {
		return err
	}
	return validateFlags(r.MayRead, r.MayWrite, r.MayManage)
}
