package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an internal user record created lazily from a verified external
// identity. external_identity_id is unique and immutable; profile fields are
// refreshed from the identity provider's claims on each resolution.
type User struct {
	ID                 uuid.UUID `json:"id"`
	ExternalIdentityID string    `json:"external_identity_id"`
	Email              string    `json:"email"`
	DisplayName        string    `json:"display_name"`
	AvatarURL          string    `json:"avatar_url,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
