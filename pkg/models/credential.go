package models

import "time"

// CredentialType identifies which secret bundle a credential decrypts into.
type CredentialType string

const (
	CredentialTypeOpenAI   CredentialType = "openai"
	CredentialTypeTelegram CredentialType = "telegram"
	CredentialTypeEmail    CredentialType = "email"
)

// Credential is an encrypted secret owned by a user. Data holds the
// hex-encoded aes-256-gcm blob; it is only ever decrypted inside the
// credential resolver.
type Credential struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Name      string         `json:"name"    validate:"required,min=1"`
	Type      CredentialType `json:"type"    validate:"required"`
	Data      string         `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}
