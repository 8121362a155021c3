package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/weftwork/weft/pkg/models"
)

var (
	// ErrCredentialNotFound indicates no credential row matches the id and
	// owner pair. Ownership is enforced at lookup, not as a separate
	// authorization step.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialTypeMismatch indicates the credential exists but is of a
	// different type than the action requires.
	ErrCredentialTypeMismatch = errors.New("credential type mismatch")
)

// Store is the narrow persistence capability the resolver needs.
type Store interface {
	CredentialByID(ctx context.Context, id, ownerID string) (*models.Credential, error)
}

// Secret is the decrypted credential bundle. Which field is populated
// depends on the credential type.
type Secret struct {
	APIKey   string `json:"apiKey,omitempty"`
	BotToken string `json:"botToken,omitempty"`
}

// Resolver looks up encrypted credentials and decrypts them.
type Resolver struct {
	store         Store
	encryptionKey string
}

func NewResolver(store Store, encryptionKey string) *Resolver {
	return &Resolver{store: store, encryptionKey: encryptionKey}
}

// Resolve fetches the credential owned by ownerID, verifies its type and
// returns the decrypted secret bundle.
func (r *Resolver) Resolve(ctx context.Context, credentialID, ownerID string, want models.CredentialType) (*Secret, error) {
	if credentialID == "" {
		return nil, fmt.Errorf("%w: missing credential id", ErrCredentialNotFound)
	}

	credential, err := r.store.CredentialByID(ctx, credentialID, ownerID)
	if err != nil {
		return nil, err
	}

	if credential.Type != want {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrCredentialTypeMismatch, credential.Type, want)
	}

	plaintext, err := Decrypt(credential.Data, r.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential %s: %w", credentialID, err)
	}

	var secret Secret
	if err := json.Unmarshal([]byte(plaintext), &secret); err != nil {
		return nil, fmt.Errorf("failed to parse credential %s: %w", credentialID, err)
	}

	return &secret, nil
}

// IsNotFound checks if an error indicates a missing credential.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}
