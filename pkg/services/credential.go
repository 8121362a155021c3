package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence"
)

// Credential manages encrypted credential storage. Plaintext secrets exist
// only inside Create; everything downstream sees the encrypted blob.
type Credential struct {
	persistence   persistence.Persistence
	encryptionKey string
}

// NewCredential creates a new credential service.
func NewCredential(persistence persistence.Persistence, encryptionKey string) *Credential {
	return &Credential{
		persistence:   persistence,
		encryptionKey: encryptionKey,
	}
}

// Create encrypts the secret bundle and stores the credential.
func (c *Credential) Create(
	ctx context.Context,
	ownerID, name string,
	credentialType models.CredentialType,
	secret credentials.Secret,
) (*models.Credential, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	if name == "" {
		return nil, ErrCredentialNameRequired
	}

	switch credentialType {
	case models.CredentialTypeOpenAI, models.CredentialTypeTelegram, models.CredentialTypeEmail:
	default:
		return nil, fmt.Errorf("%w: %s", ErrCredentialTypeInvalid, credentialType)
	}

	if secret.APIKey == "" && secret.BotToken == "" {
		return nil, ErrCredentialDataRequired
	}

	plaintext, err := json.Marshal(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal secret: %w", err)
	}

	encrypted, err := credentials.Encrypt(string(plaintext), c.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credential: %w", err)
	}

	credential := &models.Credential{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		Type:      credentialType,
		Data:      encrypted,
		CreatedAt: time.Now().UTC(),
	}

	err = c.persistence.SaveCredential(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}

	return credential, nil
}

// List returns an owner's credentials. Data stays encrypted and is never
// serialized by the model.
func (c *Credential) List(ctx context.Context, ownerID string) ([]*models.Credential, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	owned, err := c.persistence.CredentialsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	return owned, nil
}

// Get returns a single credential scoped to its owner.
func (c *Credential) Get(ctx context.Context, id, ownerID string) (*models.Credential, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	return c.persistence.CredentialByID(ctx, id, ownerID)
}
