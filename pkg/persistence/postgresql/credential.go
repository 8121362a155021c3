package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence"
)

// CredentialRepository handles credential database operations. The data
// column holds the encrypted blob; plaintext never reaches the database.
type CredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *sql.DB, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{db: db, logger: logger}
}

func (r *CredentialRepository) Save(ctx context.Context, credential *models.Credential) error {
	query := `
		INSERT INTO credentials (id, owner_id, name, type, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			data = EXCLUDED.data
	`

	_, err := r.db.ExecContext(ctx, query,
		credential.ID,
		credential.OwnerID,
		credential.Name,
		credential.Type,
		credential.Data,
		credential.CreatedAt,
	)
	if err != nil {
		return persistence.NewCredentialError("Save", credential.ID, err)
	}

	return nil
}

func (r *CredentialRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Credential, error) {
	query := `
		SELECT id, owner_id, name, type, data, created_at
		FROM credentials
		WHERE id = $1 AND owner_id = $2
	`

	var credential models.Credential

	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&credential.ID,
		&credential.OwnerID,
		&credential.Name,
		&credential.Type,
		&credential.Data,
		&credential.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCredentialError("GetByID", id, persistence.ErrCredentialNotFound)
		}

		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}

	return &credential, nil
}

// ByOwner lists an owner's credentials. Data stays encrypted in the result.
func (r *CredentialRepository) ByOwner(ctx context.Context, ownerID string) ([]*models.Credential, error) {
	query := `
		SELECT id, owner_id, name, type, data, created_at
		FROM credentials
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	credentials := make([]*models.Credential, 0)

	for rows.Next() {
		var credential models.Credential

		err := rows.Scan(
			&credential.ID,
			&credential.OwnerID,
			&credential.Name,
			&credential.Type,
			&credential.Data,
			&credential.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}

		credentials = append(credentials, &credential)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return credentials, nil
}
