package identity

import (
	"context"
	"database/sql"

	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/models"
)

// PostgresDirectory looks users up by the id minted by the auth provider.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Resolve(ctx context.Context, externalID string) (*models.User, error) {
	var u models.User
	var role string
	var name, phone, image sql.NullString
	err := d.db.QueryRowContext(ctx,
		`SELECT id, external_id, role, name, phone_number, profile_image FROM users WHERE external_id=$1`,
		externalID).Scan(&u.ID, &u.ExternalID, &role, &name, &phone, &image)
	if err == sql.ErrNoRows {
		return nil, fault.NotFound("user %s", externalID)
	}
	if err != nil {
		return nil, fault.Store(err)
	}
	u.Role = models.Role(role)
	u.Name = name.String
	u.PhoneNumber = phone.String
	u.ProfileImage = image.String
	return &u, nil
}
