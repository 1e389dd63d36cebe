package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/pkg/errors"
)

type pickupPointRepository struct {
	q      querier
	logger *zap.Logger
}

func (r *pickupPointRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.PickupPoint, error) {
	// Since bcrypt hashes are salted and different each time, we can't do a
	// direct lookup. We iterate through active pickup points and verify the
	// API key against each hash. For production, consider adding a
	// lookup_hash column (SHA256) for efficient lookup.

	query := `
		SELECT id, name, address, api_key_hash, is_active, created_at, updated_at
		FROM pickup_points
		WHERE is_active = true
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query pickup points", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var point domain.PickupPoint

		err := rows.Scan(
			&point.ID,
			&point.Name,
			&point.Address,
			&point.APIKeyHash,
			&point.IsActive,
			&point.CreatedAt,
			&point.UpdatedAt,
		)

		if err != nil {
			continue
		}

		if err := bcrypt.CompareHashAndPassword([]byte(point.APIKeyHash), []byte(apiKey)); err == nil {
			return &point, nil
		}
	}

	return nil, &errors.ErrUnauthorized{Message: "invalid API key"}
}

func (r *pickupPointRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PickupPoint, error) {
	query := `
		SELECT id, name, address, api_key_hash, is_active, created_at, updated_at
		FROM pickup_points
		WHERE id = $1
	`

	var point domain.PickupPoint
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&point.ID,
		&point.Name,
		&point.Address,
		&point.APIKeyHash,
		&point.IsActive,
		&point.CreatedAt,
		&point.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "pickup point", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get pickup point by ID", zap.Error(err))
		return nil, err
	}

	return &point, nil
}

func (r *pickupPointRepository) Create(ctx context.Context, point *domain.PickupPoint) error {
	query := `
		INSERT INTO pickup_points (id, name, address, api_key_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now()
	if point.ID == uuid.Nil {
		point.ID = uuid.New()
	}
	if point.CreatedAt.IsZero() {
		point.CreatedAt = now
	}
	if point.UpdatedAt.IsZero() {
		point.UpdatedAt = now
	}

	_, err := r.q.ExecContext(ctx, query,
		point.ID,
		point.Name,
		point.Address,
		point.APIKeyHash,
		point.IsActive,
		point.CreatedAt,
		point.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create pickup point", zap.Error(err))
		return err
	}

	return nil
}
