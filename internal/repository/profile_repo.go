package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"neurostate/internal/domain"
	"neurostate/internal/profile"
)

// ProfileRecord es lo que guarda el colaborador de configuración: segmento + overrides.
// El SegmentProfile se reconstruye con el catálogo en cada uso.
type ProfileRecord struct {
	UserID    string            `json:"user_id"`
	Segment   domain.Segment    `json:"segment"`
	Overrides profile.Overrides `json:"overrides"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type ProfileRepository interface {
	Upsert(ctx context.Context, rec ProfileRecord) error
	GetByUserID(ctx context.Context, userID string) (ProfileRecord, error)
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func (r *PgProfileRepository) Upsert(ctx context.Context, rec ProfileRecord) error {
	const query = `
		INSERT INTO segment_profiles (user_id, segment, overrides, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			segment = EXCLUDED.segment,
			overrides = EXCLUDED.overrides,
			updated_at = EXCLUDED.updated_at
	`
	overrides, err := json.Marshal(rec.Overrides)
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}
	_, err = r.pool.Exec(ctx, query,
		rec.UserID,
		string(rec.Segment),
		overrides,
		rec.UpdatedAt,
	)
	return err
}

func (r *PgProfileRepository) GetByUserID(ctx context.Context, userID string) (ProfileRecord, error) {
	const query = `
		SELECT user_id, segment, overrides, updated_at
		FROM segment_profiles
		WHERE user_id = $1
	`
	var (
		rec       ProfileRecord
		segment   string
		overrides []byte
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&segment,
		&overrides,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProfileRecord{}, fmt.Errorf("%w: no profile for %s", domain.ErrUserNotFound, userID)
	}
	if err != nil {
		return ProfileRecord{}, err
	}
	rec.Segment = domain.Segment(segment)
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &rec.Overrides); err != nil {
			return ProfileRecord{}, fmt.Errorf("decode overrides for %s: %w", userID, err)
		}
	}
	return rec, nil
}
