package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"neurostate/internal/domain"
)

// PgSnapshotRepository archiva snapshots y ciclos como jsonb. Implementa service.Archive.
type PgSnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewPgSnapshotRepository(pool *pgxpool.Pool) *PgSnapshotRepository {
	return &PgSnapshotRepository{pool: pool}
}

func (r *PgSnapshotRepository) SaveSnapshot(ctx context.Context, s domain.NeurostateSnapshot) error {
	const query = `
		INSERT INTO neurostate_snapshots (id, user_id, tier_used, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		int(s.TierUsed),
		payload,
		s.CreatedAt,
	)
	return err
}

// SaveCycles hace upsert de cada ciclo en una sola transacción.
func (r *PgSnapshotRepository) SaveCycles(ctx context.Context, userID string, cycles []domain.DetectedCycle) error {
	const query = `
		INSERT INTO detected_cycles (id, user_id, cycle_type, active, confidence, payload, first_detected_at, last_confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			active = EXCLUDED.active,
			confidence = EXCLUDED.confidence,
			payload = EXCLUDED.payload,
			last_confirmed_at = EXCLUDED.last_confirmed_at
	`
	batch := &pgx.Batch{}
	for _, c := range cycles {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal cycle %s: %w", c.ID, err)
		}
		batch.Queue(query,
			c.ID,
			userID,
			string(c.Type),
			c.Active,
			c.Confidence,
			payload,
			c.FirstDetectedAt,
			c.LastConfirmedAt,
		)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save cycles for %s: %w", userID, err)
	}
	return tx.Commit(ctx)
}
