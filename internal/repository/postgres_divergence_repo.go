package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/assetman/internal/model"
)

// PostgresDivergenceRepo はPostgreSQLを使用した照合ジャーナルリポジトリ。
type PostgresDivergenceRepo struct {
	db *sql.DB
}

// NewPostgresDivergenceRepo はPostgresDivergenceRepoを生成する。
func NewPostgresDivergenceRepo(db *sql.DB) *PostgresDivergenceRepo {
	return &PostgresDivergenceRepo{db: db}
}

// Record は矛盾の検出を記録する。
func (r *PostgresDivergenceRepo) Record(ctx context.Context, div *model.Divergence) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transfer_divergences (id, asset_id, expected_owner_id, recorded_owner_id, detail, detected_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		div.ID, div.AssetID, div.ExpectedOwnerID, div.RecordedOwnerID, div.Detail, div.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record divergence: %w", err)
	}
	return nil
}

// ListUnresolved は未解決の矛盾を検出日時昇順で返す。
func (r *PostgresDivergenceRepo) ListUnresolved(ctx context.Context) ([]*model.Divergence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, asset_id, expected_owner_id, recorded_owner_id, detail, detected_at, resolved_at
		 FROM transfer_divergences
		 WHERE resolved_at IS NULL
		 ORDER BY detected_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved divergences: %w", err)
	}
	defer rows.Close()

	divs := []*model.Divergence{}
	for rows.Next() {
		div := &model.Divergence{}
		if err := rows.Scan(
			&div.ID, &div.AssetID, &div.ExpectedOwnerID, &div.RecordedOwnerID,
			&div.Detail, &div.DetectedAt, &div.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan divergence row: %w", err)
		}
		divs = append(divs, div)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate divergence rows: %w", err)
	}

	return divs, nil
}

// HasUnresolved は指定資産に未解決の矛盾が存在するかを返す。
// 照合ワーカーが同一の矛盾を重複記録しないために使用する。
func (r *PostgresDivergenceRepo) HasUnresolved(ctx context.Context, assetID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM transfer_divergences WHERE asset_id = $1 AND resolved_at IS NULL
		 )`,
		assetID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check unresolved divergence: %w", err)
	}
	return exists, nil
}

// Resolve は指定IDの矛盾を解決済みにする。
func (r *PostgresDivergenceRepo) Resolve(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE transfer_divergences SET resolved_at = now() WHERE id = $1 AND resolved_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve divergence: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("divergence not found or already resolved: %s", id)
	}
	return nil
}

// compile-time interface check
var _ DivergenceRepository = (*PostgresDivergenceRepo)(nil)
