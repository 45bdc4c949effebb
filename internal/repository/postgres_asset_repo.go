package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/assetman/internal/model"
)

// PostgresAssetRepo はPostgreSQLを使用した資産リポジトリ。
type PostgresAssetRepo struct {
	db *sql.DB
}

// NewPostgresAssetRepo はPostgresAssetRepoを生成する。
func NewPostgresAssetRepo(db *sql.DB) *PostgresAssetRepo {
	return &PostgresAssetRepo{db: db}
}

// assetColumns は資産行のSELECT対象カラム。
const assetColumns = `id, name, description, image_url, image_data, image_mime, owner_id, created_at`

// scanAsset は1行を*model.Assetに読み込む。
func scanAsset(row *sql.Row) (*model.Asset, error) {
	asset := &model.Asset{}
	err := row.Scan(
		&asset.ID, &asset.Name, &asset.Description,
		&asset.ImageURL, &asset.ImageData, &asset.ImageMime,
		&asset.OwnerID, &asset.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// FindByID は指定IDの資産を取得する。見つからない場合はnilを返す。
func (r *PostgresAssetRepo) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1`,
		id,
	)
	asset, err := scanAsset(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find asset by ID: %w", err)
	}
	return asset, nil
}

// FindByIDForUpdate は指定IDの資産を行ロック付きで取得する。
// 呼び出し側のトランザクション内で同一資産への並行移転を直列化する。
// 見つからない場合はnilを返す。
func (r *PostgresAssetRepo) FindByIDForUpdate(ctx context.Context, q Querier, id string) (*model.Asset, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1 FOR UPDATE`,
		id,
	)
	asset, err := scanAsset(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find asset for update: %w", err)
	}
	return asset, nil
}

// List は全資産を所有者の表示情報付きで作成日時降順で返す。
func (r *PostgresAssetRepo) List(ctx context.Context) ([]model.AssetWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.name, a.description, a.image_url, a.image_data, a.image_mime,
		        a.owner_id, a.created_at, u.name, u.email
		 FROM assets a
		 JOIN users u ON u.id = a.owner_id
		 ORDER BY a.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	assets := []model.AssetWithOwner{}
	for rows.Next() {
		var a model.AssetWithOwner
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Description, &a.ImageURL, &a.ImageData, &a.ImageMime,
			&a.OwnerID, &a.CreatedAt, &a.OwnerName, &a.OwnerEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan asset row: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate asset rows: %w", err)
	}

	return assets, nil
}

// ListIDs は全資産のIDを返す。照合ワーカーの走査用。
func (r *PostgresAssetRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM assets ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset IDs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan asset ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate asset ID rows: %w", err)
	}

	return ids, nil
}

// Create は資産を作成する。
func (r *PostgresAssetRepo) Create(ctx context.Context, asset *model.Asset) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (id, name, description, image_url, image_data, image_mime, owner_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		asset.ID, asset.Name, asset.Description,
		asset.ImageURL, asset.ImageData, asset.ImageMime,
		asset.OwnerID, asset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// UpdateOwner は資産のowner_idを書き換える。
// 対象行が存在しない場合はエラーを返す。
func (r *PostgresAssetRepo) UpdateOwner(ctx context.Context, q Querier, assetID, newOwnerID string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE assets SET owner_id = $1 WHERE id = $2`,
		newOwnerID, assetID,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset owner: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("asset not found: %s", assetID)
	}
	return nil
}

// compile-time interface check
var _ AssetRepository = (*PostgresAssetRepo)(nil)
