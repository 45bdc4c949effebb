package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/assetman/internal/model"
)

// PostgresTransactionRepo はPostgreSQLを使用した移転履歴リポジトリ。
// 履歴は追記専用のため、INSERTと読み取りのみを提供する。
type PostgresTransactionRepo struct {
	db *sql.DB
}

// NewPostgresTransactionRepo はPostgresTransactionRepoを生成する。
func NewPostgresTransactionRepo(db *sql.DB) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{db: db}
}

// Create は履歴レコードを追記する。
// Querierを受け取り、移転ワークフローのトランザクションに参加できる。
func (r *PostgresTransactionRepo) Create(ctx context.Context, q Querier, txn *model.Transaction) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions (id, asset_id, sender_id, receiver_id, transaction_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		txn.ID, txn.AssetID, txn.SenderID, txn.ReceiverID, txn.TransactionDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ListByAsset は指定資産の履歴を送信者・受信者の表示情報付きで
// transaction_date降順で返す。履歴が無い場合は空スライスを返す。
func (r *PostgresTransactionRepo) ListByAsset(ctx context.Context, assetID string) ([]model.TransactionWithParties, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.asset_id, t.sender_id, t.receiver_id, t.transaction_date,
		        s.name, s.email, rc.name, rc.email
		 FROM transactions t
		 JOIN users s ON s.id = t.sender_id
		 JOIN users rc ON rc.id = t.receiver_id
		 WHERE t.asset_id = $1
		 ORDER BY t.transaction_date DESC`,
		assetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by asset: %w", err)
	}
	defer rows.Close()

	txns := []model.TransactionWithParties{}
	for rows.Next() {
		var t model.TransactionWithParties
		if err := rows.Scan(
			&t.ID, &t.AssetID, &t.SenderID, &t.ReceiverID, &t.TransactionDate,
			&t.SenderName, &t.SenderEmail, &t.ReceiverName, &t.ReceiverEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}

	return txns, nil
}

// ListAll は全履歴を資産情報付きでtransaction_date降順で返す。
func (r *PostgresTransactionRepo) ListAll(ctx context.Context) ([]model.TransactionWithAsset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.asset_id, t.sender_id, t.receiver_id, t.transaction_date,
		        s.name, s.email, rc.name, rc.email, a.name
		 FROM transactions t
		 JOIN users s ON s.id = t.sender_id
		 JOIN users rc ON rc.id = t.receiver_id
		 JOIN assets a ON a.id = t.asset_id
		 ORDER BY t.transaction_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list all transactions: %w", err)
	}
	defer rows.Close()

	txns := []model.TransactionWithAsset{}
	for rows.Next() {
		var t model.TransactionWithAsset
		if err := rows.Scan(
			&t.ID, &t.AssetID, &t.SenderID, &t.ReceiverID, &t.TransactionDate,
			&t.SenderName, &t.SenderEmail, &t.ReceiverName, &t.ReceiverEmail,
			&t.AssetName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}

	return txns, nil
}

// FindLatestByAsset は指定資産の最新の履歴レコードを返す。
// 履歴が無い場合はnilを返す。照合処理で使用する。
func (r *PostgresTransactionRepo) FindLatestByAsset(ctx context.Context, assetID string) (*model.Transaction, error) {
	txn := &model.Transaction{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, asset_id, sender_id, receiver_id, transaction_date
		 FROM transactions
		 WHERE asset_id = $1
		 ORDER BY transaction_date DESC
		 LIMIT 1`,
		assetID,
	).Scan(&txn.ID, &txn.AssetID, &txn.SenderID, &txn.ReceiverID, &txn.TransactionDate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest transaction: %w", err)
	}

	return txn, nil
}

// compile-time interface check
var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
