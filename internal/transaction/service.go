// Package transaction は所有権移転履歴のドメインロジックを提供する。
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/assetman/internal/model"
	"github.com/hitoshi/assetman/internal/repository"
)

// Service は移転履歴のサービス層。
// 履歴の検証付き追記と、資産ごと・全体の履歴閲覧を提供する。
type Service struct {
	db        repository.TxBeginner
	txnRepo   repository.TransactionRepository
	assetRepo repository.AssetRepository
	userRepo  repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	db repository.TxBeginner,
	txnRepo repository.TransactionRepository,
	assetRepo repository.AssetRepository,
	userRepo repository.UserRepository,
) *Service {
	return &Service{
		db:        db,
		txnRepo:   txnRepo,
		assetRepo: assetRepo,
		userRepo:  userRepo,
	}
}

// RecordTransfer は移転を手動記録する。自由な追記ではなく、
// 所有権の更新と履歴の追記を同一トランザクションで行う。
// 資産行をロックした上で、送信者が資産の現在の所有者と一致することを
// 検証する。一致しない場合はHistoryMismatchErrorを返し、
// 矛盾した履歴がログに混入することを防ぐ。
func (s *Service) RecordTransfer(ctx context.Context, assetID, senderID, receiverID string) (*model.Transaction, error) {
	if assetID == "" || senderID == "" || receiverID == "" {
		return nil, model.NewInvalidRequestError("資産ID、送信者ID、受信者IDは必須です")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 資産行をロックして現在の所有者を確定させる
	asset, err := s.assetRepo.FindByIDForUpdate(ctx, tx, assetID)
	if err != nil {
		return nil, fmt.Errorf("資産のロック取得に失敗しました: %w", err)
	}
	if asset == nil {
		return nil, model.NewAssetNotFoundError(assetID)
	}

	// 送信者・受信者の存在確認
	sender, err := s.userRepo.FindByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("送信者の確認に失敗しました: %w", err)
	}
	if sender == nil {
		return nil, model.NewUserNotFoundError(senderID)
	}

	receiver, err := s.userRepo.FindByID(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("受信者の確認に失敗しました: %w", err)
	}
	if receiver == nil {
		return nil, model.NewUserNotFoundError(receiverID)
	}

	// 送信者がロック時点の所有者と一致しない履歴は矛盾として拒否する
	if asset.OwnerID != senderID {
		return nil, model.NewHistoryMismatchError(assetID)
	}

	// 所有権を更新する。履歴だけを追記すると最新履歴の受信者と
	// assetsテーブルの所有者が食い違うため、同一トランザクションで両方を書く
	if err := s.assetRepo.UpdateOwner(ctx, tx, assetID, receiverID); err != nil {
		return nil, fmt.Errorf("所有者の更新に失敗しました: %w", err)
	}

	txn := &model.Transaction{
		ID:              uuid.New().String(),
		AssetID:         assetID,
		SenderID:        senderID,
		ReceiverID:      receiverID,
		TransactionDate: time.Now(),
	}

	if err := s.txnRepo.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("履歴レコードの追記に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return txn, nil
}

// ListByAsset は指定資産の履歴を新しい順に返す。
// 履歴のない資産（未知の資産IDを含む）では空スライスを返し、エラーにはしない。
func (s *Service) ListByAsset(ctx context.Context, assetID string) ([]model.TransactionWithParties, error) {
	if assetID == "" {
		return nil, model.NewInvalidRequestError("資産IDが指定されていません")
	}

	rows, err := s.txnRepo.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("履歴の取得に失敗しました: %w", err)
	}
	return rows, nil
}

// ListAll は全資産の履歴を資産情報付きで新しい順に返す。
func (s *Service) ListAll(ctx context.Context) ([]model.TransactionWithAsset, error) {
	rows, err := s.txnRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("履歴の取得に失敗しました: %w", err)
	}
	return rows, nil
}
