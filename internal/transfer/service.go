// Package transfer は所有権移転ワークフローのドメインロジックを提供する。
//
// 移転は次の状態を経て進行する:
//
//	Requested → OwnershipUpdated → HistoryRecorded → Completed
//
// 所有者の書き換えと履歴の追記は単一のDBトランザクション内で行われ、
// 資産行のロック（SELECT ... FOR UPDATE）により同一資産への並行移転は
// 直列化される。途中で失敗した場合はロールバックにより両方の書き込みが
// 取り消され、Failed状態で終了する。ロールバック自体に失敗した場合のみ
// PartialFailure状態となり、照合ジャーナルに記録した上で
// TransferIncompleteErrorを返す。成功として扱うことは決してない。
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/assetman/internal/metrics"
	"github.com/hitoshi/assetman/internal/model"
	"github.com/hitoshi/assetman/internal/repository"
)

// Result は移転ワークフローの実行結果を表す。
// Stateは終端状態（Completed / Failed / PartialFailure）のいずれかになる。
// AssetとRecordはCompletedの場合のみ設定される。
type Result struct {
	State  model.TransferState
	Asset  *model.Asset
	Record *model.Transaction
}

// Service は所有権移転ワークフローのオーケストレーター。
type Service struct {
	db        repository.TxBeginner
	assetRepo repository.AssetRepository
	userRepo  repository.UserRepository
	txnRepo   repository.TransactionRepository
	divRepo   repository.DivergenceRepository
	collector metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilでもよい（テスト用）。
func NewService(
	db repository.TxBeginner,
	assetRepo repository.AssetRepository,
	userRepo repository.UserRepository,
	txnRepo repository.TransactionRepository,
	divRepo repository.DivergenceRepository,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		db:        db,
		assetRepo: assetRepo,
		userRepo:  userRepo,
		txnRepo:   txnRepo,
		divRepo:   divRepo,
		collector: collector,
	}
}

// Execute は資産の所有権を移転する。
//
// callerIDは認証済みの呼び出し元ユーザー。資産行をロックした時点の
// 所有者と一致しない場合、移転は拒否される（ロック後の再読み込みが
// 正であり、画面表示が古いことによる競合もここで検出される）。
//
// 移転は冪等ではないため、失敗時の自動リトライは行わない。
// 再試行するかどうかは呼び出し側（ユーザー）の判断に委ねる。
func (s *Service) Execute(ctx context.Context, callerID, assetID, newOwnerID string) (*Result, error) {
	start := time.Now()
	defer func() {
		if s.collector != nil {
			s.collector.RecordTransferLatency(time.Since(start))
		}
	}()

	// ワークフローの進行状態。失敗時にどこまで到達したかをログに残す
	state := model.TransferStateRequested

	if callerID == "" || assetID == "" || newOwnerID == "" {
		return s.fail(state, "validation", model.NewInvalidRequestError("資産IDと移転先ユーザーIDは必須です"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("移転: トランザクション開始失敗", "asset_id", assetID, "error", err)
		return s.fail(state, "storage", model.NewStorageUnavailableError())
	}

	// 1. Requested: 資産行をロックし、ロック時点の状態で検証する
	asset, err := s.assetRepo.FindByIDForUpdate(ctx, tx, assetID)
	if err != nil {
		tx.Rollback()
		slog.Error("移転: 資産のロック取得失敗", "asset_id", assetID, "error", err)
		return s.fail(state, "storage", model.NewStorageUnavailableError())
	}
	if asset == nil {
		tx.Rollback()
		return s.fail(state, "asset_not_found", model.NewAssetNotFoundError(assetID))
	}

	// 所有権チェック: ロック時点の所有者のみが移転を実行できる
	if asset.OwnerID != callerID {
		tx.Rollback()
		slog.Warn("移転: 所有者以外による移転試行",
			"asset_id", assetID,
			"caller_id", callerID,
			"owner_id", asset.OwnerID,
		)
		return s.fail(state, "not_owner", model.NewNotAssetOwnerError(assetID))
	}

	// 現所有者自身への移転は何も変えないため拒否する
	if newOwnerID == asset.OwnerID {
		tx.Rollback()
		return s.fail(state, "same_owner", model.NewSameOwnerTransferError())
	}

	receiver, err := s.userRepo.FindByID(ctx, newOwnerID)
	if err != nil {
		tx.Rollback()
		slog.Error("移転: 移転先ユーザーの確認失敗", "user_id", newOwnerID, "error", err)
		return s.fail(state, "storage", model.NewStorageUnavailableError())
	}
	if receiver == nil {
		tx.Rollback()
		return s.fail(state, "receiver_not_found", model.NewUserNotFoundError(newOwnerID))
	}

	priorOwnerID := asset.OwnerID

	// 2. OwnershipUpdated: トランザクション内で所有者を書き換える
	if err := s.assetRepo.UpdateOwner(ctx, tx, assetID, newOwnerID); err != nil {
		tx.Rollback()
		slog.Error("移転: 所有者の書き換え失敗", "asset_id", assetID, "error", err)
		return s.fail(state, "storage", model.NewStorageUnavailableError())
	}
	state = model.TransferStateOwnershipUpdated

	// 3. HistoryRecorded: 同一トランザクション内で履歴を追記する
	txn := &model.Transaction{
		ID:              uuid.New().String(),
		AssetID:         assetID,
		SenderID:        priorOwnerID,
		ReceiverID:      newOwnerID,
		TransactionDate: time.Now(),
	}
	if err := s.txnRepo.Create(ctx, tx, txn); err != nil {
		slog.Error("移転: 履歴レコードの追記失敗", "asset_id", assetID, "error", err)
		if rbErr := tx.Rollback(); rbErr != nil {
			// 所有者の書き換えが取り消せたかどうか不明な状態。
			// 成功として扱わず、照合ジャーナルに記録して部分的失敗を返す。
			slog.Error("移転: ロールバック失敗", "asset_id", assetID, "error", rbErr)
			s.journalDivergence(ctx, assetID, priorOwnerID, newOwnerID,
				fmt.Sprintf("履歴追記失敗後のロールバックに失敗: %v (追記失敗: %v)", rbErr, err))
			if s.collector != nil {
				s.collector.RecordTransferPartial()
			}
			return &Result{State: model.TransferStatePartialFailure}, model.NewTransferIncompleteError(assetID)
		}
		return s.fail(state, "history", model.NewStorageUnavailableError())
	}
	state = model.TransferStateHistoryRecorded

	// 4. Completed: コミットにより両方の書き込みが同時に可視化される
	if err := tx.Commit(); err != nil {
		// コミット失敗時はいずれの書き込みも適用されない
		slog.Error("移転: コミット失敗", "asset_id", assetID, "error", err)
		return s.fail(state, "commit", model.NewStorageUnavailableError())
	}

	asset.OwnerID = newOwnerID

	slog.Info("移転完了",
		"asset_id", assetID,
		"sender_id", priorOwnerID,
		"receiver_id", newOwnerID,
	)
	if s.collector != nil {
		s.collector.RecordTransferCompleted()
	}

	return &Result{
		State:  model.TransferStateCompleted,
		Asset:  asset,
		Record: txn,
	}, nil
}

// VerifyAsset は資産の所有者と履歴ログの整合性を検証する。
// 最新の履歴レコードの受信者が現在の所有者と一致しない場合、
// 照合ジャーナルに記録した上でHistoryMismatchErrorを返す。
// 履歴が存在しない資産（登録直後）は整合とみなす。
// 照合ワーカーの定期走査から使用される。
func (s *Service) VerifyAsset(ctx context.Context, assetID string) error {
	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		return fmt.Errorf("資産の取得に失敗しました: %w", err)
	}
	if asset == nil {
		return model.NewAssetNotFoundError(assetID)
	}

	latest, err := s.txnRepo.FindLatestByAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("最新履歴の取得に失敗しました: %w", err)
	}
	if latest == nil {
		// 移転履歴のない資産は登録時の所有者のまま
		return nil
	}

	if latest.ReceiverID != asset.OwnerID {
		// 同一資産の未解決エントリが既にある場合は重複記録しない
		exists, err := s.divRepo.HasUnresolved(ctx, assetID)
		if err != nil {
			return fmt.Errorf("照合ジャーナルの確認に失敗しました: %w", err)
		}
		if !exists {
			s.journalDivergence(ctx, assetID, latest.ReceiverID, asset.OwnerID,
				"定期照合: 最新履歴の受信者と資産の所有者が一致しません")
		}
		return model.NewHistoryMismatchError(assetID)
	}

	return nil
}

// journalDivergence は矛盾を照合ジャーナルに記録する。
// ジャーナルへの記録自体が失敗してもログに残すのみで、呼び出し元の
// エラーを上書きしない。
func (s *Service) journalDivergence(ctx context.Context, assetID, expectedOwnerID, recordedOwnerID, detail string) {
	div := &model.Divergence{
		ID:              uuid.New().String(),
		AssetID:         assetID,
		ExpectedOwnerID: expectedOwnerID,
		RecordedOwnerID: recordedOwnerID,
		Detail:          detail,
		DetectedAt:      time.Now(),
	}
	if err := s.divRepo.Record(ctx, div); err != nil {
		slog.Error("照合ジャーナルへの記録失敗",
			"asset_id", assetID,
			"detail", detail,
			"error", err,
		)
		return
	}
	if s.collector != nil {
		s.collector.RecordDivergenceDetected()
	}
	slog.Warn("照合ジャーナルに矛盾を記録",
		"asset_id", assetID,
		"expected_owner_id", expectedOwnerID,
		"recorded_owner_id", recordedOwnerID,
	)
}

// fail は失敗の終端結果を生成し、メトリクスに理由を記録する。
// reachedは失敗時点で到達していた進行状態で、ログから失敗箇所を追えるようにする。
func (s *Service) fail(reached model.TransferState, reason string, err error) (*Result, error) {
	slog.Warn("移転失敗",
		"reached_state", string(reached),
		"reason", reason,
	)
	if s.collector != nil {
		s.collector.RecordTransferFailed(reason)
	}
	return &Result{State: model.TransferStateFailed}, err
}
