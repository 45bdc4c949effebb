// Package reconcile はオフライン照合ジョブを提供する。
// 全資産を走査してowner_idと履歴ログの整合性を検証し、
// 矛盾を照合ジャーナルに記録する。あわせて期限切れセッションを削除する。
// 日次バッチとして設計されており、何度実行しても安全。
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/assetman/internal/model"
	"github.com/hitoshi/assetman/internal/repository"
)

// AssetVerifier は資産1件の整合性検証インターフェース。
// transfer.Serviceが実装する。
type AssetVerifier interface {
	VerifyAsset(ctx context.Context, assetID string) error
}

// SessionCleaner は期限切れセッション削除のインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ReconcileJob は資産の整合性照合とセッション掃除のバッチジョブ。
type ReconcileJob struct {
	assetRepo repository.AssetRepository
	divRepo   repository.DivergenceRepository
	verifier  AssetVerifier
	sessions  SessionCleaner
	logger    *slog.Logger
}

// NewReconcileJob は新しいReconcileJobを生成する。
func NewReconcileJob(
	assetRepo repository.AssetRepository,
	divRepo repository.DivergenceRepository,
	verifier AssetVerifier,
	sessions SessionCleaner,
	logger *slog.Logger,
) *ReconcileJob {
	return &ReconcileJob{
		assetRepo: assetRepo,
		divRepo:   divRepo,
		verifier:  verifier,
		sessions:  sessions,
		logger:    logger,
	}
}

// Run は照合ジョブを1回実行する。
// 期限切れセッションを削除した後、全資産を走査して整合性を検証する。
// 矛盾が検出された資産はVerifyAsset側でジャーナルに記録されるため、
// ここではカウントして続行する。1件の失敗で走査全体は止めない。
func (j *ReconcileJob) Run(ctx context.Context) error {
	start := time.Now()

	// 1. 期限切れセッションの削除
	deleted, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		// セッション掃除の失敗は照合の継続を妨げない
	} else {
		j.logger.Info("期限切れセッションを削除しました",
			slog.Int64("deleted_count", deleted),
		)
	}

	// 2. 全資産の整合性検証
	assetIDs, err := j.assetRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("資産ID一覧の取得に失敗: %w", err)
	}

	var mismatchCount, errorCount int
	for _, assetID := range assetIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := j.verifier.VerifyAsset(ctx, assetID); err != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeHistoryMismatch {
				mismatchCount++
				continue
			}
			errorCount++
			j.logger.Error("資産の整合性検証に失敗しました",
				slog.String("asset_id", assetID),
				slog.String("error", err.Error()),
			)
		}
	}

	// 3. 解消済みジャーナルエントリのクローズ
	// 手動修正等で整合性が回復した資産の未解決エントリを解決済みにする。
	resolvedCount := j.resolveRecovered(ctx)

	duration := time.Since(start)
	j.logger.Info("照合ジョブが完了しました",
		slog.Int("scanned", len(assetIDs)),
		slog.Int("mismatches", mismatchCount),
		slog.Int("resolved", resolvedCount),
		slog.Int("errors", errorCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// resolveRecovered は未解決の矛盾エントリを再検証し、
// 整合性が回復しているものを解決済みにする。解決した件数を返す。
func (j *ReconcileJob) resolveRecovered(ctx context.Context) int {
	unresolved, err := j.divRepo.ListUnresolved(ctx)
	if err != nil {
		j.logger.Error("未解決ジャーナルの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0
	}

	resolved := 0
	for _, div := range unresolved {
		if err := j.verifier.VerifyAsset(ctx, div.AssetID); err != nil {
			// まだ矛盾している、または検証自体に失敗。未解決のまま残す。
			continue
		}
		if err := j.divRepo.Resolve(ctx, div.ID); err != nil {
			j.logger.Error("ジャーナルエントリの解決に失敗しました",
				slog.String("divergence_id", div.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		resolved++
		j.logger.Info("整合性の回復を確認しジャーナルを解決しました",
			slog.String("divergence_id", div.ID),
			slog.String("asset_id", div.AssetID),
		)
	}
	return resolved
}
