// Package model はドメインモデルを定義する。
package model

import "time"

// Transaction は所有権移転1件の履歴レコードを表す。
// 作成後は変更・削除されない追記専用のログ。
// SenderIDは移転前の所有者、ReceiverIDは移転後の所有者を指す。
type Transaction struct {
	ID              string
	AssetID         string
	SenderID        string
	ReceiverID      string
	TransactionDate time.Time
}

// TransactionWithParties は履歴レコードと送信者・受信者の表示情報を結合したモデル。
// 資産ごとの履歴表示で使用される。
type TransactionWithParties struct {
	Transaction
	SenderName    string
	SenderEmail   string
	ReceiverName  string
	ReceiverEmail string
}

// TransactionWithAsset は履歴レコードと資産情報を結合したモデル。
// 全履歴の一覧表示で使用される。
type TransactionWithAsset struct {
	TransactionWithParties
	AssetName string
}

// Divergence は資産のowner_idと履歴ログが矛盾している状態の記録を表す。
// 移転ワークフローの部分的失敗、またはオフライン照合で検出され、
// 手動での突合・修正まで未解決のまま保持される。
type Divergence struct {
	ID              string
	AssetID         string
	ExpectedOwnerID string // 履歴ログから導かれる所有者
	RecordedOwnerID string // assetsテーブル上の所有者
	Detail          string
	DetectedAt      time.Time
	ResolvedAt      *time.Time
}

// TransferState は移転ワークフローの進行状態を表す。
type TransferState string

const (
	// TransferStateRequested は移転要求を受理し検証中の状態。
	TransferStateRequested TransferState = "requested"
	// TransferStateOwnershipUpdated は所有者の書き換えが完了した状態。
	TransferStateOwnershipUpdated TransferState = "ownership_updated"
	// TransferStateHistoryRecorded は履歴レコードの追記が完了した状態。
	TransferStateHistoryRecorded TransferState = "history_recorded"
	// TransferStateCompleted は移転が確定した終端状態。
	TransferStateCompleted TransferState = "completed"
	// TransferStateFailed は移転が適用されずに終了した終端状態。
	TransferStateFailed TransferState = "failed"
	// TransferStatePartialFailure は所有者は書き換わったが履歴が残せなかった終端状態。
	// 成功として扱ってはならず、照合ジャーナルへの記録が必須。
	TransferStatePartialFailure TransferState = "partial_failure"
)
