// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, authorization, asset, consistency, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeAssetNotFound      = "ASSET_NOT_FOUND"
	ErrCodeEmptyAssetName     = "EMPTY_ASSET_NAME"
	ErrCodeUnknownOwner       = "UNKNOWN_OWNER"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeNotAssetOwner      = "NOT_ASSET_OWNER"
	ErrCodeSameOwnerTransfer  = "SAME_OWNER_TRANSFER"
	ErrCodeHistoryMismatch    = "HISTORY_MISMATCH"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeTransferIncomplete = "TRANSFER_INCOMPLETE"
)

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "validation",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewAssetNotFoundError は資産未検出エラーを生成する。
func NewAssetNotFoundError(assetID string) *APIError {
	return &APIError{
		Code:     ErrCodeAssetNotFound,
		Message:  fmt.Sprintf("指定された資産が見つかりません: %s", assetID),
		Category: "asset",
		Action:   "資産IDを確認してください。",
	}
}

// NewEmptyAssetNameError は資産名が空の場合のエラーを生成する。
func NewEmptyAssetNameError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyAssetName,
		Message:  "資産名が空です。",
		Category: "validation",
		Action:   "1文字以上の資産名を入力してください。",
	}
}

// NewUnknownOwnerError は所有者に指定されたユーザーが存在しない場合のエラーを生成する。
func NewUnknownOwnerError(ownerID string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownOwner,
		Message:  fmt.Sprintf("所有者に指定されたユーザーが存在しません: %s", ownerID),
		Category: "validation",
		Action:   "登録済みユーザーのIDを指定してください。",
	}
}

// NewInvalidRequestError はリクエスト形式不正のエラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewNotAssetOwnerError は所有者でない呼び出し元による移転試行のエラーを生成する。
func NewNotAssetOwnerError(assetID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotAssetOwner,
		Message:  fmt.Sprintf("この資産の現在の所有者ではないため移転できません: %s", assetID),
		Category: "authorization",
		Action:   "資産の所有者のみが移転を実行できます。",
	}
}

// NewSameOwnerTransferError は現所有者自身への移転試行のエラーを生成する。
func NewSameOwnerTransferError() *APIError {
	return &APIError{
		Code:     ErrCodeSameOwnerTransfer,
		Message:  "移転先が現在の所有者と同一です。",
		Category: "validation",
		Action:   "現在の所有者とは異なるユーザーを移転先に指定してください。",
	}
}

// NewHistoryMismatchError は履歴レコードが資産の実際の所有者と矛盾する場合のエラーを生成する。
func NewHistoryMismatchError(assetID string) *APIError {
	return &APIError{
		Code:     ErrCodeHistoryMismatch,
		Message:  fmt.Sprintf("送信者が資産の現在の所有者と一致しません: %s", assetID),
		Category: "consistency",
		Action:   "資産の最新の所有状態を確認してから再度お試しください。",
	}
}

// NewStorageUnavailableError はストアへの書き込み・読み取りに失敗した場合のエラーを生成する。
// 移転は適用されていないため、呼び出し側は再試行できる。
func NewStorageUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  "データストアへのアクセスに失敗しました。移転は適用されていません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewTransferIncompleteError は所有者の書き換え後に履歴の追記に失敗した場合のエラーを生成する。
// 成功として扱ってはならない。照合ジャーナルに記録済みであることが前提。
func NewTransferIncompleteError(assetID string) *APIError {
	return &APIError{
		Code:     ErrCodeTransferIncomplete,
		Message:  fmt.Sprintf("移転は適用されましたが履歴の記録に失敗しました: %s", assetID),
		Category: "consistency",
		Action:   "サポートに連絡してください。履歴は照合ジャーナルに記録されています。",
	}
}
