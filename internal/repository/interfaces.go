// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/assetman/internal/model"
)

// Querier はSQL実行の最小インターフェース。
// *sql.DB と *sql.Tx の両方を受け付けることができ、
// トランザクション内で複数リポジトリの操作を合成するために使用する。
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List は全ユーザーをメールアドレス降順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// AssetRepository は資産データの永続化インターフェース。
// owner_idの書き換えは移転ワークフローのトランザクション内でのみ行われるため、
// UpdateOwnerはQuerierを受け取り呼び出し側のトランザクションに参加する。
type AssetRepository interface {
	// FindByID は指定IDの資産を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Asset, error)

	// FindByIDForUpdate は指定IDの資産を行ロック付き（FOR UPDATE）で取得する。
	// 同一資産への並行移転を直列化するために使用する。見つからない場合はnilを返す。
	FindByIDForUpdate(ctx context.Context, q Querier, id string) (*model.Asset, error)

	// List は全資産を所有者の表示情報付きで作成日時降順で返す。
	List(ctx context.Context) ([]model.AssetWithOwner, error)

	// ListIDs は全資産のIDを返す。照合ワーカーの走査用。
	ListIDs(ctx context.Context) ([]string, error)

	// Create は資産を作成する。
	Create(ctx context.Context, asset *model.Asset) error

	// UpdateOwner は資産のowner_idを書き換える。
	// 対象行が存在しない場合はエラーを返す。
	UpdateOwner(ctx context.Context, q Querier, assetID, newOwnerID string) error
}

// TransactionRepository は移転履歴の永続化インターフェース。
// 履歴は追記専用で、更新・削除のメソッドは定義しない。
type TransactionRepository interface {
	// Create は履歴レコードを追記する。
	// Querierを受け取り、移転ワークフローのトランザクションに参加できる。
	Create(ctx context.Context, q Querier, txn *model.Transaction) error

	// ListByAsset は指定資産の履歴を送信者・受信者の表示情報付きで
	// transaction_date降順で返す。履歴が無い場合は空スライスを返す。
	ListByAsset(ctx context.Context, assetID string) ([]model.TransactionWithParties, error)

	// ListAll は全履歴を資産情報付きでtransaction_date降順で返す。
	ListAll(ctx context.Context) ([]model.TransactionWithAsset, error)

	// FindLatestByAsset は指定資産の最新の履歴レコードを返す。
	// 履歴が無い場合はnilを返す。
	FindLatestByAsset(ctx context.Context, assetID string) (*model.Transaction, error)
}

// DivergenceRepository は照合ジャーナルの永続化インターフェース。
type DivergenceRepository interface {
	// Record は矛盾の検出を記録する。
	Record(ctx context.Context, div *model.Divergence) error

	// ListUnresolved は未解決の矛盾を検出日時昇順で返す。
	ListUnresolved(ctx context.Context) ([]*model.Divergence, error)

	// HasUnresolved は指定資産に未解決の矛盾が存在するかを返す。
	HasUnresolved(ctx context.Context, assetID string) (bool, error)

	// Resolve は指定IDの矛盾を解決済みにする。
	Resolve(ctx context.Context, id string) error
}
