// Package model はドメインモデルを定義する。
package model

import "time"

// Asset は所有権を追跡するデジタル資産を表す。
// owner_idのみが可変で、変更は所有権移転ワークフローを通じてのみ行われる。
type Asset struct {
	ID          string
	Name        string
	Description string
	ImageURL    string // 外部URLまたはdata URI（任意）
	ImageData   []byte // 取得済み画像データ（取得できた場合のみ）
	ImageMime   string
	OwnerID     string
	CreatedAt   time.Time
}

// AssetWithOwner は資産と所有者の表示情報を結合したモデル。
// usersテーブルとJOINして取得される。
type AssetWithOwner struct {
	Asset
	OwnerName  string
	OwnerEmail string
}
