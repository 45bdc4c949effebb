package asset

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/assetman/internal/model"
	"github.com/hitoshi/assetman/internal/repository"
	"github.com/hitoshi/assetman/internal/security"
)

// AssetInfo は資産情報と所有者情報を結合したドメインオブジェクト。
// ImageURLは取得済み画像のdata URL、または元のURLのいずれかに解決される。
type AssetInfo struct {
	ID          string
	Name        string
	Description string
	ImageURL    *string
	OwnerID     string
	OwnerName   string
	OwnerEmail  string
	CreatedAt   time.Time
}

// Service は資産登録・閲覧のサービス層。
type Service struct {
	assetRepo    repository.AssetRepository
	userRepo     repository.UserRepository
	sanitizer    security.TextSanitizerService
	imageFetcher ImageFetcherService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	assetRepo repository.AssetRepository,
	userRepo repository.UserRepository,
	sanitizer security.TextSanitizerService,
	imageFetcher ImageFetcherService,
) *Service {
	return &Service{
		assetRepo:    assetRepo,
		userRepo:     userRepo,
		sanitizer:    sanitizer,
		imageFetcher: imageFetcher,
	}
}

// ListAssets は全資産を所有者情報付きで新しい順に返す。
func (s *Service) ListAssets(ctx context.Context) ([]AssetInfo, error) {
	rows, err := s.assetRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("資産一覧の取得に失敗しました: %w", err)
	}

	results := make([]AssetInfo, len(rows))
	for i, row := range rows {
		results[i] = toAssetInfo(row)
	}
	return results, nil
}

// GetAsset はIDを指定して資産を取得する。
// 存在しない場合はAssetNotFoundErrorを返す。
func (s *Service) GetAsset(ctx context.Context, assetID string) (*AssetInfo, error) {
	if assetID == "" {
		return nil, model.NewInvalidRequestError("資産IDが指定されていません")
	}

	a, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("資産の取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewAssetNotFoundError(assetID)
	}

	row := model.AssetWithOwner{Asset: *a}
	if owner, err := s.userRepo.FindByID(ctx, a.OwnerID); err != nil {
		return nil, fmt.Errorf("所有者の取得に失敗しました: %w", err)
	} else if owner != nil {
		row.OwnerName = owner.Name
		row.OwnerEmail = owner.Email
	}

	info := toAssetInfo(row)
	return &info, nil
}

// CreateAsset は新しい資産を登録する。所有者は認証済みの呼び出し元ユーザー。
// 名前と説明はサニタイズされ、サニタイズ後に名前が空になる場合は
// EmptyAssetNameErrorを返す。
// imageURLが外部URLの場合は画像を取得してバイト列として保存し、
// 取得に失敗した場合はURLのみを保存して登録を続行する。
// data URIの場合は取得を行わずそのまま保存する。
func (s *Service) CreateAsset(ctx context.Context, ownerID, name, description, imageURL string) (*AssetInfo, error) {
	// 所有者の存在確認
	owner, err := s.userRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("所有者の確認に失敗しました: %w", err)
	}
	if owner == nil {
		return nil, model.NewUnknownOwnerError(ownerID)
	}

	// 名前・説明のサニタイズ（HTMLタグ除去、前後空白除去）
	cleanName := s.sanitizer.Sanitize(name)
	if cleanName == "" {
		return nil, model.NewEmptyAssetNameError()
	}
	cleanDescription := s.sanitizer.Sanitize(description)

	newAsset := &model.Asset{
		ID:          uuid.New().String(),
		Name:        cleanName,
		Description: cleanDescription,
		ImageURL:    imageURL,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
	}

	// 外部URLの場合のみ画像を取得（data URIはそのまま保存）
	if imageURL != "" && !isDataURI(imageURL) && s.imageFetcher != nil {
		data, mimeType, err := s.imageFetcher.FetchImage(ctx, imageURL)
		if err != nil {
			return nil, fmt.Errorf("画像の取得に失敗しました: %w", err)
		}
		newAsset.ImageData = data
		newAsset.ImageMime = mimeType
	}

	if err := s.assetRepo.Create(ctx, newAsset); err != nil {
		return nil, fmt.Errorf("資産の登録に失敗しました: %w", err)
	}

	info := toAssetInfo(model.AssetWithOwner{
		Asset:      *newAsset,
		OwnerName:  owner.Name,
		OwnerEmail: owner.Email,
	})
	return &info, nil
}

// toAssetInfo はリポジトリの行をAssetInfoに変換する。
func toAssetInfo(row model.AssetWithOwner) AssetInfo {
	info := AssetInfo{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		OwnerID:     row.OwnerID,
		OwnerName:   row.OwnerName,
		OwnerEmail:  row.OwnerEmail,
		CreatedAt:   row.CreatedAt,
	}

	// 取得済み画像データがある場合はdata URLに変換
	if len(row.ImageData) > 0 && row.ImageMime != "" {
		dataURL := fmt.Sprintf("data:%s;base64,%s", row.ImageMime, base64.StdEncoding.EncodeToString(row.ImageData))
		info.ImageURL = &dataURL
	} else if row.ImageURL != "" {
		u := row.ImageURL
		info.ImageURL = &u
	}

	return info
}
