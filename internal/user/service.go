// Package user はユーザー情報のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/assetman/internal/model"
	"github.com/hitoshi/assetman/internal/repository"
)

// Service はユーザー情報のサービス層。
// 譲渡先の選択肢となるユーザー一覧取得、個別ユーザー取得を提供する。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// ListUsers は登録済みユーザーの一覧を返す。
// 認証済みであれば全ユーザーを閲覧できる（譲渡先の選択に使う）。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// GetUser はIDを指定してユーザーを取得する。
// 存在しない場合はUserNotFoundErrorを返す。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, model.NewInvalidRequestError("ユーザーIDが指定されていません")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	return user, nil
}
