package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/assetman/internal/model"
)

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	listUsersFn func(ctx context.Context) ([]*model.User, error)
	getUserFn   func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

func (m *mockUserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, userID)
	}
	return nil, nil
}

// --- GET /api/users テスト ---

func TestUserHandler_List_Success(t *testing.T) {
	svc := &mockUserService{
		listUsersFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: "user-1", Name: "田中", Email: "tanaka@example.com"},
				{ID: "user-2", Name: "佐藤", Email: "sato@example.com", Image: "https://example.com/sato.png"},
			}, nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("len(result) = %d, want 2", len(result))
	}
	if result[0]["email"] != "tanaka@example.com" {
		t.Errorf("email = %v, want %q", result[0]["email"], "tanaka@example.com")
	}
	if result[1]["image"] != "https://example.com/sato.png" {
		t.Errorf("image = %v, want profile image URL", result[1]["image"])
	}
}

func TestUserHandler_List_ServiceError_ReturnsInternalServerError(t *testing.T) {
	svc := &mockUserService{
		listUsersFn: func(ctx context.Context) ([]*model.User, error) {
			return nil, errors.New("database error")
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
}

// --- GET /api/users/:userID テスト ---

func TestUserHandler_Get_Success(t *testing.T) {
	svc := &mockUserService{
		getUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return &model.User{ID: "user-1", Name: "田中", Email: "tanaka@example.com"}, nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/user-1", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "userID", "user-1")
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["name"] != "田中" {
		t.Errorf("name = %v, want %q", result["name"], "田中")
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	svc := &mockUserService{
		getUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, model.NewUserNotFoundError(userID)
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/nonexistent", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "userID", "nonexistent")
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeUserNotFound)
	}
}
