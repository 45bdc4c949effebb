package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/assetman/internal/asset"
	"github.com/hitoshi/assetman/internal/middleware"
	"github.com/hitoshi/assetman/internal/model"
	"github.com/hitoshi/assetman/internal/transfer"
)

// --- モック定義 ---

// mockAssetService はAssetServiceInterfaceのモック実装。
type mockAssetService struct {
	listAssetsFn  func(ctx context.Context) ([]asset.AssetInfo, error)
	getAssetFn    func(ctx context.Context, assetID string) (*asset.AssetInfo, error)
	createAssetFn func(ctx context.Context, ownerID, name, description, imageURL string) (*asset.AssetInfo, error)
}

func (m *mockAssetService) ListAssets(ctx context.Context) ([]asset.AssetInfo, error) {
	if m.listAssetsFn != nil {
		return m.listAssetsFn(ctx)
	}
	return nil, nil
}

func (m *mockAssetService) GetAsset(ctx context.Context, assetID string) (*asset.AssetInfo, error) {
	if m.getAssetFn != nil {
		return m.getAssetFn(ctx, assetID)
	}
	return nil, nil
}

func (m *mockAssetService) CreateAsset(ctx context.Context, ownerID, name, description, imageURL string) (*asset.AssetInfo, error) {
	if m.createAssetFn != nil {
		return m.createAssetFn(ctx, ownerID, name, description, imageURL)
	}
	return nil, nil
}

// mockTransferService はTransferServiceInterfaceのモック実装。
type mockTransferService struct {
	executeFn func(ctx context.Context, callerID, assetID, newOwnerID string) (*transfer.Result, error)
}

func (m *mockTransferService) Execute(ctx context.Context, callerID, assetID, newOwnerID string) (*transfer.Result, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, callerID, assetID, newOwnerID)
	}
	return nil, nil
}

// mockHistoryLister はAssetHistoryListerのモック実装。
type mockHistoryLister struct {
	listByAssetFn func(ctx context.Context, assetID string) ([]model.TransactionWithParties, error)
}

func (m *mockHistoryLister) ListByAsset(ctx context.Context, assetID string) ([]model.TransactionWithParties, error) {
	if m.listByAssetFn != nil {
		return m.listByAssetFn(ctx, assetID)
	}
	return nil, nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func newAssetHandlerForTest(assetSvc AssetServiceInterface, transferSvc TransferServiceInterface, lister AssetHistoryLister) *AssetHandler {
	if assetSvc == nil {
		assetSvc = &mockAssetService{}
	}
	if transferSvc == nil {
		transferSvc = &mockTransferService{}
	}
	if lister == nil {
		lister = &mockHistoryLister{}
	}
	return NewAssetHandler(assetSvc, transferSvc, lister, nil)
}

func strPtr(s string) *string { return &s }

// --- GET /api/assets テスト ---

func TestAssetHandler_List_Success(t *testing.T) {
	svc := &mockAssetService{
		listAssetsFn: func(ctx context.Context) ([]asset.AssetInfo, error) {
			return []asset.AssetInfo{
				{
					ID:         "asset-1",
					Name:       "腕時計",
					OwnerID:    "user-1",
					OwnerName:  "田中",
					OwnerEmail: "tanaka@example.com",
					ImageURL:   strPtr("data:image/png;base64,aW1n"),
					CreatedAt:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				},
				{ID: "asset-2", Name: "カメラ", OwnerID: "user-2"},
			}, nil
		},
	}

	h := newAssetHandlerForTest(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
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
	if result[0]["id"] != "asset-1" {
		t.Errorf("id = %v, want %q", result[0]["id"], "asset-1")
	}
	if result[0]["owner_name"] != "田中" {
		t.Errorf("owner_name = %v, want %q", result[0]["owner_name"], "田中")
	}
	if result[0]["image_url"] != "data:image/png;base64,aW1n" {
		t.Errorf("image_url = %v, want data URL", result[0]["image_url"])
	}
	// 画像未設定の資産はimage_urlがnullになる
	if result[1]["image_url"] != nil {
		t.Errorf("image_url = %v, want nil", result[1]["image_url"])
	}
}

func TestAssetHandler_List_ServiceError_ReturnsInternalServerError(t *testing.T) {
	svc := &mockAssetService{
		listAssetsFn: func(ctx context.Context) ([]asset.AssetInfo, error) {
			return nil, errors.New("database error")
		},
	}

	h := newAssetHandlerForTest(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
}

// --- GET /api/assets/:assetID テスト ---

func TestAssetHandler_Get_Success(t *testing.T) {
	svc := &mockAssetService{
		getAssetFn: func(ctx context.Context, assetID string) (*asset.AssetInfo, error) {
			if assetID != "asset-1" {
				t.Errorf("assetID = %q, want %q", assetID, "asset-1")
			}
			return &asset.AssetInfo{ID: "asset-1", Name: "腕時計", OwnerID: "user-1"}, nil
		},
	}

	h := newAssetHandlerForTest(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/assets/asset-1", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "assetID", "asset-1")
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
	if result["name"] != "腕時計" {
		t.Errorf("name = %v, want %q", result["name"], "腕時計")
	}
}

func TestAssetHandler_Get_NotFound(t *testing.T) {
	svc := &mockAssetService{
		getAssetFn: func(ctx context.Context, assetID string) (*asset.AssetInfo, error) {
			return nil, model.NewAssetNotFoundError(assetID)
		},
	}

	h := newAssetHandlerForTest(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/assets/nonexistent", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "assetID", "nonexistent")
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeAssetNotFound {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeAssetNotFound)
	}
}

// --- POST /api/assets テスト ---

func TestAssetHandler_Create_Success(t *testing.T) {
	svc := &mockAssetService{
		createAssetFn: func(ctx context.Context, ownerID, name, description, imageURL string) (*asset.AssetInfo, error) {
			if ownerID != "user-123" {
				t.Errorf("ownerID = %q, want %q", ownerID, "user-123")
			}
			if name != "腕時計" {
				t.Errorf("name = %q, want %q", name, "腕時計")
			}
			return &asset.AssetInfo{
				ID:      "asset-1",
				Name:    name,
				OwnerID: ownerID,
			}, nil
		},
	}

	h := newAssetHandlerForTest(svc, nil, nil)

	body := `{"name": "腕時計", "description": "祖父の形見"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["id"] != "asset-1" {
		t.Errorf("id = %v, want %q", result["id"], "asset-1")
	}
	if result["owner_id"] != "user-123" {
		t.Errorf("owner_id = %v, want %q", result["owner_id"], "user-123")
	}
}

func TestAssetHandler_Create_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := newAssetHandlerForTest(nil, nil, nil)

	body := `{"name": "腕時計"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	// ユーザーIDを注入しない
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestAssetHandler_Create_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := newAssetHandlerForTest(nil, nil, nil)

	body := `{invalid json`
	req := httptest.NewRequest(http.MethodPost, "/api/assets", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestAssetHandler_Create_EmptyName_ReturnsBadRequest(t *testing.T) {
	svc := &mockAssetService{
		createAssetFn: func(ctx context.Context, ownerID, name, description, imageURL string) (*asset.AssetInfo, error) {
			return nil, model.NewEmptyAssetNameError()
		},
	}

	h := newAssetHandlerForTest(svc, nil, nil)

	body := `{"name": "   "}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeEmptyAssetName {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeEmptyAssetName)
	}
}

// --- POST /api/assets/:assetID/transfer テスト ---

func TestAssetHandler_Transfer_Success(t *testing.T) {
	svc := &mockTransferService{
		executeFn: func(ctx context.Context, callerID, assetID, newOwnerID string) (*transfer.Result, error) {
			if callerID != "user-1" {
				t.Errorf("callerID = %q, want %q", callerID, "user-1")
			}
			if assetID != "asset-1" {
				t.Errorf("assetID = %q, want %q", assetID, "asset-1")
			}
			if newOwnerID != "user-2" {
				t.Errorf("newOwnerID = %q, want %q", newOwnerID, "user-2")
			}
			return &transfer.Result{
				State: model.TransferStateCompleted,
				Asset: &model.Asset{ID: "asset-1", OwnerID: "user-2"},
				Record: &model.Transaction{
					ID:         "txn-1",
					AssetID:    "asset-1",
					SenderID:   "user-1",
					ReceiverID: "user-2",
				},
			}, nil
		},
	}

	h := newAssetHandlerForTest(nil, svc, nil)

	body := `{"new_owner_id": "user-2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets/asset-1/transfer", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "assetID", "asset-1")
	w := httptest.NewRecorder()

	h.Transfer(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["state"] != string(model.TransferStateCompleted) {
		t.Errorf("state = %v, want %q", result["state"], model.TransferStateCompleted)
	}
	if result["owner_id"] != "user-2" {
		t.Errorf("owner_id = %v, want %q", result["owner_id"], "user-2")
	}
	record, ok := result["record"].(map[string]interface{})
	if !ok {
		t.Fatal("expected record object in response")
	}
	if record["sender_id"] != "user-1" {
		t.Errorf("record.sender_id = %v, want %q", record["sender_id"], "user-1")
	}
}

func TestAssetHandler_Transfer_NotOwner_ReturnsForbidden(t *testing.T) {
	svc := &mockTransferService{
		executeFn: func(ctx context.Context, callerID, assetID, newOwnerID string) (*transfer.Result, error) {
			return &transfer.Result{State: model.TransferStateFailed}, model.NewNotAssetOwnerError(assetID)
		},
	}

	h := newAssetHandlerForTest(nil, svc, nil)

	body := `{"new_owner_id": "user-2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets/asset-1/transfer", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-9")
	req = withChiURLParam(req, "assetID", "asset-1")
	w := httptest.NewRecorder()

	h.Transfer(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeNotAssetOwner {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeNotAssetOwner)
	}
}

func TestAssetHandler_Transfer_SameOwner_ReturnsBadRequest(t *testing.T) {
	svc := &mockTransferService{
		executeFn: func(ctx context.Context, callerID, assetID, newOwnerID string) (*transfer.Result, error) {
			return &transfer.Result{State: model.TransferStateFailed}, model.NewSameOwnerTransferError()
		},
	}

	h := newAssetHandlerForTest(nil, svc, nil)

	body := `{"new_owner_id": "user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets/asset-1/transfer", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "assetID", "asset-1")
	w := httptest.NewRecorder()

	h.Transfer(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestAssetHandler_Transfer_PartialFailure_ReturnsBadGateway(t *testing.T) {
	svc := &mockTransferService{
		executeFn: func(ctx context.Context, callerID, assetID, newOwnerID string) (*transfer.Result, error) {
			return &transfer.Result{State: model.TransferStatePartialFailure}, model.NewTransferIncompleteError(assetID)
		},
	}

	h := newAssetHandlerForTest(nil, svc, nil)

	body := `{"new_owner_id": "user-2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets/asset-1/transfer", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "assetID", "asset-1")
	w := httptest.NewRecorder()

	h.Transfer(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}

	// 部分的失敗は成功として扱わず、エラーフォーマットで返す
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeTransferIncomplete {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeTransferIncomplete)
	}
}

func TestAssetHandler_Transfer_StorageUnavailable_ReturnsServiceUnavailable(t *testing.T) {
	svc := &mockTransferService{
		executeFn: func(ctx context.Context, callerID, assetID, newOwnerID string) (*transfer.Result, error) {
			return &transfer.Result{State: model.TransferStateFailed}, model.NewStorageUnavailableError()
		},
	}

	h := newAssetHandlerForTest(nil, svc, nil)

	body := `{"new_owner_id": "user-2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets/asset-1/transfer", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "assetID", "asset-1")
	w := httptest.NewRecorder()

	h.Transfer(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestAssetHandler_Transfer_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := newAssetHandlerForTest(nil, nil, nil)

	body := `{"new_owner_id": "user-2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets/asset-1/transfer", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	// ユーザーIDを注入しない
	req = withChiURLParam(req, "assetID", "asset-1")
	w := httptest.NewRecorder()

	h.Transfer(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// --- GET /api/assets/:assetID/transactions テスト ---

func TestAssetHandler_History_Success(t *testing.T) {
	lister := &mockHistoryLister{
		listByAssetFn: func(ctx context.Context, assetID string) ([]model.TransactionWithParties, error) {
			if assetID != "asset-1" {
				t.Errorf("assetID = %q, want %q", assetID, "asset-1")
			}
			return []model.TransactionWithParties{
				{
					Transaction: model.Transaction{
						ID:         "txn-2",
						AssetID:    "asset-1",
						SenderID:   "user-2",
						ReceiverID: "user-3",
					},
					SenderName:   "佐藤",
					ReceiverName: "鈴木",
				},
				{
					Transaction: model.Transaction{
						ID:         "txn-1",
						AssetID:    "asset-1",
						SenderID:   "user-1",
						ReceiverID: "user-2",
					},
				},
			}, nil
		},
	}

	h := newAssetHandlerForTest(nil, nil, lister)

	req := httptest.NewRequest(http.MethodGet, "/api/assets/asset-1/transactions", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "assetID", "asset-1")
	w := httptest.NewRecorder()

	h.History(w, req)

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
	if result[0]["sender_name"] != "佐藤" {
		t.Errorf("sender_name = %v, want %q", result[0]["sender_name"], "佐藤")
	}
}

func TestAssetHandler_History_Empty_ReturnsEmptyArray(t *testing.T) {
	lister := &mockHistoryLister{
		listByAssetFn: func(ctx context.Context, assetID string) ([]model.TransactionWithParties, error) {
			return []model.TransactionWithParties{}, nil
		},
	}

	h := newAssetHandlerForTest(nil, nil, lister)

	req := httptest.NewRequest(http.MethodGet, "/api/assets/asset-1/transactions", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "assetID", "asset-1")
	w := httptest.NewRecorder()

	h.History(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// nullではなく空配列を返す
	body := w.Body.String()
	if body == "null\n" {
		t.Error("expected empty array, got null")
	}
}
