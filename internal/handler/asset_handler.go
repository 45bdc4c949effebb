package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/assetman/internal/asset"
	"github.com/hitoshi/assetman/internal/metrics"
	"github.com/hitoshi/assetman/internal/middleware"
	"github.com/hitoshi/assetman/internal/model"
	"github.com/hitoshi/assetman/internal/transfer"
)

// AssetServiceInterface は資産ハンドラーが必要とするサービスインターフェース。
type AssetServiceInterface interface {
	ListAssets(ctx context.Context) ([]asset.AssetInfo, error)
	GetAsset(ctx context.Context, assetID string) (*asset.AssetInfo, error)
	CreateAsset(ctx context.Context, ownerID, name, description, imageURL string) (*asset.AssetInfo, error)
}

// TransferServiceInterface は移転ハンドラーが必要とするサービスインターフェース。
type TransferServiceInterface interface {
	Execute(ctx context.Context, callerID, assetID, newOwnerID string) (*transfer.Result, error)
}

// AssetHistoryLister は資産ごとの移転履歴取得インターフェース。
type AssetHistoryLister interface {
	ListByAsset(ctx context.Context, assetID string) ([]model.TransactionWithParties, error)
}

// AssetHandler は資産関連のHTTPハンドラー。
type AssetHandler struct {
	assetService    AssetServiceInterface
	transferService TransferServiceInterface
	historyLister   AssetHistoryLister
	collector       metrics.MetricsCollector
}

// NewAssetHandler はAssetHandlerを生成する。
func NewAssetHandler(
	assetService AssetServiceInterface,
	transferService TransferServiceInterface,
	historyLister AssetHistoryLister,
	collector metrics.MetricsCollector,
) *AssetHandler {
	return &AssetHandler{
		assetService:    assetService,
		transferService: transferService,
		historyLister:   historyLister,
		collector:       collector,
	}
}

// createAssetRequest は資産登録リクエスト。
type createAssetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// transferAssetRequest は所有権移転リクエスト。
type transferAssetRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}

// assetResponse は資産1件のレスポンス。
type assetResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
	OwnerID     string  `json:"owner_id"`
	OwnerName   string  `json:"owner_name"`
	OwnerEmail  string  `json:"owner_email"`
	CreatedAt   string  `json:"created_at"`
}

// transferResponse は移転結果のレスポンス。
type transferResponse struct {
	State   string               `json:"state"`
	AssetID string               `json:"asset_id"`
	OwnerID string               `json:"owner_id"`
	Record  *transactionResponse `json:"record"`
}

// transactionResponse は履歴レコード1件のレスポンス。
type transactionResponse struct {
	ID              string `json:"id"`
	AssetID         string `json:"asset_id"`
	SenderID        string `json:"sender_id"`
	ReceiverID      string `json:"receiver_id"`
	SenderName      string `json:"sender_name,omitempty"`
	SenderEmail     string `json:"sender_email,omitempty"`
	ReceiverName    string `json:"receiver_name,omitempty"`
	ReceiverEmail   string `json:"receiver_email,omitempty"`
	TransactionDate string `json:"transaction_date"`
}

// List は全資産を所有者情報付きで返す。
// GET /api/assets
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assetService.ListAssets(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]assetResponse, len(assets))
	for i, a := range assets {
		responses[i] = toAssetResponse(a)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// Get はIDを指定して資産1件を返す。
// GET /api/assets/{assetID}
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	info, err := h.assetService.GetAsset(r.Context(), assetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := toAssetResponse(*info)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Create は新しい資産を登録する。所有者は認証済みユーザー。
// POST /api/assets
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの形式が不正です。"))
		return
	}

	info, err := h.assetService.CreateAsset(r.Context(), userID, req.Name, req.Description, req.ImageURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordAssetCreated()
	}

	resp := toAssetResponse(*info)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// Transfer は資産の所有権を認証済みユーザーから指定ユーザーへ移転する。
// POST /api/assets/{assetID}/transfer
func (h *AssetHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	assetID := chi.URLParam(r, "assetID")

	var req transferAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの形式が不正です。"))
		return
	}

	result, err := h.transferService.Execute(r.Context(), userID, assetID, req.NewOwnerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := transferResponse{
		State:   string(result.State),
		AssetID: result.Asset.ID,
		OwnerID: result.Asset.OwnerID,
	}
	if result.Record != nil {
		rec := toTransactionResponse(model.TransactionWithParties{Transaction: *result.Record})
		resp.Record = &rec
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// History は資産の移転履歴を新しい順に返す。
// GET /api/assets/{assetID}/transactions
func (h *AssetHandler) History(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	txns, err := h.historyLister.ListByAsset(r.Context(), assetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]transactionResponse, len(txns))
	for i, txn := range txns {
		responses[i] = toTransactionResponse(txn)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

func toAssetResponse(info asset.AssetInfo) assetResponse {
	return assetResponse{
		ID:          info.ID,
		Name:        info.Name,
		Description: info.Description,
		ImageURL:    info.ImageURL,
		OwnerID:     info.OwnerID,
		OwnerName:   info.OwnerName,
		OwnerEmail:  info.OwnerEmail,
		CreatedAt:   info.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionResponse(txn model.TransactionWithParties) transactionResponse {
	return transactionResponse{
		ID:              txn.ID,
		AssetID:         txn.AssetID,
		SenderID:        txn.SenderID,
		ReceiverID:      txn.ReceiverID,
		SenderName:      txn.SenderName,
		SenderEmail:     txn.SenderEmail,
		ReceiverName:    txn.ReceiverName,
		ReceiverEmail:   txn.ReceiverEmail,
		TransactionDate: txn.TransactionDate.Format(time.RFC3339),
	}
}
