package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/assetman/internal/model"
)

// TransactionServiceInterface は履歴ハンドラーが必要とするサービスインターフェース。
type TransactionServiceInterface interface {
	RecordTransfer(ctx context.Context, assetID, senderID, receiverID string) (*model.Transaction, error)
	ListAll(ctx context.Context) ([]model.TransactionWithAsset, error)
}

// TransactionHandler は移転履歴関連のHTTPハンドラー。
type TransactionHandler struct {
	service TransactionServiceInterface
}

// NewTransactionHandler はTransactionHandlerを生成する。
func NewTransactionHandler(service TransactionServiceInterface) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// recordTransactionRequest は履歴レコード追記リクエスト。
type recordTransactionRequest struct {
	AssetID    string `json:"asset_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

// transactionWithAssetResponse は資産名付き履歴レコードのレスポンス。
type transactionWithAssetResponse struct {
	transactionResponse
	AssetName string `json:"asset_name"`
}

// Record は検証付きで履歴レコードを1件追記する。
// 送信者が資産の現在の所有者と一致しない場合は拒否される。
// POST /api/transactions
func (h *TransactionHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの形式が不正です。"))
		return
	}

	txn, err := h.service.RecordTransfer(r.Context(), req.AssetID, req.SenderID, req.ReceiverID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := transactionResponse{
		ID:              txn.ID,
		AssetID:         txn.AssetID,
		SenderID:        txn.SenderID,
		ReceiverID:      txn.ReceiverID,
		TransactionDate: txn.TransactionDate.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// ListAll は全資産の移転履歴を新しい順に返す。
// GET /api/transactions
func (h *TransactionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	txns, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]transactionWithAssetResponse, len(txns))
	for i, txn := range txns {
		responses[i] = transactionWithAssetResponse{
			transactionResponse: toTransactionResponse(txn.TransactionWithParties),
			AssetName:           txn.AssetName,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}
