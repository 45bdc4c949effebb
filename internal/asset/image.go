// Package asset は資産登録・閲覧のドメインロジックを提供する。
package asset

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ImageFetcherService は資産画像取得のインターフェース。
type ImageFetcherService interface {
	// FetchImage は指定URLから画像を取得する。
	// 取得失敗時はnilデータと空MIMEを返す（エラーは返さない）。
	// 画像が取得できなくても資産登録は続行し、元のURLをそのまま保存する。
	FetchImage(ctx context.Context, imageURL string) (data []byte, mimeType string, err error)
}

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを利用側で抽象化したもの。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// ImageFetcher は資産画像取得機能の実装。
// 外部URLで指定された画像を取得してバイト列として保存する。
type ImageFetcher struct {
	ssrfGuard SSRFValidator
	timeout   time.Duration
	maxSize   int64
}

// NewImageFetcher はImageFetcherの新しいインスタンスを生成する。
func NewImageFetcher(ssrfGuard SSRFValidator, timeout time.Duration, maxSize int64) *ImageFetcher {
	return &ImageFetcher{
		ssrfGuard: ssrfGuard,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// FetchImage は指定URLから画像を取得する。
// 取得失敗時はnilデータと空MIMEを返す（要件: 取得失敗時はURLのみ保存）。
func (f *ImageFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	if imageURL == "" {
		return nil, "", nil
	}

	// SSRF検証
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(imageURL); err != nil {
			slog.Warn("画像取得: SSRFブロック", "url", imageURL, "error", err)
			return nil, "", nil
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		slog.Warn("画像取得: リクエスト作成失敗", "url", imageURL, "error", err)
		return nil, "", nil
	}
	req.Header.Set("User-Agent", "Assetman/1.0 Asset Tracker")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("画像取得: HTTPリクエスト失敗", "url", imageURL, "error", err)
		return nil, "", nil
	}
	defer resp.Body.Close()

	// 2xx以外は画像取得失敗として扱う
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("画像取得: HTTPステータス異常", "url", imageURL, "status", resp.StatusCode)
		return nil, "", nil
	}

	// レスポンスボディを読み込み（サイズ上限あり）
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		slog.Warn("画像取得: レスポンス読み取り失敗", "url", imageURL, "error", err)
		return nil, "", nil
	}

	// サイズ超過チェック
	if int64(len(body)) > f.maxSize {
		slog.Warn("画像取得: サイズ超過", "url", imageURL, "size", len(body))
		return nil, "", nil
	}

	contentType := resp.Header.Get("Content-Type")
	mimeType := extractMimeType(contentType)

	// 画像でない場合はnilを返す
	if !isImageMime(mimeType) {
		slog.Warn("画像取得: 画像以外のContent-Type", "url", imageURL, "contentType", contentType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *ImageFetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxSize)
	}
	return &http.Client{Timeout: f.timeout}
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	// セミコロンの前の部分（charset等を除去）
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	return strings.HasPrefix(mimeType, "image/")
}

// isDataURI はURLがdata URIスキームかどうかを判定する。
// data URIはフロントエンドで生成されたインライン画像であり、
// HTTP取得を行わずそのまま保存する。
func isDataURI(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "data:")
}

// compile-time interface check
var _ ImageFetcherService = (*ImageFetcher)(nil)
