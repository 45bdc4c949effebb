// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザー入力の資産名・説明文をサニタイズし、
// フロントエンドでの表示時のXSSリスクからユーザーを保護する。
// bluemondayのStrictPolicyにより全てのHTMLタグと属性を除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストのサニタイズ機能のインターフェースを定義する。
// 資産の作成時、保存前の入力に対して使用される。
type TextSanitizerService interface {
	// Sanitize は入力からHTMLタグ・属性を全て除去し、
	// 前後の空白をトリムしたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たず、scriptタグやon*イベント属性を含む
// 全てのマークアップを除去する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグ・属性を全て除去する。
// bluemondayはタグ除去後のテキストをエンティティ化するため、
// 保存値がプレーンテキストになるようアンエスケープして返す。
func (s *textSanitizer) Sanitize(input string) string {
	if input == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
