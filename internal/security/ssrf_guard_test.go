package security

import (
	"testing"
	"time"
)

// ValidateURLが公開URLを許可することを検証
func TestSSRFGuard_ValidateURL_AllowsPublicURL(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"https://example.com/image.png",
		"http://cdn.example.org/a/b.jpg",
		"https://93.184.216.34/image.png",
	}
	for _, u := range urls {
		if err := g.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) returned error: %v", u, err)
		}
	}
}

// ValidateURLがプライベートIP・ループバック・メタデータIPを拒否することを検証
func TestSSRFGuard_ValidateURL_BlocksPrivateAddresses(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"http://10.0.0.5/img.png",
		"http://172.16.1.1/img.png",
		"http://192.168.1.10/img.png",
		"http://127.0.0.1/img.png",
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost/img.png",
		"http://[::1]/img.png",
	}
	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) should be blocked", u)
		}
	}
}

// ValidateURLがhttp/https以外のスキームを拒否することを検証
func TestSSRFGuard_ValidateURL_BlocksDisallowedSchemes(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"file:///etc/passwd",
		"ftp://example.com/img.png",
		"gopher://example.com/",
	}
	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) should be blocked", u)
		}
	}
}

// ValidateURLが空URLと不正なURLを拒否することを検証
func TestSSRFGuard_ValidateURL_RejectsInvalidInput(t *testing.T) {
	g := NewSSRFGuard()

	if err := g.ValidateURL(""); err == nil {
		t.Error("ValidateURL(\"\") should return error")
	}
	if err := g.ValidateURL("https://"); err == nil {
		t.Error("ValidateURL with empty host should return error")
	}
}

// NewSafeClientがタイムアウト付きクライアントを生成することを検証
func TestSSRFGuard_NewSafeClient_ReturnsClient(t *testing.T) {
	g := NewSSRFGuard()

	client := g.NewSafeClient(5*time.Second, 1024*1024)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}
