package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	m, err := NewManager("test-secret", 0, false)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	m.WithClock(func() time.Time { return now })

	token, expires, err := m.Issue(42)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !expires.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("expected one day expiry, got %v", expires)
	}

	claims := m.Parse(token)
	if claims == nil {
		t.Fatal("expected valid claims")
	}
	if claims.UserID != 42 {
		t.Fatalf("expected user 42, got %d", claims.UserID)
	}
}

func TestParseRejectsInvalidTokens(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	m, _ := NewManager("test-secret", time.Hour, false)
	m.WithClock(func() time.Time { return now })

	token, _, err := m.Issue(7)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	other, _ := NewManager("another-secret", time.Hour, false)
	other.WithClock(func() time.Time { return now })

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	if claims := other.Parse(token); claims != nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
	if claims := m.Parse(tampered); claims != nil {
		t.Fatal("expected tampered token to be rejected")
	}
	if claims := m.Parse("not-a-token"); claims != nil {
		t.Fatal("expected garbage to be rejected")
	}
	if claims := m.Parse(""); claims != nil {
		t.Fatal("expected empty token to be rejected")
	}

	m.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	if claims := m.Parse(token); claims != nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("", time.Hour, false); err != ErrSecretRequired {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}
}

func TestCookieAttributes(t *testing.T) {
	m, _ := NewManager("test-secret", 0, true)
	rec := httptest.NewRecorder()
	expires := time.Now().Add(time.Hour)
	m.SetCookie(rec, "token-value", expires)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName || c.Value != "token-value" || c.Path != "/" {
		t.Fatalf("unexpected cookie %+v", c)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected httponly secure lax cookie, got %+v", c)
	}
	if c.MaxAge != int((24 * time.Hour).Seconds()) {
		t.Fatalf("expected one day max-age, got %d", c.MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	if claims := m.FromRequest(req); claims != nil {
		t.Fatal("expected garbage cookie to yield no session")
	}
}
