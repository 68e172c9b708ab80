// Package session issues and verifies the signed session cookie.
package session

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName 会话 cookie 名称。
	CookieName = "hp_session"
	// DefaultTTL 会话固定有效期。
	DefaultTTL = 24 * time.Hour
)

// ErrSecretRequired 签名密钥为空。
var ErrSecretRequired = errors.New("session secret is required")

// Claims 是会话令牌中携带的信息。
type Claims struct {
	UserID    uint
	ExpiresAt time.Time
}

// Manager 负责签发与校验 HS256 令牌。令牌只签名不加密。
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager 构造 Manager。
func NewManager(secret string, ttl time.Duration, secure bool) (*Manager, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}, nil
}

// WithClock 在测试中替换时钟。
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// TTL 返回会话有效期。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue 为用户签发令牌。
func (m *Manager) Issue(userID uint) (string, time.Time, error) {
	issuedAt := m.now()
	expires := issuedAt.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse 校验签名与过期时间。篡改、过期或格式错误一律返回 nil，不向调用方抛错。
func (m *Manager) Parse(raw string) *Claims {
	if raw == "" {
		return nil
	}

	var registered jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &registered, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil
	}

	id, err := strconv.ParseUint(registered.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil
	}

	claims := &Claims{UserID: uint(id)}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims
}

// SetCookie 写入会话 cookie：httponly、path=/、SameSite=Lax，生产环境附加 Secure。
func (m *Manager) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
		MaxAge:   int(m.ttl.Seconds()),
	})
}

// ClearCookie 删除会话 cookie。
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// FromRequest 读取并校验请求中的会话。
func (m *Manager) FromRequest(r *http.Request) *Claims {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	return m.Parse(cookie.Value)
}
