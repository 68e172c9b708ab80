package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/metrics"
	"golang.org/x/time/rate"
)

// 超过该时长未出现的 IP 会被清理
const limiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// loginLimiter 按客户端 IP 做令牌桶限流。
type loginLimiter struct {
	mu      sync.Mutex
	perIP   map[string]*ipLimiter
	limit   rate.Limit
	burst   int
	lastGC  time.Time
	nowFunc func() time.Time
}

func newLoginLimiter(perMinute int) *loginLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &loginLimiter{
		perIP:   make(map[string]*ipLimiter),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		nowFunc: time.Now,
	}
}

func (l *loginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if now.Sub(l.lastGC) > limiterIdleTTL {
		for key, entry := range l.perIP {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(l.perIP, key)
			}
		}
		l.lastGC = now
	}

	entry, ok := l.perIP[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.perIP[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// LimitLogin 限制单个 IP 的登录尝试频率，超限时返回 429 登录页。
func (a *API) LimitLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.loginLimiter == nil || a.loginLimiter.allow(c.ClientIP()) {
			c.Next()
			return
		}
		a.metrics.ObserveLogin(metrics.ResultThrottled)
		a.logger.WithField("ip", c.ClientIP()).Warn("login throttled")
		a.renderHTML(c, http.StatusTooManyRequests, "login.html", gin.H{
			"title":    a.text(c, msgSiteName),
			"error":    a.text(c, msgTooManyAttempts),
			"username": c.PostForm("username"),
			"next":     safeNext(c.PostForm("next")),
		})
		c.Abort()
	}
}
