package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/logging"
	"github.com/sirupsen/logrus"
)

const principalContextKey = "__principal"

// LoadSession 解析会话 cookie 并加载当前用户；无效或未审批的会话会被清除。
func (a *API) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := a.sessions.FromRequest(c.Request)
		if claims == nil {
			c.Next()
			return
		}
		p, err := a.auth.Principal(claims.UserID)
		switch {
		case err == nil:
			c.Set(principalContextKey, p)
		case errors.Is(err, access.ErrUnauthenticated):
			a.sessions.ClearCookie(c.Writer)
		default:
			logging.LogError(a.logger, "handler", "LoadSession", "load principal", logrus.Fields{
				"user_id": claims.UserID,
			}, err)
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) *access.Principal {
	value, ok := c.Get(principalContextKey)
	if !ok {
		return nil
	}
	p, _ := value.(*access.Principal)
	return p
}

// RequireAuth 页面路由：未登录时跳转登录页。
func (a *API) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentPrincipal(c) == nil {
			target := "/login"
			if c.Request.Method == http.MethodGet {
				target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			}
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAuthJSON JSON 路由：未登录时返回 401。
func (a *API) RequireAuthJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentPrincipal(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Result{Success: false, Message: a.text(c, msgUnauthorized)})
			return
		}
		c.Next()
	}
}

// RequireCapability 在进入处理函数前做与地点无关的能力检查。
func (a *API) RequireCapability(capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := access.Authorize(currentPrincipal(c), capability, 0); err != nil {
			if wantsJSON(c) {
				c.AbortWithStatusJSON(statusForError(err), Result{Success: false, Message: a.errorMessage(c, err)})
				return
			}
			a.renderError(c, statusForError(err), a.errorMessage(c, err))
			c.Abort()
			return
		}
		c.Next()
	}
}

func wantsJSON(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet {
		return true
	}
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

func (a *API) renderError(c *gin.Context, status int, message string) {
	a.renderHTML(c, status, "error.html", gin.H{
		"title":   a.text(c, msgSiteName),
		"status":  status,
		"message": message,
	})
}

// NotFound 404 页面。
func (a *API) NotFound(c *gin.Context) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusNotFound, Result{Success: false, Message: a.text(c, msgNotFound)})
		return
	}
	a.renderError(c, http.StatusNotFound, a.text(c, msgNotFound))
}
