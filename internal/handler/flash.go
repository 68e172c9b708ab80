package handler

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// FlashSessionName 是一次性提示所用的 cookie 会话名。
const FlashSessionName = "hp_flash"

// Flash 跨重定向显示一次的提示。
type Flash struct {
	Kind    string
	Message string
}

func flashKey(kind string) string {
	return "flash_" + kind
}

func setFlash(c *gin.Context, kind, message string) {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return
	}
	session := sessions.Default(c)
	session.AddFlash(message, flashKey(kind))
	_ = session.Save()
}

func popFlash(c *gin.Context) *Flash {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	session := sessions.Default(c)
	var flash *Flash
	for _, kind := range []string{"error", "success"} {
		values := session.Flashes(flashKey(kind))
		if flash == nil && len(values) > 0 {
			if message, ok := values[0].(string); ok {
				flash = &Flash{Kind: kind, Message: message}
			}
		}
	}
	if flash != nil {
		_ = session.Save()
	}
	return flash
}
