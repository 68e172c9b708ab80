package handler

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/locale"
)

const (
	localeContextKey   = "hp.locale"
	languageCookieName = "hp_lang"
	// 一年
	languageCookieMaxAge = 365 * 24 * 60 * 60
)

// languageChoice 记录语言来自哪里，只有显式 ?lang= 才写回 cookie。
type languageChoice struct {
	language string
	explicit bool
}

// LocaleMiddleware 在请求开始时确定界面语言，并声明响应随语言变化。
func (a *API) LocaleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		pref := a.requestLocale(c)
		c.Header("Content-Language", pref.HTMLLang)

		vary := []string{"Accept-Language"}
		if _, err := c.Cookie(languageCookieName); err == nil || c.Query("lang") != "" {
			vary = append(vary, "Cookie")
		}
		mergeVary(c.Writer.Header(), vary...)
		c.Next()
	}
}

func (a *API) requestLocale(c *gin.Context) locale.Preference {
	if v, ok := c.Get(localeContextKey); ok {
		return v.(locale.Preference)
	}
	choice := a.chooseLanguage(c)
	pref := locale.PreferenceForLanguage(choice.language)
	if choice.explicit {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     languageCookieName,
			Value:    pref.Language,
			Path:     "/",
			MaxAge:   languageCookieMaxAge,
			HttpOnly: true,
			Secure:   a.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	c.Set(localeContextKey, pref)
	return pref
}

func (a *API) language(c *gin.Context) string {
	return a.requestLocale(c).Language
}

// resolveLanguage 顺序：?lang= > cookie > Accept-Language > 配置默认值 > 泰语。
func (a *API) resolveLanguage(c *gin.Context) (string, bool) {
	choice := a.chooseLanguage(c)
	return choice.language, choice.explicit
}

func (a *API) chooseLanguage(c *gin.Context) languageChoice {
	if lang := locale.NormalizeLanguage(c.Query("lang")); lang != "" {
		return languageChoice{language: lang, explicit: true}
	}
	if raw, err := c.Cookie(languageCookieName); err == nil {
		if lang := locale.NormalizeLanguage(raw); lang != "" {
			return languageChoice{language: lang}
		}
	}
	if lang := locale.LanguageFromAcceptLanguage(c.GetHeader("Accept-Language")); lang != "" {
		return languageChoice{language: lang}
	}
	return languageChoice{language: locale.Resolve(a.defaultLanguage)}
}

// buildLanguageSwitch 生成保留当前查询参数的切换链接。
func buildLanguageSwitch(c *gin.Context) map[string]string {
	target := url.URL{Path: "/"}
	if c.Request != nil && c.Request.URL != nil {
		target.Path = c.Request.URL.Path
		target.RawQuery = c.Request.URL.RawQuery
	}
	query := target.Query()

	links := map[string]string{}
	for _, lang := range []string{locale.LanguageThai, locale.LanguageEnglish} {
		query.Set("lang", lang)
		links[lang] = target.Path + "?" + query.Encode()
	}
	return links
}

func mergeVary(h http.Header, values ...string) {
	var merged []string
	for _, item := range append(strings.Split(h.Get("Vary"), ","), values...) {
		item = strings.TrimSpace(item)
		if item != "" && !slices.Contains(merged, item) {
			merged = append(merged, item)
		}
	}
	if len(merged) > 0 {
		h.Set("Vary", strings.Join(merged, ", "))
	}
}
