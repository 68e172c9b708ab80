package service

import (
	"bytes"
	htmlstd "html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	summaryMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	summaryPolicy = bluemonday.UGCPolicy()
	// 备注等自由文本只保留纯文本
	plainPolicy = bluemonday.StrictPolicy()
)

// RenderSummary 将 PHEOC 摘要 Markdown 渲染为已清洗的 HTML。
func RenderSummary(markdown string) template.HTML {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := summaryMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(markdown))
	}
	return template.HTML(summaryPolicy.SanitizeBytes(buf.Bytes()))
}

// CleanText 去除 HTML 并截断到 limit 个字符，limit<=0 表示不截断。
func CleanText(raw string, limit int) string {
	// StrictPolicy 会转义实体，模板渲染时还会再转义一次，这里先还原
	cleaned := strings.TrimSpace(htmlstd.UnescapeString(plainPolicy.Sanitize(raw)))
	if limit > 0 && utf8.RuneCountInString(cleaned) > limit {
		runes := []rune(cleaned)
		cleaned = strings.TrimSpace(string(runes[:limit]))
	}
	return cleaned
}
