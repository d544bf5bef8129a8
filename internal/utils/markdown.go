package utils

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// 帖子和评论共用同一套 markdown 配置
var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	// ugc 用于正文展示，strict 用于生成纯文本摘要
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()

	entities = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", "\"", "&#39;", "'")
)

func init() {
	ugc.AllowImages()
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
	ugc.RequireNoReferrerOnLinks(true)
}

func toHTML(source string) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderMarkdown converts post or comment markdown into sanitised HTML.
// A conversion failure falls back to the escaped source.
func RenderMarkdown(source string) template.HTML {
	out, err := toHTML(source)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return EnhanceHTMLContent(string(ugc.SanitizeBytes(out)))
}

// PlainText 去掉全部标签并合并空白，用于列表摘要和 meta description
func PlainText(source string) string {
	out, err := toHTML(source)
	if err != nil {
		return strings.Join(strings.Fields(source), " ")
	}
	return strings.Join(strings.Fields(entities.Replace(strict.Sanitize(string(out)))), " ")
}
