package utils

import (
	"html/template"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const embedAllow = "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"

var videoExts = map[string]bool{".mp4": true, ".webm": true, ".mov": true}

// EnhanceHTMLContent 为图片增加懒加载属性，并把单独一行的视频链接转换为播放器
func EnhanceHTMLContent(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(text, "http") || strings.ContainsAny(text, " \n") {
			return
		}
		if embed := videoEmbed(text); embed != "" {
			s.ReplaceWithHtml(embed)
		}
	})

	out, _ := doc.Find("body").Html()
	if out == "" {
		out, _ = doc.Html()
	}
	return template.HTML(out)
}

// videoEmbed returns player markup for YouTube links and direct video files.
func videoEmbed(link string) string {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}

	var videoID string
	switch {
	case strings.HasSuffix(u.Host, "youtube.com") && u.Path == "/watch":
		videoID = u.Query().Get("v")
	case u.Host == "youtu.be":
		videoID = strings.Trim(u.Path, "/")
	}
	if videoID != "" {
		return `<div class="video-container"><iframe src="https://www.youtube.com/embed/` + url.PathEscape(videoID) +
			`" frameborder="0" allowfullscreen allow="` + embedAllow + `"></iframe></div>`
	}

	if videoExts[strings.ToLower(path.Ext(u.Path))] {
		return `<div class="video-container"><video controls preload="metadata" src="` + template.HTMLEscapeString(u.String()) + `"></video></div>`
	}
	return ""
}
