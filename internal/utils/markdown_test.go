package utils

import (
	"strings"
	"testing"
)

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := string(RenderMarkdown("**bold** <script>alert(1)</script>"))
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Fatalf("markdown not rendered: %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("script survived sanitising: %s", out)
	}
}

func TestRenderMarkdownLazyImages(t *testing.T) {
	out := string(RenderMarkdown("![cat](https://cdn.example.com/cat.png)"))
	if !strings.Contains(out, `loading="lazy"`) {
		t.Fatalf("image not enhanced: %s", out)
	}
}

func TestRenderMarkdownEmbedsVideo(t *testing.T) {
	out := string(RenderMarkdown("https://www.youtube.com/watch?v=abc123"))
	if !strings.Contains(out, "youtube.com/embed/abc123") {
		t.Fatalf("youtube link not embedded: %s", out)
	}

	out = string(RenderMarkdown("https://cdn.example.com/clip.mp4"))
	if !strings.Contains(out, "<video") {
		t.Fatalf("video file not embedded: %s", out)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("# Title\n\nSome *emphasis* & [a link](https://example.com)")
	if got != "Title Some emphasis & a link" {
		t.Fatalf("got %q", got)
	}
}
