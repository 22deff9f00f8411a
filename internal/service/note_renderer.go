package service

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	noteMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	noteSanitizer = bluemonday.UGCPolicy()
)

// RenderNoteHTML 把会话备注的 Markdown 渲染为净化后的 HTML。
// 空备注返回空字符串。
func RenderNoteHTML(note string) (string, error) {
	if note == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := noteMarkdown.Convert([]byte(note), &buf); err != nil {
		return "", fmt.Errorf("render note: %w", err)
	}

	return noteSanitizer.Sanitize(buf.String()), nil
}
