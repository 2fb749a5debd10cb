package handler

import (
	"bytes"
	"strings"

	"github.com/linkpulse/internal/logging"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	bodyRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	bodyPolicy = bluemonday.UGCPolicy()
)

// renderBody 将 Markdown 正文渲染为经过清洗的 HTML
func renderBody(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := bodyRenderer.Convert([]byte(markdown), &buf); err != nil {
		logging.Warn().Err(err).Msg("markdown render failed, falling back to escaped text")
		return bodyPolicy.Sanitize(markdown)
	}
	return bodyPolicy.SanitizeReader(&buf).String()
}
