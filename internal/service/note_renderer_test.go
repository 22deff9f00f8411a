package service

import (
	"strings"
	"testing"
)

func TestRenderNoteHTML(t *testing.T) {
	html, err := RenderNoteHTML("今天 **很顺利**，完成了全部动作")
	if err != nil {
		t.Fatalf("RenderNoteHTML returned error: %v", err)
	}
	if !strings.Contains(html, "<strong>很顺利</strong>") {
		t.Fatalf("expected bold rendering, got %s", html)
	}
}

func TestRenderNoteHTMLSanitizesScript(t *testing.T) {
	html, err := RenderNoteHTML("备注<script>alert(1)</script>")
	if err != nil {
		t.Fatalf("RenderNoteHTML returned error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("expected script stripped, got %s", html)
	}
}

func TestRenderNoteHTMLEmpty(t *testing.T) {
	html, err := RenderNoteHTML("")
	if err != nil {
		t.Fatalf("RenderNoteHTML returned error: %v", err)
	}
	if html != "" {
		t.Fatalf("expected empty output, got %s", html)
	}
}
