package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gubanews/internal/guba"
	"gubanews/internal/logging"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// MarkdownPath returns the per-code markdown file under dir.
func MarkdownPath(dir, code string) string {
	return filepath.Join(dir, code+".md")
}

// WriteMarkdown writes one document with a section per article. Bodies
// that still contain markup are converted to markdown; plain text
// passes through untouched.
func WriteMarkdown(path, code string, articles []guba.Article) error {
	timer := logging.StartTimer(logging.CategoryExport, "write markdown")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", code)
	for _, a := range articles {
		fmt.Fprintf(&sb, "## %s\n\n", a.Title)
		fmt.Fprintf(&sb, "- %s\n- <%s>\n\n", a.Published.Format(guba.TimeLayout), a.URL)
		if body := renderBody(a.Content); body != "" {
			sb.WriteString(body)
			sb.WriteString("\n\n")
		}
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logging.Export("wrote %d articles to %s", len(articles), path)
	return nil
}

func renderBody(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if !strings.Contains(content, "<") {
		return content
	}
	md, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(md)
}
