package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Iron-Ham/olx/internal/errors"
	"github.com/Iron-Ham/olx/internal/tempurl"
)

// TimestampFormat is the layout produced by the date helper.
const TimestampFormat = "2006-01-02T15:04:05Z"

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Footnote,
	),
)

// helpers holds the state the template functions need.
type helpers struct {
	courseDir string
	signer    *tempurl.Signer
}

func (h *helpers) funcMap() template.FuncMap {
	return template.FuncMap{
		"suffix":       Suffix,
		"date":         Date,
		"markdown":     Markdown,
		"markdownFile": h.markdownFile,
		"tempurl":      h.tempurl,
	}
}

// Suffix formats an optional display-name suffix: " (s)", or "" when s is empty.
func Suffix(s string) string {
	if s == "" {
		return ""
	}
	return " (" + s + ")"
}

// Date formats t as a UTC timestamp.
func Date(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Markdown converts an indented markdown block to HTML. A single leading
// newline is dropped and common indentation removed first, so blocks can be
// written inline in templates.
func Markdown(content string) (string, error) {
	content = strings.TrimPrefix(content, "\n")
	content = dedent(content)

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", errors.Wrap(err, "markdown")
	}
	return buf.String(), nil
}

func (h *helpers) markdownFile(name string) (string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.courseDir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "markdownFile %s", name)
	}
	return Markdown(string(data))
}

func (h *helpers) tempurl(path string, expires time.Time) (string, error) {
	if h.signer == nil {
		return "", tempurl.ErrNotConfigured
	}
	return h.signer.URL(path, expires)
}

// dedent removes the longest whitespace prefix shared by all non-blank lines.
// Blank lines are normalized to empty.
func dedent(s string) string {
	lines := strings.Split(s, "\n")

	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix = indent
			first = false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
