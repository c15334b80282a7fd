// Package render materializes a run's course files from a template set.
//
// A template set is a directory (or embedded tree) with a templates.yaml
// manifest listing source templates and the course-relative files they
// produce. Rendering is all-or-nothing: every template is executed in memory
// before any file is written, so a failing template leaves the course tree
// untouched, and a failed write restores the files and removes the
// directories written before it.
//
// Templates use text/template with these functions:
//
//	suffix s          " (s)" or ""
//	date t            2006-01-02T15:04:05Z
//	markdown s        markdown to HTML
//	markdownFile p    markdown file (relative to the course directory) to HTML
//	tempurl p t       signed object storage URL for p, expiring at t
package render

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/Iron-Ham/olx/internal/errors"
	"github.com/Iron-Ham/olx/internal/logging"
	"github.com/Iron-Ham/olx/internal/run"
	"github.com/Iron-Ham/olx/internal/tempurl"
)

//go:embed defaults
var defaultFS embed.FS

// excerptRadius is the number of source lines shown on each side of the
// failing line in a render trace.
const excerptRadius = 2

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(defaultFS, "defaults")
	if err != nil {
		panic(err) // embedded tree is fixed at build time
	}
	return sub
}

// Result lists the files produced by a successful render.
type Result struct {
	// Files are course-relative paths using forward slashes, in manifest order.
	Files []string
}

// Renderer renders a template set into a course directory.
type Renderer struct {
	courseDir string
	templates fs.FS
	helpers   *helpers
	logger    *logging.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSigner enables the tempurl helper.
func WithSigner(s *tempurl.Signer) Option {
	return func(r *Renderer) { r.helpers.signer = s }
}

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// New creates a Renderer writing into courseDir from the given template set.
func New(courseDir string, templates fs.FS, opts ...Option) *Renderer {
	r := &Renderer{
		courseDir: courseDir,
		templates: templates,
		helpers:   &helpers{courseDir: courseDir},
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromDir creates a Renderer for a template directory on disk, or for the
// built-in set when dir is empty.
func NewFromDir(courseDir, dir string, opts ...Option) *Renderer {
	templates := DefaultTemplates()
	if dir != "" {
		templates = os.DirFS(dir)
	}
	return New(courseDir, templates, opts...)
}

type rendered struct {
	target  string
	content []byte
}

// Render executes every template of the set against ctx and writes the
// results. Any failure is returned as an *errors.RenderError whose trace
// locates the problem.
func (r *Renderer) Render(ctx run.Context) (Result, error) {
	manifest, err := LoadManifest(r.templates)
	if err != nil {
		return Result{}, errors.NewRenderError(ManifestName, err).
			WithTrace(fmt.Sprintf("Error loading template set: %v\n", err))
	}

	outputs := make([]rendered, 0, len(manifest.Templates))
	targets := make(map[string]string, len(manifest.Templates))
	for _, entry := range manifest.Templates {
		out, err := r.renderEntry(entry, ctx)
		if err != nil {
			return Result{}, err
		}
		if prev, ok := targets[out.target]; ok {
			return Result{}, errors.NewRenderError(entry.Source, nil).
				WithTrace(fmt.Sprintf("Templates %q and %q both render %q\n", prev, entry.Source, out.target))
		}
		targets[out.target] = entry.Source
		outputs = append(outputs, out)
	}

	var undo []func() error
	rollback := func(target string, err error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			if uerr := undo[i](); uerr != nil {
				r.logger.Warn("rollback step failed", "error", uerr)
			}
		}
		return writeError(target, err)
	}

	result := Result{Files: make([]string, 0, len(outputs))}
	for _, out := range outputs {
		path := filepath.Join(r.courseDir, filepath.FromSlash(out.target))
		dir := filepath.Dir(path)
		if top := firstMissingDir(dir); top != "" {
			undo = append(undo, func() error { return os.RemoveAll(top) })
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Result{}, rollback(out.target, err)
		}
		if prev, err := os.ReadFile(path); err == nil {
			undo = append(undo, func() error { return os.WriteFile(path, prev, 0644) })
		} else {
			undo = append(undo, func() error { return os.Remove(path) })
		}
		if err := os.WriteFile(path, out.content, 0644); err != nil {
			return Result{}, rollback(out.target, err)
		}
		r.logger.Debug("rendered file", "target", out.target, "bytes", len(out.content))
		result.Files = append(result.Files, out.target)
	}
	return result, nil
}

// firstMissingDir returns the outermost ancestor of dir (dir included) that
// does not exist yet, or "" when dir exists.
func firstMissingDir(dir string) string {
	missing := ""
	for {
		if _, err := os.Lstat(dir); err == nil {
			return missing
		}
		missing = dir
		parent := filepath.Dir(dir)
		if parent == dir {
			return missing
		}
		dir = parent
	}
}

func (r *Renderer) renderEntry(entry Entry, ctx run.Context) (rendered, error) {
	rawTarget, err := r.execute("target of "+entry.Source, entry.Target, ctx)
	if err != nil {
		return rendered{}, err
	}
	target := strings.TrimSpace(string(rawTarget))
	if !filepath.IsLocal(filepath.FromSlash(target)) {
		return rendered{}, errors.NewRenderError(entry.Source, nil).
			WithTrace(fmt.Sprintf("Template %q renders to %q, which is outside the course directory\n", entry.Source, target))
	}

	src, err := fs.ReadFile(r.templates, entry.Source)
	if err != nil {
		return rendered{}, errors.NewRenderError(entry.Source, err).
			WithTrace(fmt.Sprintf("Error reading template %q: %v\n", entry.Source, err))
	}

	content, err := r.execute(entry.Source, string(src), ctx)
	if err != nil {
		return rendered{}, err
	}
	return rendered{target: filepath.ToSlash(filepath.Clean(target)), content: content}, nil
}

func (r *Renderer) execute(name, src string, ctx run.Context) ([]byte, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(r.helpers.funcMap()).
		Parse(src)
	if err != nil {
		return nil, traceError(name, src, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, traceError(name, src, err)
	}
	return buf.Bytes(), nil
}

// templateLocation matches the "template: NAME:LINE" prefix text/template
// puts on parse and execution errors.
var templateLocation = regexp.MustCompile(`template: (.+?):(\d+)(?::\d+)?:`)

func traceError(name, src string, err error) *errors.RenderError {
	renderErr := errors.NewRenderError(name, err)

	line := 0
	if m := templateLocation.FindStringSubmatch(err.Error()); m != nil {
		line, _ = strconv.Atoi(m[2])
	}

	var b strings.Builder
	if line > 0 {
		renderErr = renderErr.WithLine(line)
		fmt.Fprintf(&b, "Error rendering template %q at line %d:\n", name, line)
	} else {
		fmt.Fprintf(&b, "Error rendering template %q:\n", name)
	}
	fmt.Fprintf(&b, "  %v\n", err)
	if line > 0 {
		b.WriteString("\n")
		b.WriteString(excerpt(src, line))
	}
	return renderErr.WithTrace(b.String())
}

// excerpt returns the numbered source lines around line, marking line itself.
func excerpt(src string, line int) string {
	lines := strings.Split(strings.TrimSuffix(src, "\n"), "\n")
	if line > len(lines) {
		return ""
	}
	from := max(1, line-excerptRadius)
	to := min(len(lines), line+excerptRadius)
	width := len(strconv.Itoa(to))

	var b strings.Builder
	for n := from; n <= to; n++ {
		marker := " "
		if n == line {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %*d | %s\n", marker, width, n, lines[n-1])
	}
	return b.String()
}

func writeError(target string, err error) *errors.RenderError {
	return errors.NewRenderError(target, err).
		WithTrace(fmt.Sprintf("Error writing %q: %v\n", target, err))
}
