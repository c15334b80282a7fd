package render

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Iron-Ham/olx/internal/config"
	"github.com/Iron-Ham/olx/internal/errors"
	"github.com/Iron-Ham/olx/internal/run"
	"github.com/Iron-Ham/olx/internal/tempurl"
)

func testContext() run.Context {
	return run.Context{
		RunName:   "fall2019",
		StartDate: time.Date(2019, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2019, 12, 15, 23, 59, 59, 0, time.UTC),
		Suffix:    "Online",
		IsPublic:  true,
	}
}

func templateSet(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestRenderer_DefaultTemplates(t *testing.T) {
	course := t.TempDir()

	result, err := NewFromDir(course, "").Render(testContext())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if want := []string{"course/fall2019.xml"}; !reflect.DeepEqual(result.Files, want) {
		t.Errorf("Files = %v, want %v", result.Files, want)
	}

	got := readFile(t, filepath.Join(course, "course", "fall2019.xml"))
	for _, want := range []string{
		`url_name="fall2019"`,
		`display_name="fall2019 (Online)"`,
		`start="2019-09-01T00:00:00Z"`,
		`end="2019-12-15T23:59:59Z"`,
		`catalog_visibility="both"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered course missing %s:\n%s", want, got)
		}
	}
}

func TestRenderer_PrivateRunWithoutSuffix(t *testing.T) {
	course := t.TempDir()
	ctx := testContext()
	ctx.Suffix = ""
	ctx.IsPublic = false

	if _, err := NewFromDir(course, "").Render(ctx); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	got := readFile(t, filepath.Join(course, "course", "fall2019.xml"))
	if !strings.Contains(got, `display_name="fall2019"`) {
		t.Errorf("display name should have no suffix:\n%s", got)
	}
	if !strings.Contains(got, `catalog_visibility="none"`) {
		t.Errorf("private run should be hidden:\n%s", got)
	}
}

func TestRenderer_TemplateDirectory(t *testing.T) {
	course := t.TempDir()
	tmplDir := t.TempDir()
	files := map[string]string{
		ManifestName: `templates:
  - source: course.xml.tmpl
    target: "course/{{ .RunName }}.xml"
  - source: about/overview.html.tmpl
    target: "about/{{ .RunName }}/overview.html"
`,
		"course.xml.tmpl":          `<course url_name="{{ .RunName }}"/>`,
		"about/overview.html.tmpl": `{{ markdownFile "overview.md" }}`,
	}
	for name, content := range files {
		path := filepath.Join(tmplDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(course, "overview.md"), []byte("# Welcome\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := NewFromDir(course, tmplDir).Render(testContext())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := []string{"course/fall2019.xml", "about/fall2019/overview.html"}
	if !reflect.DeepEqual(result.Files, want) {
		t.Errorf("Files = %v, want %v", result.Files, want)
	}
	if got := readFile(t, filepath.Join(course, "about", "fall2019", "overview.html")); !strings.Contains(got, "<h1>Welcome</h1>") {
		t.Errorf("overview = %q", got)
	}
}

func TestRenderer_FailureWritesNothing(t *testing.T) {
	course := t.TempDir()
	set := templateSet(map[string]string{
		ManifestName: `templates:
  - source: good.tmpl
    target: good.xml
  - source: bad.tmpl
    target: bad.xml
`,
		"good.tmpl": "fine\n",
		"bad.tmpl":  "line one\nline two\n{{ .Nope }}\nline four\n",
	})

	_, err := New(course, set).Render(testContext())
	if err == nil {
		t.Fatal("Render() should fail")
	}

	var renderErr *errors.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("error = %T, want *RenderError", err)
	}
	if renderErr.Template != "bad.tmpl" || renderErr.Line != 3 {
		t.Errorf("location = %s:%d, want bad.tmpl:3", renderErr.Template, renderErr.Line)
	}
	for _, want := range []string{`"bad.tmpl" at line 3`, "Nope", "> 3 | {{ .Nope }}", "  1 | line one"} {
		if !strings.Contains(renderErr.Trace, want) {
			t.Errorf("trace missing %q:\n%s", want, renderErr.Trace)
		}
	}

	if _, statErr := os.Stat(filepath.Join(course, "good.xml")); !os.IsNotExist(statErr) {
		t.Error("no file may be written when any template fails")
	}
}

func TestRenderer_WriteFailureRollsBack(t *testing.T) {
	course := t.TempDir()
	for name, content := range map[string]string{"existing.txt": "old\n", "blocked": "not a directory\n"} {
		if err := os.WriteFile(filepath.Join(course, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	set := templateSet(map[string]string{
		ManifestName: `templates:
  - source: a.tmpl
    target: fresh/nested/a.txt
  - source: c.tmpl
    target: existing.txt
  - source: b.tmpl
    target: blocked/b.txt
`,
		"a.tmpl": "new\n",
		"b.tmpl": "unreachable\n",
		"c.tmpl": "replaced\n",
	})

	result, err := New(course, set).Render(testContext())
	var renderErr *errors.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("Render() error = %v, want *RenderError", err)
	}
	if !strings.Contains(renderErr.Trace, `Error writing "blocked/b.txt"`) {
		t.Errorf("trace = %q", renderErr.Trace)
	}
	if len(result.Files) != 0 {
		t.Errorf("Files = %v, want none", result.Files)
	}

	if _, statErr := os.Stat(filepath.Join(course, "fresh")); !os.IsNotExist(statErr) {
		t.Error("directories created before the failure should be removed")
	}
	if got := readFile(t, filepath.Join(course, "existing.txt")); got != "old\n" {
		t.Errorf("existing.txt = %q, want its previous content", got)
	}
}

func TestRenderer_Errors(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string]string
		wantTrace string
	}{
		{
			name:      "missing manifest",
			files:     map[string]string{"a.tmpl": "x"},
			wantTrace: "Error loading template set",
		},
		{
			name: "parse error",
			files: map[string]string{
				ManifestName: "templates:\n  - source: a.tmpl\n    target: a.xml\n",
				"a.tmpl":     "ok\n{{ nope }}\n",
			},
			wantTrace: `function "nope" not defined`,
		},
		{
			name: "missing source",
			files: map[string]string{
				ManifestName: "templates:\n  - source: gone.tmpl\n    target: a.xml\n",
			},
			wantTrace: `Error reading template "gone.tmpl"`,
		},
		{
			name: "target escapes course",
			files: map[string]string{
				ManifestName: "templates:\n  - source: a.tmpl\n    target: \"../{{ .RunName }}.xml\"\n",
				"a.tmpl":     "x",
			},
			wantTrace: "outside the course directory",
		},
		{
			name: "absolute target",
			files: map[string]string{
				ManifestName: "templates:\n  - source: a.tmpl\n    target: /etc/a.xml\n",
				"a.tmpl":     "x",
			},
			wantTrace: "outside the course directory",
		},
		{
			name: "duplicate target",
			files: map[string]string{
				ManifestName: "templates:\n  - source: a.tmpl\n    target: same.xml\n  - source: b.tmpl\n    target: same.xml\n",
				"a.tmpl":     "a",
				"b.tmpl":     "b",
			},
			wantTrace: `both render "same.xml"`,
		},
		{
			name: "tempurl without storage",
			files: map[string]string{
				ManifestName: "templates:\n  - source: a.tmpl\n    target: a.xml\n",
				"a.tmpl":     `{{ tempurl "/a.pdf" .EndDate }}`,
			},
			wantTrace: "not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(t.TempDir(), templateSet(tt.files)).Render(testContext())
			if err == nil {
				t.Fatal("Render() should fail")
			}
			var renderErr *errors.RenderError
			if !errors.As(err, &renderErr) {
				t.Fatalf("error = %T, want *RenderError", err)
			}
			if !strings.Contains(renderErr.Trace, tt.wantTrace) {
				t.Errorf("trace = %q, want it to contain %q", renderErr.Trace, tt.wantTrace)
			}
		})
	}
}

func TestRenderer_TempURL(t *testing.T) {
	course := t.TempDir()
	set := templateSet(map[string]string{
		ManifestName: "templates:\n  - source: a.tmpl\n    target: a.txt\n",
		"a.tmpl":     `{{ tempurl "/handout.pdf" .EndDate }}`,
	})
	signer := tempurl.NewSigner(config.StorageConfig{
		Endpoint:  "https://objects.example.com",
		Path:      "/v1/AUTH_course/assets",
		SecretKey: "s3cr3t",
	})
	ctx := testContext()
	ctx.EndDate = time.Now().Add(24 * time.Hour)

	if _, err := New(course, set, WithSigner(signer)).Render(ctx); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	got := readFile(t, filepath.Join(course, "a.txt"))
	if !strings.HasPrefix(got, "https://objects.example.com/v1/AUTH_course/assets/handout.pdf?") {
		t.Errorf("tempurl = %q", got)
	}
	if !strings.Contains(got, "temp_url_sig=") {
		t.Errorf("tempurl = %q, want a signature", got)
	}
}

func TestExcerpt(t *testing.T) {
	src := "a\nb\nc\nd\ne\nf\n"

	got := excerpt(src, 1)
	want := "> 1 | a\n  2 | b\n  3 | c\n"
	if got != want {
		t.Errorf("excerpt(line 1) = %q, want %q", got, want)
	}

	got = excerpt(src, 6)
	want = "  4 | d\n  5 | e\n> 6 | f\n"
	if got != want {
		t.Errorf("excerpt(line 6) = %q, want %q", got, want)
	}

	if got := excerpt(src, 99); got != "" {
		t.Errorf("excerpt(out of range) = %q, want empty", got)
	}
}
