package frontend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/youssefsiam38/roverpanel"
)

// renderer handles template rendering.
type renderer struct {
	baseTemplate *template.Template // Base template with layout and fragments
	templatesFS  fs.FS              // Embedded filesystem for page templates
	config       *Config
}

// newRenderer creates a new renderer.
func newRenderer(baseTemplate *template.Template, templatesFS fs.FS, cfg *Config) *renderer {
	return &renderer{
		baseTemplate: baseTemplate,
		templatesFS:  templatesFS,
		config:       cfg,
	}
}

// PageData contains common data for all pages.
type PageData struct {
	Title           string
	BasePath        string
	CurrentPath     string
	ReadOnly        bool
	RefreshInterval int // in seconds
	Data            any
}

// render renders a page inside the base layout.
// It clones the base template and parses the page-specific template into it,
// avoiding conflicts between "content" blocks in different pages.
func (r *renderer) render(w http.ResponseWriter, req *http.Request, name, title string, data any) error {
	pageData := PageData{
		Title:           title,
		BasePath:        r.config.BasePath,
		CurrentPath:     req.URL.Path,
		ReadOnly:        r.config.ReadOnly,
		RefreshInterval: int(r.config.RefreshInterval.Seconds()),
		Data:            data,
	}

	tmpl, err := r.baseTemplate.Clone()
	if err != nil {
		return fmt.Errorf("clone template: %w", err)
	}

	pageTemplatePath := "templates/" + name
	if _, err := tmpl.ParseFS(r.templatesFS, pageTemplatePath); err != nil {
		return fmt.Errorf("parse page template %s: %w", pageTemplatePath, err)
	}

	return execute(w, tmpl, "base", pageData)
}

// renderFragment renders a fragment (no layout). Fragments define their
// template name as their path (e.g. "fragments/status.html").
// The base is cloned since an executed html/template can no longer be cloned.
func (r *renderer) renderFragment(w http.ResponseWriter, name string, data any) error {
	tmpl, err := r.baseTemplate.Clone()
	if err != nil {
		return fmt.Errorf("clone template: %w", err)
	}
	return execute(w, tmpl, name, data)
}

// execute buffers the output so a template error still yields a clean 500.
func execute(w http.ResponseWriter, tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// Template helper functions

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return roverpanel.FormatTime(t, loc)
}

// toneStyle renders a status tone as an inline color.
func toneStyle(tone roverpanel.Tone) template.CSS {
	if tone == "" {
		tone = roverpanel.ToneNeutral
	}
	return template.CSS("color: " + string(tone))
}

func jsonEncode(v any) string {
	// Payloads are already JSON; re-indent instead of quoting them.
	if s, ok := v.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return s
		}
		v = parsed
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

var (
	md       = goldmark.New()
	mdPolicy = bluemonday.UGCPolicy()
)

// markdown renders text as sanitized HTML.
func markdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(mdPolicy.SanitizeBytes(buf.Bytes()))
}

// payload renders an event payload as a highlighted JSON block.
func payload(v any) template.HTML {
	return markdown("```json\n" + jsonEncode(v) + "\n```")
}

func add(a, b int) int {
	return a + b
}

func defaultVal(val, def any) any {
	if val == nil {
		return def
	}
	switch v := val.(type) {
	case string:
		if v == "" {
			return def
		}
	case int:
		if v == 0 {
			return def
		}
	}
	return val
}
