package email

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/aymerick/raymond"
)

//go:embed templates/*.hbs
var templateFS embed.FS

// Rendered is the output of one template pair
type Rendered struct {
	HTML string
	Text string
}

// TemplateService renders the Handlebars email templates. All templates are
// parsed once at construction.
type TemplateService struct {
	html map[string]*raymond.Template
	text map[string]*raymond.Template
}

// NewTemplateService parses every embedded template
func NewTemplateService() (*TemplateService, error) {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	svc := &TemplateService{
		html: make(map[string]*raymond.Template),
		text: make(map[string]*raymond.Template),
	}

	for _, entry := range entries {
		file := entry.Name()
		source, err := templateFS.ReadFile("templates/" + file)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", file, err)
		}

		tmpl, err := raymond.Parse(string(source))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}

		switch {
		case strings.HasSuffix(file, ".html.hbs"):
			svc.html[strings.TrimSuffix(file, ".html.hbs")] = tmpl
		case strings.HasSuffix(file, ".txt.hbs"):
			svc.text[strings.TrimSuffix(file, ".txt.hbs")] = tmpl
		}
	}

	return svc, nil
}

// Render executes the html and text templates registered under name
func (s *TemplateService) Render(name string, data map[string]any) (*Rendered, error) {
	html, ok := s.html[name]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}

	out := &Rendered{}
	var err error
	if out.HTML, err = html.Exec(data); err != nil {
		return nil, fmt.Errorf("failed to render %s html: %w", name, err)
	}

	if text, ok := s.text[name]; ok {
		if out.Text, err = text.Exec(data); err != nil {
			return nil, fmt.Errorf("failed to render %s text: %w", name, err)
		}
		out.Text = strings.TrimSpace(out.Text)
	}

	return out, nil
}
