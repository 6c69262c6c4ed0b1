package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"dropoutpredictor/internal/logger"
	"dropoutpredictor/internal/model"
	"dropoutpredictor/internal/service"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData feeds templates/index.html. Result is nil on error.
type pageData struct {
	Help         template.HTML
	Error        string
	Missing      []string
	Required     []string
	Result       *model.Result
	Preview      []model.Record
	DownloadURL  template.URL
	DownloadName string
}

// Page renders the single upload page.
type Page struct {
	tmpl        *template.Template
	help        template.HTML
	previewRows int
	log         *logger.Logger
}

func NewPage(previewRows int, log *logger.Logger) (*Page, error) {
	funcMap := template.FuncMap{
		"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Page{
		tmpl:        tmpl,
		help:        renderHelp(model.StudentFields),
		previewRows: previewRows,
		log:         log,
	}, nil
}

// renderHelp turns field descriptions into the input format section.
func renderHelp(fields []model.Field) template.HTML {
	var md strings.Builder
	md.WriteString("Your CSV or Excel file should contain the following columns:\n\n")
	for _, f := range fields {
		fmt.Fprintf(&md, "- **%s**: %s\n", f.Name, f.Description)
	}

	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return template.HTML(markdown.ToHTML([]byte(md.String()), p, r))
}

func (p *Page) form() pageData {
	return pageData{Help: p.help, Required: model.RequiredColumns()}
}

func (p *Page) withResult(result *model.Result) pageData {
	data := p.form()
	data.Result = result
	data.Preview = result.Input.Head(p.previewRows)
	data.DownloadURL = template.URL(result.DownloadURI)
	data.DownloadName = service.ExportFileName
	return data
}

func (p *Page) withError(message string, missing []string) pageData {
	data := p.form()
	data.Error = message
	data.Missing = missing
	return data
}

// render executes into a buffer first so a template failure never leaves a
// half-written page.
func (p *Page) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		p.log.Error("template error: %v", err)
		http.Error(w, "Template rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		p.log.Warn("error writing page: %v", err)
	}
}
