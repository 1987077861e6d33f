// Package view renders the HTML pages and serves the static assets.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/givers/contacts/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names.
const (
	PageIndex   = "index.html"
	PageContact = "contact.html"
	PageEdit    = "edit.html"
	PageError   = "error.html"
)

// Page is the data passed to every template.
type Page struct {
	Title     string
	Root      RootData
	Path      string // current URL path; drives the active sidebar link
	CSRFToken string

	Contact *model.Contact
	Error   *ErrorData
}

// ErrorData describes a failed request.
type ErrorData struct {
	Status  int
	Message string
}

func (e *ErrorData) StatusText() string { return http.StatusText(e.Status) }

var funcs = template.FuncMap{
	"searchValue":   SearchValue,
	"searchReplace": SearchReplace,
	"isActive":      IsActive,
	"contactHref":   ContactHref,
}

// Renderer holds one parsed template set per page, each combined with the layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageIndex, PageContact, PageEdit, PageError} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render executes page into a buffer first, so a template error never leaves
// a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data *Page) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("view: unknown page %q", page)
	}
	if data.Root.Contacts == nil {
		data.Root.Contacts = []*model.Contact{}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("view: render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheet and client script.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServerFS(sub)
}
