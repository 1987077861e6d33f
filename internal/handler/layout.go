package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/givers/contacts/internal/model"
	"github.com/givers/contacts/internal/repository"
	"github.com/givers/contacts/internal/service"
	"github.com/givers/contacts/internal/view"
	"github.com/givers/contacts/pkg/csrf"
)

// layout runs the root loader for every page and renders pages inside the
// shared sidebar layout.
type layout struct {
	contacts service.ContactService
	views    *view.Renderer
}

// load reads the optional query parameter and fetches the matching contacts.
func (l *layout) load(r *http.Request) (view.RootData, error) {
	q := view.QueryFromURL(r.URL)
	contacts, err := l.contacts.GetContacts(r.Context(), view.SearchValue(q))
	if err != nil {
		return view.RootData{}, err
	}
	if contacts == nil {
		contacts = []*model.Contact{}
	}
	return view.RootData{Contacts: contacts, Query: q}, nil
}

// wantsData reports whether the client asked for the loader payload instead
// of HTML.
func wantsData(r *http.Request) bool {
	if r.URL.Query().Get("_data") == "root" {
		return true
	}
	for _, v := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(v))
		if err == nil && mt == "application/json" {
			return true
		}
	}
	return false
}

// dataError is the body of a failed data request.
type dataError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// render loads the root data and renders page with status.
func (l *layout) render(w http.ResponseWriter, r *http.Request, status int, page string, p *view.Page) {
	root, err := l.load(r)
	if err != nil {
		l.fail(w, r, err)
		return
	}

	if wantsData(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(root)
		return
	}

	p.Root = root
	p.Path = r.URL.Path
	p.CSRFToken = csrf.Token(r.Context())
	if err := l.views.Render(w, status, page, p); err != nil {
		slog.Error("render failed", "error", err, "page", page, "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail renders the error page. ErrNotFound maps to 404, everything else to 500.
func (l *layout) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, ""
	if errors.Is(err, repository.ErrNotFound) {
		status, msg = http.StatusNotFound, "contact not found"
	} else {
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	}
	l.renderError(w, r, status, msg)
}

// renderError shows the error inside the layout, or as JSON for data
// requests. The page falls back to an empty sidebar when the contacts cannot
// be loaded either.
func (l *layout) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if wantsData(r) {
		if msg == "" {
			msg = http.StatusText(status)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(dataError{Status: status, Message: msg})
		return
	}

	p := &view.Page{
		Title:     http.StatusText(status),
		Path:      r.URL.Path,
		CSRFToken: csrf.Token(r.Context()),
		Error:     &view.ErrorData{Status: status, Message: msg},
	}
	if root, err := l.load(r); err == nil {
		p.Root = root
	}
	if err := l.views.Render(w, status, view.PageError, p); err != nil {
		slog.Error("render failed", "error", err, "page", view.PageError)
		http.Error(w, http.StatusText(status), status)
	}
}
