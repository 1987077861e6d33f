package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/givers/contacts/internal/service"
	"github.com/givers/contacts/internal/view"
)

// RootHandler serves the root route: the sidebar loader and the create action.
type RootHandler struct {
	layout
}

// NewRootHandler creates a RootHandler.
func NewRootHandler(contacts service.ContactService, views *view.Renderer) *RootHandler {
	return &RootHandler{layout: layout{contacts: contacts, views: views}}
}

// Index handles GET /. It accepts an optional query parameter that filters
// the sidebar.
func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageIndex, &view.Page{})
}

// Create handles any non-GET method on /: it creates an empty contact and
// redirects to its edit form.
func (h *RootHandler) Create(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contacts.CreateEmptyContact(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("contact created", "id", contact.ID)
	http.Redirect(w, r, view.ContactHref(contact.ID)+"/edit", http.StatusFound)
}

// NotFound renders the error page for paths no route matches.
func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "")
}

// RateLimited renders the error page for a throttled create action.
func (h *RootHandler) RateLimited(w http.ResponseWriter, r *http.Request, _ time.Duration) {
	h.renderError(w, r, http.StatusTooManyRequests, "too many new contacts, try again shortly")
}
