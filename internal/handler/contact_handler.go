package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"path"

	"github.com/givers/contacts/internal/model"
	"github.com/givers/contacts/internal/service"
	"github.com/givers/contacts/internal/storage"
	"github.com/givers/contacts/internal/view"
)

const maxAvatarSize = 2 << 20 // 2 MB

// MaxEditFormBytes bounds the edit form body: one avatar plus the text fields.
const MaxEditFormBytes = maxAvatarSize + 1<<20

var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ContactHandler serves the nested contact routes: detail, edit, favorite
// and destroy.
type ContactHandler struct {
	layout
	avatars storage.Storage
}

// NewContactHandler creates a ContactHandler. avatars may be nil, in which
// case uploaded files are ignored.
func NewContactHandler(contacts service.ContactService, views *view.Renderer, avatars storage.Storage) *ContactHandler {
	return &ContactHandler{layout: layout{contacts: contacts, views: views}, avatars: avatars}
}

// Show handles GET /contacts/{id}.
func (h *ContactHandler) Show(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contacts.GetContact(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageContact, &view.Page{Title: contact.FullName(), Contact: contact})
}

// Edit handles GET /contacts/{id}/edit.
func (h *ContactHandler) Edit(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contacts.GetContact(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageEdit, &view.Page{Title: "Edit " + contact.FullName(), Contact: contact})
}

// Favorite handles POST /contacts/{id} with favorite=true|false.
func (h *ContactHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	favorite := r.PostFormValue("favorite") == "true"
	if _, err := h.contacts.UpdateContact(r.Context(), id, model.ContactMutation{Favorite: &favorite}); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, view.ContactHref(id), http.StatusSeeOther)
}

// Update handles POST /contacts/{id}/edit. The form is multipart when an
// avatar file is attached; every text field is written, even when empty.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	current, err := h.contacts.GetContact(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderError(w, r, http.StatusBadRequest, "invalid form")
		return
	}

	first, last := r.PostFormValue("first"), r.PostFormValue("last")
	twitter, avatar, notes := r.PostFormValue("twitter"), r.PostFormValue("avatar"), r.PostFormValue("notes")
	m := model.ContactMutation{First: &first, Last: &last, Twitter: &twitter, Avatar: &avatar, Notes: &notes}

	uploaded, status, msg := h.saveAvatar(r, id)
	if status != 0 {
		h.renderError(w, r, status, msg)
		return
	}
	if uploaded != "" {
		m.Avatar = &uploaded
	}

	updated, err := h.contacts.UpdateContact(r.Context(), id, m)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if current.Avatar != updated.Avatar {
		h.deleteAvatar(r.Context(), current.Avatar)
	}
	http.Redirect(w, r, view.ContactHref(id), http.StatusFound)
}

// saveAvatar stores the optional avatar_file upload and returns its URL.
// A non-zero status reports a client or storage error.
func (h *ContactHandler) saveAvatar(r *http.Request, id string) (url string, status int, msg string) {
	if h.avatars == nil || r.MultipartForm == nil {
		return "", 0, ""
	}
	file, header, err := r.FormFile("avatar_file")
	if errors.Is(err, http.ErrMissingFile) {
		return "", 0, ""
	}
	if err != nil {
		return "", http.StatusBadRequest, "invalid avatar upload"
	}
	defer file.Close()

	if header.Size > maxAvatarSize {
		return "", http.StatusBadRequest, "avatar file too large"
	}
	ct := header.Header.Get("Content-Type")
	ext, ok := allowedAvatarTypes[ct]
	if !ok {
		return "", http.StatusBadRequest, "avatar must be a jpeg, png or webp image"
	}

	b := make([]byte, 16)
	_, _ = rand.Read(b)
	key := path.Join("avatars", id, hex.EncodeToString(b)+ext)
	url, err = h.avatars.Save(r.Context(), key, file, ct)
	if err != nil {
		slog.Error("avatar upload failed", "error", err, "contact_id", id)
		return "", http.StatusInternalServerError, ""
	}
	return url, 0, ""
}

// deleteAvatar removes a previously uploaded avatar. External URLs are left alone.
func (h *ContactHandler) deleteAvatar(ctx context.Context, url string) {
	if h.avatars == nil {
		return
	}
	key, ok := h.avatars.KeyFromURL(url)
	if !ok {
		return
	}
	if err := h.avatars.Delete(ctx, key); err != nil {
		slog.Warn("avatar delete failed", "error", err, "key", key)
	}
}

// Destroy handles POST /contacts/{id}/destroy and redirects to /.
func (h *ContactHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	contact, err := h.contacts.GetContact(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.contacts.DeleteContact(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.deleteAvatar(r.Context(), contact.Avatar)
	slog.Info("contact deleted", "id", id)
	http.Redirect(w, r, "/", http.StatusFound)
}
