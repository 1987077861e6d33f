package view

import (
	"net/url"
	"strings"

	"github.com/givers/contacts/internal/model"
)

// RootData is what the root loader hands to every page, and the JSON payload
// of a data request.
type RootData struct {
	Contacts []*model.Contact `json:"contacts"`
	// Query is nil when the URL has no query parameter at all.
	Query *string `json:"query"`
}

// QueryFromURL extracts the optional search query.
func QueryFromURL(u *url.URL) *string {
	values := u.Query()
	if !values.Has("query") {
		return nil
	}
	q := values.Get("query")
	return &q
}

// SearchValue is the value displayed in the search box.
func SearchValue(q *string) string {
	if q == nil {
		return ""
	}
	return *q
}

// SearchReplace reports whether the next search submission replaces the
// current history entry. The first search pushes; once a query is present,
// later keystrokes replace.
func SearchReplace(q *string) bool {
	return q != nil
}

// ContactHref is the path of a contact's detail page.
func ContactHref(id string) string {
	return "/contacts/" + url.PathEscape(id)
}

// IsActive reports whether the link to contact id matches path, including
// nested pages such as the edit form.
// path is the decoded request path, so id is compared unescaped.
func IsActive(path, id string) bool {
	href := "/contacts/" + id
	return path == href || strings.HasPrefix(path, href+"/")
}
