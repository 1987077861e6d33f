package view

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/givers/contacts/internal/model"
)

func render(t *testing.T, page string, data *Page) string {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, page, data))
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	return rec.Body.String()
}

func TestRender_SidebarListsContactsInOrder(t *testing.T) {
	body := render(t, PageIndex, &Page{Root: RootData{Contacts: []*model.Contact{
		{ID: "b", First: "Zed", Last: "Zulu"},
		{ID: "a", First: "Amy", Last: "Adams", Favorite: true},
		{ID: "c"},
	}}})

	zed := strings.Index(body, `href="/contacts/b"`)
	amy := strings.Index(body, `href="/contacts/a"`)
	noname := strings.Index(body, `href="/contacts/c"`)
	require.True(t, zed >= 0 && amy >= 0 && noname >= 0, body)
	assert.Less(t, zed, amy)
	assert.Less(t, amy, noname)

	assert.Contains(t, body, "Amy Adams <span>★</span>")
	assert.Contains(t, body, "<i>No Name</i>")
	assert.Equal(t, 1, strings.Count(body, "★"))
	assert.NotContains(t, body, "No contacts")
}

type navLink struct {
	Href, Class, Text string
}

// navLinks parses the sidebar links out of a rendered page.
func navLinks(t *testing.T, body string) []navLink {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)

	var links []navLink
	var inNav bool
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "nav" {
			inNav = true
			defer func() { inNav = false }()
		}
		if inNav && n.Type == html.ElementNode && n.Data == "a" {
			l := navLink{Text: strings.Join(strings.Fields(textOf(n)), " ")}
			for _, a := range n.Attr {
				switch a.Key {
				case "href":
					l.Href = a.Val
				case "class":
					l.Class = a.Val
				}
			}
			links = append(links, l)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textOf(c))
	}
	return sb.String()
}

func TestRender_NavLinks(t *testing.T) {
	body := render(t, PageContact, &Page{
		Path: "/contacts/a",
		Root: RootData{Contacts: []*model.Contact{
			{ID: "b", First: "Zed", Last: "Zulu"},
			{ID: "a", First: "Amy", Last: "Adams", Favorite: true},
			{ID: "c"},
		}},
		Contact: &model.Contact{ID: "a", First: "Amy", Last: "Adams", Favorite: true},
	})

	want := []navLink{
		{Href: "/contacts/b", Class: "", Text: "Zed Zulu"},
		{Href: "/contacts/a", Class: "active", Text: "Amy Adams ★"},
		{Href: "/contacts/c", Class: "", Text: "No Name"},
	}
	if diff := cmp.Diff(want, navLinks(t, body)); diff != "" {
		t.Errorf("nav links mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_EmptyList(t *testing.T) {
	body := render(t, PageIndex, &Page{})
	assert.Contains(t, body, "<i>No contacts</i>")
}

func TestRender_SearchInput(t *testing.T) {
	q := "ali"
	body := render(t, PageIndex, &Page{Root: RootData{Query: &q}})
	assert.Contains(t, body, `value="ali"`)
	assert.Contains(t, body, `data-replace="true"`)

	body = render(t, PageIndex, &Page{})
	assert.Contains(t, body, `value=""`)
	assert.Contains(t, body, `data-replace="false"`)
}

func TestRender_ActiveLink(t *testing.T) {
	body := render(t, PageIndex, &Page{
		Path: "/contacts/a/edit",
		Root: RootData{Contacts: []*model.Contact{{ID: "a", First: "A"}, {ID: "b", First: "B"}}},
	})
	assert.Contains(t, body, `href="/contacts/a" class="active"`)
	assert.Contains(t, body, `href="/contacts/b" class=""`)
}

func TestRender_ActiveLink_EscapedID(t *testing.T) {
	body := render(t, PageIndex, &Page{
		Path: "/contacts/ada lovelace",
		Root: RootData{Contacts: []*model.Contact{{ID: "ada lovelace", First: "Ada"}}},
	})
	assert.Contains(t, body, `href="/contacts/ada%20lovelace" class="active"`)
}

// The spinner and the dimmed detail pane are toggled by app.js; the server
// renders them idle.
func TestRender_LoadingHooksStartIdle(t *testing.T) {
	body := render(t, PageIndex, &Page{})
	assert.Contains(t, body, `<div id="search-spinner" aria-hidden="true" hidden></div>`)
	assert.Contains(t, body, `<div id="detail">`)
	assert.Contains(t, body, `<script src="/static/app.js" defer></script>`)
}

func TestRender_ContactPage(t *testing.T) {
	body := render(t, PageContact, &Page{
		CSRFToken: "tok",
		Contact: &model.Contact{
			ID: "x", First: "Kent", Last: "Dodds", Twitter: "@kentcdodds", Notes: "<b>notes</b>", Favorite: true,
		},
	})
	assert.Contains(t, body, `aria-label="Remove from favorites"`)
	assert.Contains(t, body, `https://twitter.com/@kentcdodds`)
	assert.Contains(t, body, `&lt;b&gt;notes&lt;/b&gt;`)
	assert.Contains(t, body, `action="/contacts/x/destroy"`)
	assert.Contains(t, body, `name="_csrf" value="tok"`)
}

func TestRender_EditPage(t *testing.T) {
	body := render(t, PageEdit, &Page{Contact: &model.Contact{ID: "x", First: "Kent"}})
	assert.Contains(t, body, `action="/contacts/x/edit"`)
	assert.Contains(t, body, `name="first" placeholder="First" type="text" value="Kent"`)
}

func TestRender_ErrorPage(t *testing.T) {
	body := render(t, PageError, &Page{Error: &ErrorData{Status: 404, Message: "contact not found"}})
	assert.Contains(t, body, "404 Not Found: contact not found")
}

func TestRender_UnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	assert.Error(t, r.Render(httptest.NewRecorder(), http.StatusOK, "nope.html", &Page{}))
}

func TestStatic_ServesAssets(t *testing.T) {
	for _, name := range []string{"/app.css", "/app.js"} {
		rec := httptest.NewRecorder()
		Static().ServeHTTP(rec, httptest.NewRequest("GET", name, nil))
		assert.Equal(t, http.StatusOK, rec.Code, name)
		assert.NotZero(t, rec.Body.Len(), name)
	}
}

func TestStatic_LoadingStylesMatchScript(t *testing.T) {
	script, err := fs.ReadFile(staticFS, "static/app.js")
	require.NoError(t, err)
	css, err := fs.ReadFile(staticFS, "static/app.css")
	require.NoError(t, err)

	for _, hook := range []string{`byId("search-spinner")`, `byId("detail")?.classList.toggle("loading"`, `classList.add("pending")`} {
		assert.Contains(t, string(script), hook)
	}
	for _, rule := range []string{"#search-spinner", "#detail.loading", "#sidebar nav a.pending"} {
		assert.Contains(t, string(css), rule)
	}
}
