package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givers/contacts/internal/model"
	"github.com/givers/contacts/internal/repository"
)

func newTestAPI(t *testing.T, svc *mockContactService) (humatest.TestAPI, *[]error) {
	t.Helper()
	var errs []error
	_, api := humatest.New(t)
	h := &ContactsAPI{
		Contacts:     svc,
		ErrorHandler: func(_ context.Context, err error) { errs = append(errs, err) },
	}
	h.Register(api)
	return api, &errs
}

func TestContactsAPI_List(t *testing.T) {
	var gotQuery string
	svc := &mockContactService{
		getContactsFunc: func(ctx context.Context, query string) ([]*model.Contact, error) {
			gotQuery = query
			return []*model.Contact{{ID: "a", First: "Alice", Favorite: true}}, nil
		},
	}
	api, _ := newTestAPI(t, svc)

	resp := api.Get("/contacts?query=ali")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ali", gotQuery)

	var body []ContactModel
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "a", body[0].ID)
	assert.True(t, body[0].Favorite)
}

func TestContactsAPI_List_Error(t *testing.T) {
	svc := &mockContactService{
		getContactsFunc: func(ctx context.Context, query string) ([]*model.Contact, error) {
			return nil, errors.New("boom")
		},
	}
	api, errs := newTestAPI(t, svc)

	resp := api.Get("/contacts")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Len(t, *errs, 1)
}

func TestContactsAPI_Create(t *testing.T) {
	c := &model.Contact{ID: "new1"}
	svc := withContact(c)
	svc.createFunc = func(ctx context.Context) (*model.Contact, error) {
		cp := *c
		return &cp, nil
	}
	api, _ := newTestAPI(t, svc)

	t.Run("empty", func(t *testing.T) {
		resp := api.Post("/contacts")
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, "/api/contacts/new1", resp.Header().Get("Location"))
	})

	t.Run("with body", func(t *testing.T) {
		resp := api.Post("/contacts", map[string]any{"first": "Ryan", "favorite": true})
		require.Equal(t, http.StatusCreated, resp.Code)

		var body ContactModel
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "Ryan", body.First)
		assert.True(t, body.Favorite)
	})
}

func TestContactsAPI_Get(t *testing.T) {
	api, _ := newTestAPI(t, withContact(&model.Contact{ID: "abc", Last: "Florence"}))

	resp := api.Get("/contacts/abc")
	require.Equal(t, http.StatusOK, resp.Code)
	var body ContactModel
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Florence", body.Last)

	resp = api.Get("/contacts/missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestContactsAPI_Put(t *testing.T) {
	c := &model.Contact{ID: "abc", First: "Ryan", Notes: "keep"}
	api, _ := newTestAPI(t, withContact(c))

	resp := api.Put("/contacts/abc", map[string]any{"last": "Florence"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Ryan", c.First)
	assert.Equal(t, "Florence", c.Last)
	assert.Equal(t, "keep", c.Notes)

	resp = api.Put("/contacts/missing", map[string]any{"last": "x"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestContactsAPI_Delete(t *testing.T) {
	svc := &mockContactService{
		deleteFunc: func(ctx context.Context, id string) error {
			if id != "abc" {
				return repository.ErrNotFound
			}
			return nil
		},
	}
	api, _ := newTestAPI(t, svc)

	assert.Equal(t, http.StatusNoContent, api.Delete("/contacts/abc").Code)
	assert.Equal(t, http.StatusNotFound, api.Delete("/contacts/zzz").Code)
}
