package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/givers/contacts/internal/model"
	"github.com/givers/contacts/internal/repository"
	"github.com/givers/contacts/internal/service"
)

// ContactsAPI exposes the contacts collection as a JSON API.
type ContactsAPI struct {
	Contacts     service.ContactService
	ErrorHandler func(context.Context, error)
}

// ContactModel は API が返す連絡先の表現
type ContactModel struct {
	ID        string    `json:"id" readOnly:"true"`
	First     string    `json:"first" example:"Alex"`
	Last      string    `json:"last" example:"Anderson"`
	Avatar    string    `json:"avatar" format:"uri-reference"`
	Twitter   string    `json:"twitter" example:"@alex"`
	Notes     string    `json:"notes"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"createdAt" readOnly:"true"`
}

// ContactInput は作成・更新リクエストのボディ。省略したフィールドは変更しない
type ContactInput struct {
	First    *string `json:"first,omitempty"`
	Last     *string `json:"last,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Twitter  *string `json:"twitter,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Favorite *bool   `json:"favorite,omitempty"`
}

func (in *ContactInput) mutation() model.ContactMutation {
	if in == nil {
		return model.ContactMutation{}
	}
	return model.ContactMutation{
		First:    in.First,
		Last:     in.Last,
		Avatar:   in.Avatar,
		Twitter:  in.Twitter,
		Notes:    in.Notes,
		Favorite: in.Favorite,
	}
}

func toModel(c *model.Contact) ContactModel {
	return ContactModel{
		ID:        c.ID,
		First:     c.First,
		Last:      c.Last,
		Avatar:    c.Avatar,
		Twitter:   c.Twitter,
		Notes:     c.Notes,
		Favorite:  c.Favorite,
		CreatedAt: c.CreatedAt,
	}
}

// Register adds the /contacts operations to api.
func (h *ContactsAPI) Register(api huma.API) {
	huma.Get(api, "/contacts",
		handlerWithErrorHandler(h.list, h.ErrorHandler),
		opErrors(http.StatusInternalServerError),
	)
	huma.Register(api, huma.Operation{
		OperationID:   "create-contact",
		Method:        http.MethodPost,
		Path:          "/contacts",
		Summary:       "Create contact",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusInternalServerError},
	}, handlerWithErrorHandler(h.create, h.ErrorHandler))
	huma.Get(api, "/contacts/{id}",
		handlerWithErrorHandler(h.get, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
	huma.Put(api, "/contacts/{id}",
		handlerWithErrorHandler(h.put, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError),
	)
	huma.Delete(api, "/contacts/{id}",
		handlerWithErrorHandler(h.del, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

// ContactsListOutput は GET /api/contacts のレスポンス
type ContactsListOutput struct {
	Body []ContactModel
}

func (h *ContactsAPI) list(ctx context.Context, input *struct {
	Query string `query:"query" doc:"Filter by first or last name"`
}) (*ContactsListOutput, error) {
	contacts, err := h.Contacts.GetContacts(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	body := make([]ContactModel, 0, len(contacts))
	for _, c := range contacts {
		body = append(body, toModel(c))
	}
	return &ContactsListOutput{Body: body}, nil
}

// ContactsCreateOutput は POST /api/contacts のレスポンス（Location に作成先の URL）
type ContactsCreateOutput struct {
	Location string `header:"Location"`
	Body     ContactModel
}

func (h *ContactsAPI) create(ctx context.Context, input *struct {
	Body *ContactInput `required:"false"`
}) (*ContactsCreateOutput, error) {
	contact, err := h.Contacts.CreateEmptyContact(ctx)
	if err != nil {
		return nil, err
	}
	if input.Body != nil {
		if contact, err = h.Contacts.UpdateContact(ctx, contact.ID, input.Body.mutation()); err != nil {
			return nil, apiError(err)
		}
	}
	return &ContactsCreateOutput{
		Location: "/api/contacts/" + contact.ID,
		Body:     toModel(contact),
	}, nil
}

// ContactsGetOutput は単一の連絡先を返すレスポンス（GET / PUT /api/contacts/{id}）
type ContactsGetOutput struct {
	Body ContactModel
}

func (h *ContactsAPI) get(ctx context.Context, input *struct {
	ID string `path:"id" doc:"ID of the contact to get"`
}) (*ContactsGetOutput, error) {
	contact, err := h.Contacts.GetContact(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &ContactsGetOutput{Body: toModel(contact)}, nil
}

func (h *ContactsAPI) put(ctx context.Context, input *struct {
	ID   string `path:"id" doc:"ID of the contact to update"`
	Body ContactInput
}) (*ContactsGetOutput, error) {
	contact, err := h.Contacts.UpdateContact(ctx, input.ID, input.Body.mutation())
	if err != nil {
		return nil, apiError(err)
	}
	return &ContactsGetOutput{Body: toModel(contact)}, nil
}

func (h *ContactsAPI) del(ctx context.Context, input *struct {
	ID string `path:"id" doc:"ID of the contact to delete"`
}) (*struct{}, error) {
	return nil, apiError(h.Contacts.DeleteContact(ctx, input.ID))
}

func apiError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return huma.Error404NotFound("contact not found", err)
	}
	return err
}

type apiHandler[I, O any] = func(context.Context, *I) (*O, error)

func handlerWithErrorHandler[I, O any](handler apiHandler[I, O], do func(context.Context, error)) apiHandler[I, O] {
	if do == nil {
		return handler
	}

	return func(ctx context.Context, i *I) (*O, error) {
		o, err := handler(ctx, i)
		if err != nil {
			do(ctx, err)
		}
		return o, err
	}
}

func opErrors(codes ...int) func(*huma.Operation) {
	return func(o *huma.Operation) { o.Errors = codes }
}
