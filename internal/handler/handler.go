package handler

import (
	"github.com/givers/contacts/internal/repository"
)

// Handler serves the operational endpoints.
type Handler struct {
	db    repository.DB
	store string // driver name reported by /healthz
}

func New(db repository.DB, store string) *Handler {
	return &Handler{db: db, store: store}
}
