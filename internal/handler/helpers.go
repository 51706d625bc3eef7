package handler

import (
	"errors"
	"net/http"
	"strconv"

	"markettrack-api/internal/repository"
	"markettrack-api/internal/service"
	"markettrack-api/pkg/apierror"

	"github.com/go-chi/chi/v5"
)

// userID extracts the caller identity from the X-User-ID header.
func userID(r *http.Request) (int64, *apierror.Error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, apierror.Unauthorized("X-User-ID header is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("X-User-ID must be a positive integer")
	}
	return id, nil
}

// idParam parses a numeric URL parameter.
func idParam(r *http.Request, name string) (int64, *apierror.Error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest(name + " must be a positive integer")
	}
	return id, nil
}

// translate maps service and repository errors to API errors. Anything
// unrecognized falls through unchanged and renders as a 500.
func translate(err error, resource string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apierror.NotFound(resource + " not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apierror.Conflict(resource + " already exists")
	case errors.Is(err, service.ErrNotOwner):
		return apierror.Forbidden("")
	default:
		return err
	}
}

// pagination reads page/limit query parameters with sane bounds.
func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
