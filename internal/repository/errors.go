package repository

import (
	"errors"
	"net/http"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	apperrors "github.com/jwalitptl/dogfinder/pkg/errors"
)

// Translate maps a repository failure to the application error handlers
// render. action reads like "deleting dog" and prefixes the message.
func Translate(action, resource string, err error) error {
	if err == nil {
		return nil
	}
	message := "Error " + action
	if errors.Is(err, ErrNotFound) {
		return apperrors.NotFound(resource, nil)
	}
	if datastore.IsPermissionDenied(err) {
		return apperrors.Forbidden(message, err)
	}
	if datastore.IsMissingTable(err) {
		return apperrors.Unavailable(message, err)
	}
	var dsErr *datastore.Error
	if errors.As(err, &dsErr) && dsErr.Status >= http.StatusBadRequest && dsErr.Status < http.StatusInternalServerError {
		return apperrors.BadRequest(message, err)
	}
	return apperrors.Unavailable(message, err)
}
