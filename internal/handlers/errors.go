package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/adminpanel/internal/models"
	pkghttp "github.com/BradenHooton/adminpanel/pkg/http"
)

// writeServiceError maps a service error onto the JSON error envelope.
// Fixed public messages are written verbatim; anything unclassified is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, models.PublicMessage(err, "Bad request"))
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, models.PublicMessage(err, "Unauthorized"))
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, models.PublicMessage(err, "Forbidden"))
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, models.PublicMessage(err, "User not found"))
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, models.PublicMessage(err, "Resource already exists"))
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// writeValidationError writes a 400 whose details list every failing field
func writeValidationError(w http.ResponseWriter, err error) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "bad_request", ve.Error(), ve.Details())
		return
	}
	pkghttp.WriteBadRequest(w, err.Error())
}
