// Package handler exposes the application services over HTTP.
package handler

import (
	"net/http"

	"igress/internal/api/middleware"
	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// staffRoles may manage classrooms, tests and questions.
var staffRoles = []string{model.RoleStaff, model.RoleAdmin}

// identity returns the resolved caller or writes 401.
func identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok || id.UserID == "" {
		common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
		return middleware.Identity{}, false
	}
	return id, true
}

func isStaff(id middleware.Identity) bool {
	return id.HasRole(model.RoleStaff) || id.HasRole(model.RoleAdmin)
}

// pathID returns the named URL parameter in canonical form. Values that cannot be a
// stored id get 404 without reaching the database.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	parsed, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		common.RespondWithErr(w, r, common.NotFoundf("Resource not found"))
		return "", false
	}
	return parsed.String(), true
}
