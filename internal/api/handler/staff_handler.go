package handler

import (
	"net/http"

	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type StaffHandler struct {
	adminService *service.AdminService
	resolver     middleware.PrincipalResolver
}

func NewStaffHandler(as *service.AdminService, resolver middleware.PrincipalResolver) *StaffHandler {
	return &StaffHandler{adminService: as, resolver: resolver}
}

func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator, middleware.RequireRoles(h.resolver, model.RoleAdmin))
	r.Get("/all", h.all)
}

func (h *StaffHandler) all(w http.ResponseWriter, r *http.Request) {
	staff, err := h.adminService.ListStaff(r.Context())
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"staff": staff})
}
