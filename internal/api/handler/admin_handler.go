package handler

import (
	"net/http"

	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	adminService *service.AdminService
	resolver     middleware.PrincipalResolver
}

func NewAdminHandler(as *service.AdminService, resolver middleware.PrincipalResolver) *AdminHandler {
	return &AdminHandler{adminService: as, resolver: resolver}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator, middleware.RequireRoles(h.resolver, model.RoleAdmin))

	r.Get("/dashboard", h.dashboard)
	r.Get("/blocked/student", h.blocked)
	r.Put("/unblock/student/{blockId}", h.unblock)
	r.Post("/block/student/{rollNumber}", h.block)
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	resp, err := h.adminService.Dashboard(r.Context())
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) blocked(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.adminService.ListBlocked(r.Context())
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"blockedStudents": blocks})
}

func (h *AdminHandler) unblock(w http.ResponseWriter, r *http.Request) {
	blockID, ok := pathID(w, r, "blockId")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.adminService.Unblock(r.Context(), id.UserID, blockID); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Student Unblocked Successfully")
}

func (h *AdminHandler) block(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req service.BlockRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.RespondWithErr(w, r, err)
			return
		}
	}
	if _, err := h.adminService.Block(r.Context(), id.UserID, chi.URLParam(r, "rollNumber"), req.Reason, nil); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Student Blocked Successfully")
}
