package handler

import (
	"net/http"

	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SupervisorHandler struct {
	supervisorService *service.SupervisorService
	resolver          middleware.PrincipalResolver
}

func NewSupervisorHandler(ss *service.SupervisorService, resolver middleware.PrincipalResolver) *SupervisorHandler {
	return &SupervisorHandler{supervisorService: ss, resolver: resolver}
}

func (h *SupervisorHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator, middleware.RequireRoles(h.resolver, model.RoleSupervisor, model.RoleStaff, model.RoleAdmin))

	r.Get("/tests", h.tests)
	r.Get("/attendance/{classroomTestId}", h.attendance)
	r.Post("/attendance/{classroomTestId}/{studentId}/present", h.mark(true))
	r.Post("/attendance/{classroomTestId}/{studentId}/absent", h.mark(false))
	r.Post("/block/{classroomTestId}/{rollNumber}", h.block)
}

func (h *SupervisorHandler) tests(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	tests, err := h.supervisorService.SupervisedTests(r.Context(), id.UserID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"tests": tests})
}

func (h *SupervisorHandler) attendance(w http.ResponseWriter, r *http.Request) {
	classroomTestID, ok := pathID(w, r, "classroomTestId")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	rows, err := h.supervisorService.Attendance(r.Context(), id.UserID, id.Roles, classroomTestID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"attendance": rows})
}

func (h *SupervisorHandler) mark(present bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classroomTestID, ok := pathID(w, r, "classroomTestId")
		if !ok {
			return
		}
		studentID, ok := pathID(w, r, "studentId")
		if !ok {
			return
		}
		id, ok := identity(w, r)
		if !ok {
			return
		}
		err := h.supervisorService.MarkAttendance(r.Context(), id.UserID, id.Roles,
			classroomTestID, studentID, present)
		if err != nil {
			common.RespondWithErr(w, r, err)
			return
		}
		common.RespondWithMessage(w, http.StatusOK, "Attendance updated")
	}
}

func (h *SupervisorHandler) block(w http.ResponseWriter, r *http.Request) {
	classroomTestID, ok := pathID(w, r, "classroomTestId")
	if !ok {
		return
	}
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
	_, err := h.supervisorService.BlockStudent(r.Context(), id.UserID, id.Roles,
		classroomTestID, chi.URLParam(r, "rollNumber"), req.Reason)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Student Blocked Successfully")
}
