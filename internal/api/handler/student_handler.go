package handler

import (
	"net/http"

	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type StudentHandler struct {
	studentService    *service.StudentService
	supervisorService *service.SupervisorService
	resolver          middleware.PrincipalResolver
}

func NewStudentHandler(ss *service.StudentService, sup *service.SupervisorService, resolver middleware.PrincipalResolver) *StudentHandler {
	return &StudentHandler{studentService: ss, supervisorService: sup, resolver: resolver}
}

func (h *StudentHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator, middleware.RequireRoles(h.resolver, model.RoleStudent))

	r.Get("/classrooms", h.classrooms)
	r.Get("/classroomTitle/{id}", h.classroomTitle)
	r.Get("/staffDetails/{id}", h.staffDetails)
	r.Get("/classroomTests/{id}", h.classroomTests)
	r.Get("/ongoingTest", h.ongoing)
	r.Get("/upcomingTest", h.upcoming)
	r.Post("/tabSwitch/{classroomTestId}", h.tabSwitch)
}

func (h *StudentHandler) classrooms(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	classrooms, err := h.studentService.Classrooms(r.Context(), id.UserID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"classrooms": classrooms})
}

func (h *StudentHandler) classroomTitle(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	title, err := h.studentService.ClassroomTitle(r.Context(), id.UserID, classroomID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, title)
}

func (h *StudentHandler) staffDetails(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	staff, err := h.studentService.StaffDetails(r.Context(), id.UserID, classroomID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"staff": staff})
}

func (h *StudentHandler) classroomTests(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	tests, err := h.studentService.ClassroomTests(r.Context(), id.UserID, classroomID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"tests": tests})
}

func (h *StudentHandler) ongoing(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	tests, err := h.studentService.OngoingTests(r.Context(), id.UserID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"tests": tests})
}

func (h *StudentHandler) upcoming(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	tests, err := h.studentService.UpcomingTests(r.Context(), id.UserID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"tests": tests})
}

func (h *StudentHandler) tabSwitch(w http.ResponseWriter, r *http.Request) {
	classroomTestID, ok := pathID(w, r, "classroomTestId")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	resp, err := h.supervisorService.RecordTabSwitch(r.Context(), id.UserID, classroomTestID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
