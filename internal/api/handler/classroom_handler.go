package handler

import (
	"fmt"
	"net/http"

	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common"

	"github.com/go-chi/chi/v5"
)

type ClassroomHandler struct {
	classroomService *service.ClassroomService
	resolver         middleware.PrincipalResolver
}

func NewClassroomHandler(cs *service.ClassroomService, resolver middleware.PrincipalResolver) *ClassroomHandler {
	return &ClassroomHandler{classroomService: cs, resolver: resolver}
}

func (h *ClassroomHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator, middleware.RequireRoles(h.resolver, staffRoles...))

	r.Post("/create", h.create)
	r.Get("/all", h.listAll)
	r.Get("/id/{id}", h.get)
	r.Get("/slug/{slug}", h.getBySlug)
	r.Get("/user/{userId}", h.listForUser)
	r.Put("/{classroomId}", h.update)
	r.Delete("/{classroomId}", h.delete)

	r.Get("/{classroomId}/staff", h.listStaff)
	r.Post("/{classroomId}/staff", h.addStaff)
	r.Delete("/{classroomId}/staff/{staffId}", h.removeStaff)

	r.Get("/{classroomId}/student", h.listStudents)
	r.Post("/{classroomId}/students", h.addStudents)
	r.Delete("/{classroomId}/student/{studentId}", h.removeStudent)
}

type createClassroomResponse struct {
	Message     string `json:"message"`
	ClassroomID string `json:"classroomId"`
	Slug        string `json:"slug"`
}

func (h *ClassroomHandler) create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req service.ClassroomRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	c, err := h.classroomService.Create(r.Context(), id.UserID, req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, createClassroomResponse{
		Message: "Classroom created", ClassroomID: c.ID, Slug: c.Slug,
	})
}

func (h *ClassroomHandler) listAll(w http.ResponseWriter, r *http.Request) {
	classrooms, err := h.classroomService.ListAll(r.Context())
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"classrooms": classrooms})
}

func (h *ClassroomHandler) get(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.classroomService.Get(r.Context(), classroomID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"classroom": c})
}

func (h *ClassroomHandler) getBySlug(w http.ResponseWriter, r *http.Request) {
	c, err := h.classroomService.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"classroom": c})
}

// listForUser accepts "me" for the caller.
func (h *ClassroomHandler) listForUser(w http.ResponseWriter, r *http.Request) {
	var userID string
	if chi.URLParam(r, "userId") == "me" {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		userID = id.UserID
	} else {
		var ok bool
		if userID, ok = pathID(w, r, "userId"); !ok {
			return
		}
	}
	classrooms, err := h.classroomService.ListForUser(r.Context(), userID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"classrooms": classrooms})
}

func (h *ClassroomHandler) update(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroomId")
	if !ok {
		return
	}
	var req service.ClassroomRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	c, err := h.classroomService.Update(r.Context(), classroomID, req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"message": "Classroom updated", "classroom": c})
}

func (h *ClassroomHandler) delete(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroomId")
	if !ok {
		return
	}
	if err := h.classroomService.Delete(r.Context(), classroomID); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Classroom deleted")
}

func (h *ClassroomHandler) listStaff(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroomId")
	if !ok {
		return
	}
	staff, err := h.classroomService.ListStaff(r.Context(), classroomID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"staff": staff})
}

func (h *ClassroomHandler) addStaff(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroomId")
	if !ok {
		return
	}
	var req struct {
		StaffEmail string `json:"staffEmail"`
	}
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	if err := h.classroomService.AddStaff(r.Context(), classroomID, req.StaffEmail); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusCreated, "Staff added to classroom")
}

func (h *ClassroomHandler) removeStaff(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroomId")
	if !ok {
		return
	}
	staffID, ok := pathID(w, r, "staffId")
	if !ok {
		return
	}
	err := h.classroomService.RemoveStaff(r.Context(), classroomID, staffID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Staff removed from classroom")
}

func (h *ClassroomHandler) listStudents(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroomId")
	if !ok {
		return
	}
	students, err := h.classroomService.ListStudents(r.Context(), classroomID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"students": students})
}

func (h *ClassroomHandler) addStudents(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroomId")
	if !ok {
		return
	}
	var req struct {
		StudentEmails []string `json:"studentEmails"`
	}
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	n, err := h.classroomService.AddStudents(r.Context(), classroomID, req.StudentEmails)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusCreated, fmt.Sprintf("%d students added to classroom", n))
}

func (h *ClassroomHandler) removeStudent(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroomId")
	if !ok {
		return
	}
	studentID, ok := pathID(w, r, "studentId")
	if !ok {
		return
	}
	err := h.classroomService.RemoveStudent(r.Context(), classroomID, studentID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Student removed from classroom")
}
