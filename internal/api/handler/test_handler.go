package handler

import (
	"net/http"

	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type TestHandler struct {
	testService *service.TestService
	resolver    middleware.PrincipalResolver
}

func NewTestHandler(ts *service.TestService, resolver middleware.PrincipalResolver) *TestHandler {
	return &TestHandler{testService: ts, resolver: resolver}
}

func (h *TestHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	anyone := middleware.RequireRoles(h.resolver)
	staff := middleware.RequireRoles(h.resolver, staffRoles...)
	admin := middleware.RequireRoles(h.resolver, model.RoleAdmin)

	r.With(staff).Post("/create", h.create)
	r.With(anyone).Get("/", h.list)
	r.With(anyone).Get("/{testId}", h.get)
	r.With(staff).Put("/{testId}", h.update)
	r.With(admin).Delete("/{testId}", h.delete)

	r.With(staff).Post("/schedule", h.schedule)
	r.With(anyone).Get("/schedule/tests/{classroom_id}", h.listSchedules)
	r.With(anyone).Get("/schedule/{classroom_id}/{test_id}", h.getSchedule)
	r.With(staff).Put("/schedule/{classroom_id}/{test_id}", h.updateSchedule)
	r.With(staff).Delete("/schedule/{classroom_id}/{test_id}", h.cancelSchedule)
}

func (h *TestHandler) create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req service.TestRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	t, err := h.testService.Create(r.Context(), id.UserID, req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{"message": "Test created", "testId": t.ID})
}

// list returns every test for admins and the caller's own tests otherwise.
func (h *TestHandler) list(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	createdBy := id.UserID
	if id.HasRole(model.RoleAdmin) {
		createdBy = ""
	}
	tests, err := h.testService.List(r.Context(), createdBy)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"tests": tests})
}

func (h *TestHandler) get(w http.ResponseWriter, r *http.Request) {
	testID, ok := pathID(w, r, "testId")
	if !ok {
		return
	}
	t, err := h.testService.Get(r.Context(), testID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"test": t})
}

func (h *TestHandler) update(w http.ResponseWriter, r *http.Request) {
	testID, ok := pathID(w, r, "testId")
	if !ok {
		return
	}
	var req service.TestRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	t, err := h.testService.Update(r.Context(), testID, req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"message": "Test updated", "test": t})
}

func (h *TestHandler) delete(w http.ResponseWriter, r *http.Request) {
	testID, ok := pathID(w, r, "testId")
	if !ok {
		return
	}
	if err := h.testService.Delete(r.Context(), testID); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Test deleted")
}

func (h *TestHandler) schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req service.ScheduleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	ct, err := h.testService.Schedule(r.Context(), id.UserID, req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{"message": "Test scheduled", "classroomTestId": ct.ID})
}

func (h *TestHandler) listSchedules(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroom_id")
	if !ok {
		return
	}
	tests, err := h.testService.ListSchedules(r.Context(), classroomID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"tests": tests})
}

func (h *TestHandler) getSchedule(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroom_id")
	if !ok {
		return
	}
	testID, ok := pathID(w, r, "test_id")
	if !ok {
		return
	}
	ct, err := h.testService.GetSchedule(r.Context(), classroomID, testID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"schedule": ct})
}

func (h *TestHandler) updateSchedule(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroom_id")
	if !ok {
		return
	}
	testID, ok := pathID(w, r, "test_id")
	if !ok {
		return
	}
	var req service.ScheduleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	ct, err := h.testService.UpdateSchedule(r.Context(), classroomID, testID, req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"message": "Schedule updated", "schedule": ct})
}

func (h *TestHandler) cancelSchedule(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := pathID(w, r, "classroom_id")
	if !ok {
		return
	}
	testID, ok := pathID(w, r, "test_id")
	if !ok {
		return
	}
	if err := h.testService.CancelSchedule(r.Context(), classroomID, testID); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Schedule deleted")
}
