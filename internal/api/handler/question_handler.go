package handler

import (
	"net/http"

	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type QuestionHandler struct {
	questionService *service.QuestionService
	resolver        middleware.PrincipalResolver
}

func NewQuestionHandler(qs *service.QuestionService, resolver middleware.PrincipalResolver) *QuestionHandler {
	return &QuestionHandler{questionService: qs, resolver: resolver}
}

func (h *QuestionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	anyone := middleware.RequireRoles(h.resolver)
	staff := middleware.RequireRoles(h.resolver, staffRoles...)

	r.With(staff).Post("/add-code", h.addCode)
	r.With(staff).Post("/add-mcq", h.addMcq)
	r.With(anyone).Get("/{test_id}", h.list)
	r.With(anyone).Get("/{test_id}/meta", h.meta)
	r.With(anyone).Get("/{test_id}/{question_id}", h.detail)
}

func (h *QuestionHandler) list(w http.ResponseWriter, r *http.Request) {
	testID, ok := pathID(w, r, "test_id")
	if !ok {
		return
	}
	questions, err := h.questionService.ListByTest(r.Context(), testID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

func (h *QuestionHandler) meta(w http.ResponseWriter, r *http.Request) {
	testID, ok := pathID(w, r, "test_id")
	if !ok {
		return
	}
	classroomTestID := r.URL.Query().Get("classroom_test_id")
	if classroomTestID != "" && uuid.Validate(classroomTestID) != nil {
		common.RespondWithErr(w, r, common.Validationf("Invalid classroom_test_id"))
		return
	}
	meta, err := h.questionService.Meta(r.Context(), testID, classroomTestID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, meta)
}

func (h *QuestionHandler) detail(w http.ResponseWriter, r *http.Request) {
	testID, ok := pathID(w, r, "test_id")
	if !ok {
		return
	}
	questionID, ok := pathID(w, r, "question_id")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	q, err := h.questionService.Detail(r.Context(), testID, questionID, isStaff(id))
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"question": q})
}

func (h *QuestionHandler) addCode(w http.ResponseWriter, r *http.Request) {
	var req service.AddCodeQuestionRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	resp, err := h.questionService.AddCode(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *QuestionHandler) addMcq(w http.ResponseWriter, r *http.Request) {
	var req service.AddMcqQuestionRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	resp, err := h.questionService.AddMcq(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}
