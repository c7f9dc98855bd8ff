package handler

import (
	"net/http"
	"strings"

	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
	resolver          middleware.PrincipalResolver
}

func NewSubmissionHandler(ss *service.SubmissionService, resolver middleware.PrincipalResolver) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss, resolver: resolver}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	members := middleware.RequireRoles(h.resolver, model.RoleStaff, model.RoleAdmin, model.RoleStudent)
	takers := middleware.RequireRoles(h.resolver, model.RoleStaff, model.RoleStudent)

	r.With(members).Get("/", h.results)
	r.With(members).Post("/", h.submit)
	r.With(members).Get("/get-all/{classroomTestId}", h.listForTest)
	r.With(members).Get("/id/{submissionId}", h.detail)
	r.With(takers).Post("/submit/{classroomTestId}", h.finalize)
}

// results takes a comma separated tokens query parameter.
func (h *SubmissionHandler) results(w http.ResponseWriter, r *http.Request) {
	var tokens []string
	for _, t := range strings.Split(r.URL.Query().Get("tokens"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	resp, err := h.submissionService.GetResultsByTokens(r.Context(), tokens)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

// submit records a graded submission when question_id is set and runs ad hoc cases otherwise.
func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req service.SubmitRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}

	if req.QuestionID == "" {
		resp, err := h.submissionService.Run(r.Context(), req)
		if err != nil {
			common.RespondWithErr(w, r, err)
			return
		}
		common.RespondWithJSON(w, http.StatusCreated, resp)
		return
	}

	resp, err := h.submissionService.Submit(r.Context(), id.UserID, req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *SubmissionHandler) listForTest(w http.ResponseWriter, r *http.Request) {
	classroomTestID, ok := pathID(w, r, "classroomTestId")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	resp, err := h.submissionService.ListForClassroomTest(r.Context(), id.UserID, classroomTestID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *SubmissionHandler) detail(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := pathID(w, r, "submissionId")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	resp, err := h.submissionService.GetSubmissionDetail(r.Context(), id.UserID, id.Roles, submissionID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *SubmissionHandler) finalize(w http.ResponseWriter, r *http.Request) {
	classroomTestID, ok := pathID(w, r, "classroomTestId")
	if !ok {
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req service.FinalizeRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.RespondWithErr(w, r, err)
			return
		}
	}
	req.ClassroomTestID = classroomTestID

	resp, err := h.submissionService.Finalize(r.Context(), id.UserID, req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
