package handler

import (
	"net/http"

	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *service.AuthService
	resolver    middleware.PrincipalResolver
	limiter     func(http.Handler) http.Handler
}

// NewAuthHandler takes an optional limiter applied to the credential endpoints.
func NewAuthHandler(authService *service.AuthService, resolver middleware.PrincipalResolver, limiter func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{authService: authService, resolver: resolver, limiter: limiter}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(public chi.Router) {
		if h.limiter != nil {
			public.Use(h.limiter)
		}
		public.Post("/register", h.register)
		public.Post("/login", h.login)
	})
	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator, middleware.RequireRoles(h.resolver, model.RoleAdmin))
		admin.Delete("/remove/{email}", h.remove)
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.RemoveUser(r.Context(), chi.URLParam(r, "email")); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "User removed")
}
