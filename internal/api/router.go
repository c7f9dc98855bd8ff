package api

import (
	"net/http"
	"time"

	"igress/internal/api/handler"
	"igress/internal/api/middleware"
	"igress/internal/app/service"
	"igress/internal/common/security"
	"igress/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

// Services bundles everything the router mounts.
type Services struct {
	Auth       *service.AuthService
	Access     *service.AccessService
	Classroom  *service.ClassroomService
	Question   *service.QuestionService
	Test       *service.TestService
	Submission *service.SubmissionService
	Admin      *service.AdminService
	Student    *service.StudentService
	Supervisor *service.SupervisorService
}

type RouterOptions struct {
	AllowedOrigins []string
	// AuthLimiter throttles register and login. Nil disables it.
	AuthLimiter *middleware.RateLimiter
	// MaxBodyBytes caps request bodies. Zero leaves them unbounded.
	MaxBodyBytes int64
}

func NewRouter(s Services, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Metrics)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.MaxBodyBytes > 0 {
		r.Use(chiMiddleware.RequestSize(opts.MaxBodyBytes))
	}

	// Only parses the bearer token; Authenticator decides per route group.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	var limiter func(http.Handler) http.Handler
	if opts.AuthLimiter != nil {
		limiter = opts.AuthLimiter.Handler
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", handler.NewAuthHandler(s.Auth, s.Access, limiter).RegisterRoutes)
		api.Route("/classroom", handler.NewClassroomHandler(s.Classroom, s.Access).RegisterRoutes)
		api.Route("/question", handler.NewQuestionHandler(s.Question, s.Access).RegisterRoutes)
		api.Route("/test", handler.NewTestHandler(s.Test, s.Access).RegisterRoutes)
		api.Route("/submission", handler.NewSubmissionHandler(s.Submission, s.Access).RegisterRoutes)
		api.Route("/admin", handler.NewAdminHandler(s.Admin, s.Access).RegisterRoutes)
		api.Route("/staff", handler.NewStaffHandler(s.Admin, s.Access).RegisterRoutes)
		api.Route("/student", handler.NewStudentHandler(s.Student, s.Supervisor, s.Access).RegisterRoutes)
		api.Route("/supervisor", handler.NewSupervisorHandler(s.Supervisor, s.Access).RegisterRoutes)
	})

	return r
}
