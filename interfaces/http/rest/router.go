// Package rest wires the HTTP surface: routes, middleware, and the
// health endpoints.
package rest

import (
	"net/http"

	"civica-backend/application/services"
	"civica-backend/domain"
	"civica-backend/interfaces/http/rest/handlers"
	"civica-backend/interfaces/http/rest/middleware"
	"civica-backend/pkg/auth"
	"civica-backend/pkg/common"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router.
type Router struct {
	users       *services.UserService
	cohorts     *services.CohortService
	enrollment  *services.EnrollmentService
	positions   *services.PositionService
	discussions *services.DiscussionService
	reflections *services.ReflectionService
	validator   *auth.JWTValidator
	enableCORS  bool
	logger      *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(
	users *services.UserService,
	cohorts *services.CohortService,
	enrollment *services.EnrollmentService,
	positions *services.PositionService,
	discussions *services.DiscussionService,
	reflections *services.ReflectionService,
	validator *auth.JWTValidator,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		users:       users,
		cohorts:     cohorts,
		enrollment:  enrollment,
		positions:   positions,
		discussions: discussions,
		reflections: reflections,
		validator:   validator,
		enableCORS:  enableCORS,
		logger:      logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.civica.education"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator))

		userHandler := handlers.NewUserHandler(rt.users, rt.logger)
		cohortHandler := handlers.NewCohortHandler(rt.cohorts, rt.logger)
		enrollmentHandler := handlers.NewEnrollmentHandler(rt.enrollment, rt.logger)
		positionHandler := handlers.NewPositionHandler(rt.positions, rt.logger)
		discussionHandler := handlers.NewDiscussionHandler(rt.discussions, rt.logger)
		reflectionHandler := handlers.NewReflectionHandler(rt.reflections, rt.logger)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.EnsureUser)
			r.Get("/me", userHandler.GetMe)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleTeacher))
				r.Put("/me/teacher-profile", userHandler.PutTeacherProfile)
			})
		})

		r.Route("/cohorts", func(r chi.Router) {
			r.Get("/{cohortID}", cohortHandler.GetCohort)

			// Teacher-only cohort management.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleTeacher))
				r.Post("/", cohortHandler.CreateCohort)
				r.Get("/", cohortHandler.ListCohorts)
				r.Patch("/{cohortID}", cohortHandler.UpdateCohort)
				r.Post("/{cohortID}/advance", cohortHandler.AdvancePhase)
				r.Get("/{cohortID}/students", cohortHandler.ListStudents)
				r.Get("/{cohortID}/policies/{policyID}/positions", positionHandler.GetPositionsByPolicy)
				r.Get("/{cohortID}/reflections", reflectionHandler.ListReflections)
			})

			// Student submissions.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleStudent))
				r.Post("/{cohortID}/positions", positionHandler.SubmitPosition)
				r.Post("/{cohortID}/posts", discussionHandler.CreatePost)
				r.Post("/{cohortID}/reflections", reflectionHandler.SubmitReflection)
			})

			// Shared reads.
			r.Get("/{cohortID}/policies/{policyID}/distribution", positionHandler.GetStanceDistribution)
			r.Get("/{cohortID}/policies/{policyID}/posts", discussionHandler.GetThread)
			r.Get("/{cohortID}/reflections/{studentID}", reflectionHandler.GetReflection)
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleStudent))
			r.Post("/", enrollmentHandler.JoinCohort)
			r.Get("/", enrollmentHandler.ListMemberships)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/{postID}/replies", discussionHandler.GetReplies)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleTeacher))
				r.Post("/{postID}/flag", discussionHandler.FlagPost)
				r.Delete("/{postID}", discussionHandler.DeletePost)
			})
		})

		r.Route("/positions", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleStudent))
			r.Get("/", positionHandler.GetPositionHistory)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
