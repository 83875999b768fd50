// Package devserver is a small stand-in for the remote portal service, used
// for offline development and as the integration harness for the client. It
// implements the portal's HTTP surface over the same dual-driver SQL setup
// the client ledger uses.
package devserver

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

type Options struct {
	JWTSecret   string
	CORSOrigins []string
}

// NewRouter wires the portal routes. All endpoints are bearer-protected
// except the two logins and the two registrations; note GET /years requires
// auth, which is what the client's public variant has to tolerate.
func NewRouter(db *sql.DB, opts Options) http.Handler {
	st := NewStore(db)
	auth := NewAuthService(opts.JWTSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Post("/auth/student/login", studentLoginHandler(st, auth))
	r.Post("/auth/teacher/login", teacherLoginHandler(st, auth))
	r.Post("/students", registerStudentHandler(st))
	r.Post("/teachers", registerTeacherHandler(st))

	r.Group(func(pr chi.Router) {
		pr.Use(jwtMiddleware(auth))

		pr.Get("/students", listStudentsHandler(st))
		pr.Get("/students/{id}", getStudentHandler(st))
		pr.Put("/students/{id}", updateStudentHandler(st))
		pr.Delete("/students/{id}", deleteStudentHandler(st))
		pr.With(requireRole(portal.RoleTeacher)).Get("/students/{id}/results", studentResultsHandler(st))

		pr.Get("/teachers", listTeachersHandler(st))
		pr.Get("/teachers/{id}", getTeacherHandler(st))
		pr.Put("/teachers/{id}", updateTeacherHandler(st))
		pr.Delete("/teachers/{id}", deleteTeacherHandler(st))

		pr.Get("/years", listYearsHandler(st))
		pr.With(requireRole(portal.RoleTeacher)).Post("/years", createYearHandler(st))
		pr.With(requireRole(portal.RoleTeacher)).Put("/years/{id}", updateYearHandler(st))
		pr.With(requireRole(portal.RoleTeacher)).Delete("/years/{id}", deleteYearHandler(st))

		pr.Get("/quizzes", listQuizzesHandler(st))
		pr.With(requireRole(portal.RoleTeacher)).Post("/quizzes", createQuizHandler(st))
		pr.With(requireRole(portal.RoleTeacher)).Get("/quizzes/teacher/{teacherId}", teacherQuizzesHandler(st))
		pr.With(requireRole(portal.RoleTeacher)).Get("/quizzes/{id}", getQuizHandler(st))
		pr.With(requireRole(portal.RoleTeacher)).Put("/quizzes/{id}", updateQuizHandler(st))
		pr.With(requireRole(portal.RoleTeacher)).Delete("/quizzes/{id}", deleteQuizHandler(st))
		pr.With(requireRole(portal.RoleStudent)).Post("/quizzes/{id}/start", startQuizHandler(st))

		pr.With(requireRole(portal.RoleStudent)).Post("/quiz-attempts", submitAttemptHandler(st))
		pr.Get("/quiz-attempts", listAttemptsHandler(st))
		pr.Get("/quiz-attempts/{id}", getAttemptHandler(st))
		pr.Delete("/quiz-attempts/{id}", deleteAttemptHandler(st))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	return r
}
