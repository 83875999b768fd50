package devserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStoreErr(w http.ResponseWriter, err error) {
	if errors.Is(err, errNotFound) {
		http.Error(w, "not found", 404)
		return
	}
	http.Error(w, err.Error(), 500)
}

/* ---- auth ---- */

func studentLoginHandler(st *Store, auth *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EnrollmentNumber string `json:"enrollmentNumber"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EnrollmentNumber == "" {
			http.Error(w, "enrollmentNumber required", 400)
			return
		}
		u, err := st.StudentByEnrollment(req.EnrollmentNumber)
		if err != nil {
			http.Error(w, "invalid credentials", 401)
			return
		}
		tok, err := auth.IssueJWT(u.ID, portal.RoleStudent, u.Year.Value())
		if err != nil {
			http.Error(w, "issue token", 500)
			return
		}
		writeJSON(w, 200, map[string]string{"token": tok})
	}
}

func teacherLoginHandler(st *Store, auth *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			http.Error(w, "email and password required", 400)
			return
		}
		u, hash, err := st.TeacherByEmail(req.Email)
		if err != nil {
			http.Error(w, "invalid credentials", 401)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", 401)
			return
		}
		tok, err := auth.IssueJWT(u.ID, portal.RoleTeacher, u.Year.Value())
		if err != nil {
			http.Error(w, "issue token", 500)
			return
		}
		writeJSON(w, 200, map[string]string{"token": tok})
	}
}

/* ---- students / teachers ---- */

func registerStudentHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u portal.User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if u.Name == "" || u.EnrollmentNumber == "" || u.Year.Value() < 1 {
			http.Error(w, "name, enrollmentNumber and year required", 400)
			return
		}
		created, err := st.CreateStudent(u)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, 201, created)
	}
}

func registerTeacherHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u portal.User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if u.Name == "" || u.Email == "" || u.Password == "" {
			http.Error(w, "name, email and password required", 400)
			return
		}
		created, err := st.CreateTeacher(u)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, 201, created)
	}
}

func listStudentsHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := st.Students()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, students)
	}
}

func getStudentHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := st.Student(chi.URLParam(r, "id"))
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, 200, u)
	}
}

func updateStudentHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		u, err := st.UpdateStudent(chi.URLParam(r, "id"), fields)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, 200, u)
	}
}

func deleteStudentHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeleteStudent(chi.URLParam(r, "id")); err != nil {
			writeStoreErr(w, err)
			return
		}
		w.WriteHeader(204)
	}
}

func listTeachersHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teachers, err := st.Teachers()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, teachers)
	}
}

func getTeacherHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := st.Teacher(chi.URLParam(r, "id"))
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, 200, u)
	}
}

func updateTeacherHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		u, err := st.UpdateTeacher(chi.URLParam(r, "id"), fields)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, 200, u)
	}
}

func deleteTeacherHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeleteTeacher(chi.URLParam(r, "id")); err != nil {
			writeStoreErr(w, err)
			return
		}
		w.WriteHeader(204)
	}
}

/* ---- years ---- */

func listYearsHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		years, err := st.Years()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, years)
	}
}

func createYearHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Year int `json:"year"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Year < 1 {
			http.Error(w, "year must be a positive integer", 400)
			return
		}
		y, err := st.CreateYear(req.Year, claimsFrom(r).Subject)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 201, y)
	}
}

func updateYearHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Year int `json:"year"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Year < 1 {
			http.Error(w, "year must be a positive integer", 400)
			return
		}
		y, err := st.UpdateYear(chi.URLParam(r, "id"), req.Year)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, 200, y)
	}
}

func deleteYearHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeleteYear(chi.URLParam(r, "id")); err != nil {
			writeStoreErr(w, err)
			return
		}
		w.WriteHeader(204)
	}
}

/* ---- quizzes ---- */

func createQuizHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q portal.Quiz
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if q.Title == "" || len(q.Questions) == 0 {
			http.Error(w, "title and questions required", 400)
			return
		}
		created, err := st.CreateQuiz(q, claimsFrom(r).Subject)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, 201, created)
	}
}

func listQuizzesHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizzes, err := st.Quizzes("")
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, quizzes)
	}
}

func teacherQuizzesHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizzes, err := st.Quizzes(chi.URLParam(r, "teacherId"))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, quizzes)
	}
}

func getQuizHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := st.Quiz(chi.URLParam(r, "id"))
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, 200, q)
	}
}

func updateQuizHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		existing, err := st.Quiz(id)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		if existing.TeacherID != claimsFrom(r).Subject {
			http.Error(w, "not the quiz owner", 403)
			return
		}
		var q portal.Quiz
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		updated, err := st.UpdateQuiz(id, q)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, 200, updated)
	}
}

func deleteQuizHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		existing, err := st.Quiz(id)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		if existing.TeacherID != claimsFrom(r).Subject {
			http.Error(w, "not the quiz owner", 403)
			return
		}
		if err := st.DeleteQuiz(id); err != nil {
			writeStoreErr(w, err)
			return
		}
		w.WriteHeader(204)
	}
}

/* ---- attempts ---- */

// startQuizHandler creates an attempt and returns the quiz body alongside,
// nested under data with the attempt id, matching the production backend.
func startQuizHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "id")
		quiz, err := st.Quiz(quizID)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		att, err := st.NewAttempt(quizID, claimsFrom(r).Subject)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		// Served to a student: answer keys stay hidden.
		for i := range quiz.Questions {
			for j := range quiz.Questions[i].Options {
				quiz.Questions[i].Options[j].IsCorrect = false
			}
		}
		writeJSON(w, 200, map[string]any{
			"success": true,
			"data": map[string]any{
				"id":          att.ID,
				"quizId":      quiz.ID,
				"title":       quiz.Title,
				"description": quiz.Description,
				"year":        quiz.Year,
				"questions":   quiz.Questions,
			},
		})
	}
}

func submitAttemptHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AttemptID string          `json:"attemptId"`
			QuizID    string          `json:"quizId"`
			Answers   []portal.Answer `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.AttemptID == "" || len(req.Answers) == 0 {
			http.Error(w, "attemptId and answers required", 400)
			return
		}
		att, err := st.Attempt(req.AttemptID)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		if att.StudentID != claimsFrom(r).Subject {
			http.Error(w, "not your attempt", 403)
			return
		}
		graded, results, err := st.SubmitAttempt(req.AttemptID, req.Answers)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, 200, map[string]any{
			"success": true,
			"data": map[string]any{
				"id":               graded.ID,
				"quizId":           graded.QuizID,
				"quizTitle":        graded.QuizTitle,
				"score":            graded.Score,
				"totalPoints":      graded.TotalPoints,
				"correctAnswers":   graded.CorrectAnswers,
				"incorrectAnswers": graded.IncorrectAnswers,
				"totalQuestions":   graded.TotalQuestions,
				"results":          results,
			},
		})
	}
}

func listAttemptsHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempts, err := st.AttemptsByStudent(claimsFrom(r).Subject)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": attempts})
	}
}

func getAttemptHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		att, err := st.Attempt(chi.URLParam(r, "id"))
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, 200, att)
	}
}

func deleteAttemptHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeleteAttempt(chi.URLParam(r, "id")); err != nil {
			writeStoreErr(w, err)
			return
		}
		w.WriteHeader(204)
	}
}

// studentResultsHandler is the teacher view: attempts plus a stats block.
func studentResultsHandler(st *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempts, err := st.AttemptsByStudent(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		completed := []portal.Attempt{}
		sum, passed := 0, 0
		for _, a := range attempts {
			if !a.Completed() {
				continue
			}
			completed = append(completed, a)
			p := a.Percentage()
			sum += p
			if p >= 50 {
				passed++
			}
		}
		stats := portal.StudentStats{TotalAttempts: len(completed), PassedQuizzes: passed}
		if len(completed) > 0 {
			stats.AverageScore = float64(sum) / float64(len(completed))
		}
		writeJSON(w, 200, portal.StudentResults{Attempts: completed, Stats: stats})
	}
}
