package devserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

var errNotFound = errors.New("not found")

// Store persists the fake portal's state. Questions and answers live as JSON
// blobs inside their rows, same as the rest of the dev tooling's SQL.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

/* ---- students / teachers ---- */

func (s *Store) CreateStudent(u portal.User) (portal.User, error) {
	u.ID = uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO students (id,name,enrollment_number,year) VALUES ($1,$2,$3,$4)`,
		u.ID, u.Name, u.EnrollmentNumber, u.Year.Value())
	return u.Sanitize(), err
}

func (s *Store) CreateTeacher(u portal.User) (portal.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return portal.User{}, err
	}
	u.ID = uuid.NewString()
	_, err = s.db.Exec(`INSERT INTO teachers (id,name,enrollment_number,email,password_hash,year) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Name, u.EnrollmentNumber, u.Email, string(hash), u.Year.Value())
	return u.Sanitize(), err
}

func (s *Store) StudentByEnrollment(enrollment string) (portal.User, error) {
	row := s.db.QueryRow(`SELECT id,name,enrollment_number,year FROM students WHERE enrollment_number=$1`, enrollment)
	return scanStudent(row)
}

func (s *Store) Student(id string) (portal.User, error) {
	row := s.db.QueryRow(`SELECT id,name,enrollment_number,year FROM students WHERE id=$1`, id)
	return scanStudent(row)
}

func scanStudent(row *sql.Row) (portal.User, error) {
	var u portal.User
	var year int
	if err := row.Scan(&u.ID, &u.Name, &u.EnrollmentNumber, &year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return portal.User{}, errNotFound
		}
		return portal.User{}, err
	}
	u.Year = portal.FlexYear(year)
	return u, nil
}

func (s *Store) Students() ([]portal.User, error) {
	rows, err := s.db.Query(`SELECT id,name,enrollment_number,year FROM students ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []portal.User{}
	for rows.Next() {
		var u portal.User
		var year int
		if err := rows.Scan(&u.ID, &u.Name, &u.EnrollmentNumber, &year); err != nil {
			return nil, err
		}
		u.Year = portal.FlexYear(year)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStudent(id string, fields map[string]any) (portal.User, error) {
	u, err := s.Student(id)
	if err != nil {
		return portal.User{}, err
	}
	if v, ok := fields["name"].(string); ok {
		u.Name = v
	}
	if v, ok := fields["year"].(float64); ok {
		u.Year = portal.FlexYear(int(v))
	}
	_, err = s.db.Exec(`UPDATE students SET name=$1, year=$2 WHERE id=$3`, u.Name, u.Year.Value(), id)
	return u, err
}

func (s *Store) DeleteStudent(id string) error {
	_, err := s.db.Exec(`DELETE FROM students WHERE id=$1`, id)
	return err
}

// TeacherByEmail returns the profile and its bcrypt hash for login checks.
func (s *Store) TeacherByEmail(email string) (portal.User, string, error) {
	row := s.db.QueryRow(`SELECT id,name,enrollment_number,email,password_hash,COALESCE(year,0) FROM teachers WHERE email=$1`, email)
	var u portal.User
	var hash string
	var year int
	if err := row.Scan(&u.ID, &u.Name, &u.EnrollmentNumber, &u.Email, &hash, &year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return portal.User{}, "", errNotFound
		}
		return portal.User{}, "", err
	}
	u.Year = portal.FlexYear(year)
	return u, hash, nil
}

func (s *Store) Teacher(id string) (portal.User, error) {
	row := s.db.QueryRow(`SELECT id,name,enrollment_number,email,COALESCE(year,0) FROM teachers WHERE id=$1`, id)
	var u portal.User
	var year int
	if err := row.Scan(&u.ID, &u.Name, &u.EnrollmentNumber, &u.Email, &year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return portal.User{}, errNotFound
		}
		return portal.User{}, err
	}
	u.Year = portal.FlexYear(year)
	return u, nil
}

func (s *Store) Teachers() ([]portal.User, error) {
	rows, err := s.db.Query(`SELECT id,name,enrollment_number,email,COALESCE(year,0) FROM teachers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []portal.User{}
	for rows.Next() {
		var u portal.User
		var year int
		if err := rows.Scan(&u.ID, &u.Name, &u.EnrollmentNumber, &u.Email, &year); err != nil {
			return nil, err
		}
		u.Year = portal.FlexYear(year)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTeacher(id string, fields map[string]any) (portal.User, error) {
	u, err := s.Teacher(id)
	if err != nil {
		return portal.User{}, err
	}
	if v, ok := fields["name"].(string); ok {
		u.Name = v
	}
	if v, ok := fields["year"].(float64); ok {
		u.Year = portal.FlexYear(int(v))
	}
	_, err = s.db.Exec(`UPDATE teachers SET name=$1, year=$2 WHERE id=$3`, u.Name, u.Year.Value(), id)
	return u, err
}

func (s *Store) DeleteTeacher(id string) error {
	_, err := s.db.Exec(`DELETE FROM teachers WHERE id=$1`, id)
	return err
}

/* ---- years ---- */

func (s *Store) CreateYear(year int, teacherID string) (portal.Year, error) {
	y := portal.Year{ID: uuid.NewString(), Year: year, TeacherID: teacherID}
	_, err := s.db.Exec(`INSERT INTO years (id,year,teacher_id) VALUES ($1,$2,$3)`, y.ID, y.Year, y.TeacherID)
	return y, err
}

func (s *Store) Years() ([]portal.Year, error) {
	rows, err := s.db.Query(`SELECT id,year,teacher_id FROM years ORDER BY year`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []portal.Year{}
	for rows.Next() {
		var y portal.Year
		if err := rows.Scan(&y.ID, &y.Year, &y.TeacherID); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

func (s *Store) UpdateYear(id string, year int) (portal.Year, error) {
	if _, err := s.db.Exec(`UPDATE years SET year=$1 WHERE id=$2`, year, id); err != nil {
		return portal.Year{}, err
	}
	row := s.db.QueryRow(`SELECT id,year,teacher_id FROM years WHERE id=$1`, id)
	var y portal.Year
	if err := row.Scan(&y.ID, &y.Year, &y.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return portal.Year{}, errNotFound
		}
		return portal.Year{}, err
	}
	return y, nil
}

func (s *Store) DeleteYear(id string) error {
	_, err := s.db.Exec(`DELETE FROM years WHERE id=$1`, id)
	return err
}

/* ---- quizzes ---- */

func (s *Store) CreateQuiz(q portal.Quiz, teacherID string) (portal.Quiz, error) {
	q.ID = uuid.NewString()
	q.TeacherID = teacherID
	for i := range q.Questions {
		if q.Questions[i].ID == "" {
			q.Questions[i].ID = uuid.NewString()
		}
		for j := range q.Questions[i].Options {
			if q.Questions[i].Options[j].ID == "" {
				q.Questions[i].Options[j].ID = uuid.NewString()
			}
		}
	}
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return portal.Quiz{}, err
	}
	_, err = s.db.Exec(`INSERT INTO quizzes (id,title,description,year_id,year,teacher_id,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		q.ID, q.Title, q.Description, q.YearID, q.Year.Value(), teacherID, string(qj), time.Now().Unix())
	return q, err
}

func (s *Store) Quiz(id string) (portal.Quiz, error) {
	row := s.db.QueryRow(`SELECT id,title,COALESCE(description,''),COALESCE(year_id,''),COALESCE(year,0),teacher_id,questions_json FROM quizzes WHERE id=$1`, id)
	var q portal.Quiz
	var year int
	var qjson string
	if err := row.Scan(&q.ID, &q.Title, &q.Description, &q.YearID, &year, &q.TeacherID, &qjson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return portal.Quiz{}, errNotFound
		}
		return portal.Quiz{}, err
	}
	q.Year = portal.FlexYear(year)
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return portal.Quiz{}, err
	}
	return q, nil
}

func (s *Store) Quizzes(teacherID string) ([]portal.Quiz, error) {
	query := `SELECT id,title,COALESCE(description,''),COALESCE(year_id,''),COALESCE(year,0),teacher_id,questions_json FROM quizzes ORDER BY created_at DESC`
	args := []any{}
	if teacherID != "" {
		query = `SELECT id,title,COALESCE(description,''),COALESCE(year_id,''),COALESCE(year,0),teacher_id,questions_json FROM quizzes WHERE teacher_id=$1 ORDER BY created_at DESC`
		args = append(args, teacherID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []portal.Quiz{}
	for rows.Next() {
		var q portal.Quiz
		var year int
		var qjson string
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.YearID, &year, &q.TeacherID, &qjson); err != nil {
			return nil, err
		}
		q.Year = portal.FlexYear(year)
		if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) UpdateQuiz(id string, q portal.Quiz) (portal.Quiz, error) {
	existing, err := s.Quiz(id)
	if err != nil {
		return portal.Quiz{}, err
	}
	existing.Title = q.Title
	existing.Description = q.Description
	if len(q.Questions) > 0 {
		for i := range q.Questions {
			if q.Questions[i].ID == "" {
				q.Questions[i].ID = uuid.NewString()
			}
			for j := range q.Questions[i].Options {
				if q.Questions[i].Options[j].ID == "" {
					q.Questions[i].Options[j].ID = uuid.NewString()
				}
			}
		}
		existing.Questions = q.Questions
	}
	qj, err := json.Marshal(existing.Questions)
	if err != nil {
		return portal.Quiz{}, err
	}
	_, err = s.db.Exec(`UPDATE quizzes SET title=$1, description=$2, questions_json=$3 WHERE id=$4`,
		existing.Title, existing.Description, string(qj), id)
	return existing, err
}

func (s *Store) DeleteQuiz(id string) error {
	_, err := s.db.Exec(`DELETE FROM quizzes WHERE id=$1`, id)
	return err
}

/* ---- attempts ---- */

func (s *Store) NewAttempt(quizID, studentID string) (portal.Attempt, error) {
	if _, err := s.Quiz(quizID); err != nil {
		return portal.Attempt{}, err
	}
	a := portal.Attempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		StudentID: studentID,
		Status:    portal.AttemptInProgress,
	}
	_, err := s.db.Exec(`INSERT INTO attempts (id,quiz_id,student_id,status,answers_json,started_at)
		VALUES ($1,$2,$3,$4,'[]',$5)`,
		a.ID, a.QuizID, a.StudentID, a.Status, time.Now().Unix())
	return a, err
}

func (s *Store) Attempt(id string) (portal.Attempt, error) {
	row := s.db.QueryRow(`SELECT id,quiz_id,student_id,status,score,total_points,correct_answers,incorrect_answers,COALESCE(submitted_at,0) FROM attempts WHERE id=$1`, id)
	return scanAttempt(row)
}

func scanAttempt(row *sql.Row) (portal.Attempt, error) {
	var a portal.Attempt
	var correct, incorrect int
	var submittedAt int64
	if err := row.Scan(&a.ID, &a.QuizID, &a.StudentID, &a.Status, &a.Score, &a.TotalPoints, &correct, &incorrect, &submittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return portal.Attempt{}, errNotFound
		}
		return portal.Attempt{}, err
	}
	if a.Status == portal.AttemptCompleted {
		a.CorrectAnswers = &correct
		a.IncorrectAnswers = &incorrect
		if submittedAt > 0 {
			a.SubmittedAt = time.Unix(submittedAt, 0).UTC().Format(time.RFC3339)
		}
	}
	return a, nil
}

func (s *Store) AttemptsByStudent(studentID string) ([]portal.Attempt, error) {
	rows, err := s.db.Query(`SELECT id,quiz_id,student_id,status,score,total_points,correct_answers,incorrect_answers,COALESCE(submitted_at,0) FROM attempts WHERE student_id=$1 ORDER BY started_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []portal.Attempt{}
	for rows.Next() {
		var a portal.Attempt
		var correct, incorrect int
		var submittedAt int64
		if err := rows.Scan(&a.ID, &a.QuizID, &a.StudentID, &a.Status, &a.Score, &a.TotalPoints, &correct, &incorrect, &submittedAt); err != nil {
			return nil, err
		}
		if a.Status == portal.AttemptCompleted {
			a.CorrectAnswers = &correct
			a.IncorrectAnswers = &incorrect
			if submittedAt > 0 {
				a.SubmittedAt = time.Unix(submittedAt, 0).UTC().Format(time.RFC3339)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAttempt(id string) error {
	_, err := s.db.Exec(`DELETE FROM attempts WHERE id=$1`, id)
	return err
}

// SubmitAttempt grades the answers against the quiz's answer key and marks
// the attempt completed. A second submit for the same attempt fails.
func (s *Store) SubmitAttempt(attemptID string, answers []portal.Answer) (portal.Attempt, []portal.AnswerResult, error) {
	a, err := s.Attempt(attemptID)
	if err != nil {
		return portal.Attempt{}, nil, err
	}
	if a.Status == portal.AttemptCompleted {
		return portal.Attempt{}, nil, errors.New("attempt already submitted")
	}
	quiz, err := s.Quiz(a.QuizID)
	if err != nil {
		return portal.Attempt{}, nil, err
	}

	chosen := map[string]string{}
	for _, ans := range answers {
		chosen[ans.QuestionID] = ans.OptionID
	}

	var score, totalPoints float64
	var correct int
	results := make([]portal.AnswerResult, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		points := q.Points
		if points == 0 {
			points = 1
		}
		totalPoints += points
		ok := false
		for _, opt := range q.Options {
			if opt.IsCorrect && opt.ID == chosen[q.ID] {
				ok = true
				break
			}
		}
		if ok {
			score += points
			correct++
		}
		results = append(results, portal.AnswerResult{QuestionID: q.ID, IsCorrect: ok})
	}
	incorrect := len(quiz.Questions) - correct

	aj, _ := json.Marshal(answers)
	now := time.Now()
	_, err = s.db.Exec(`UPDATE attempts SET status=$1, score=$2, total_points=$3, correct_answers=$4, incorrect_answers=$5, answers_json=$6, submitted_at=$7 WHERE id=$8`,
		portal.AttemptCompleted, score, totalPoints, correct, incorrect, string(aj), now.Unix(), attemptID)
	if err != nil {
		return portal.Attempt{}, nil, err
	}

	a.Status = portal.AttemptCompleted
	a.Score = score
	a.TotalPoints = totalPoints
	a.CorrectAnswers = &correct
	a.IncorrectAnswers = &incorrect
	a.SubmittedAt = now.UTC().Format(time.RFC3339)
	a.QuizTitle = quiz.Title
	a.TotalQuestions = len(quiz.Questions)
	return a, results, nil
}
