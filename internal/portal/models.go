package portal

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// User is a student or teacher profile. Password is only ever populated on
// registration payloads; Sanitize clears it before anything is persisted.
type User struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	EnrollmentNumber string   `json:"enrollmentNumber,omitempty"`
	Email            string   `json:"email,omitempty"`
	Password         string   `json:"password,omitempty"`
	Year             FlexYear `json:"year,omitempty"`
}

// Sanitize returns a copy safe for storage: the password field is stripped.
func (u User) Sanitize() User {
	u.Password = ""
	return u
}

// Year is a class cohort owned by one teacher.
type Year struct {
	ID        string `json:"id"`
	Year      int    `json:"year"`
	TeacherID string `json:"teacherId,omitempty"`
}

type Option struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type Question struct {
	ID        string   `json:"id,omitempty"`
	QuizID    string   `json:"quizId,omitempty"` // required by the update endpoint
	Statement string   `json:"statement"`
	Options   []Option `json:"options"`
	Points    float64  `json:"points,omitempty"`
}

type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	YearID      string     `json:"yearId,omitempty"`
	Year        FlexYear   `json:"year,omitempty"`
	TeacherID   string     `json:"teacherId,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// Answer is one submitted choice, ordered by question position in the quiz.
type Answer struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// AnswerResult is the per-question outcome some server deployments return.
type AnswerResult struct {
	QuestionID string `json:"questionId,omitempty"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Attempt is the canonical internal representation every server response
// variant is normalized into. It doubles as the local ledger entry, carrying
// the denormalized quiz metadata the history views need.
type Attempt struct {
	ID               string        `json:"id"`
	QuizID           string        `json:"quizId,omitempty"`
	StudentID        string        `json:"studentId,omitempty"`
	Status           AttemptStatus `json:"status,omitempty"`
	Score            float64       `json:"score"`
	TotalPoints      float64       `json:"totalPoints,omitempty"`
	CorrectAnswers   *int          `json:"correctAnswers,omitempty"`
	IncorrectAnswers *int          `json:"incorrectAnswers,omitempty"`
	SubmittedAt      string        `json:"submittedAt,omitempty"`
	QuizTitle        string        `json:"quizTitle,omitempty"`
	TotalQuestions   int           `json:"totalQuestions,omitempty"`
}

// Completed reports whether the attempt counts as finished for history views.
// Older deployments report "submitted" instead of "completed".
func (a Attempt) Completed() bool {
	return a.Status == AttemptCompleted || a.Status == "submitted" || a.Score > 0
}

// StudentStats is the stats block of the teacher results view.
type StudentStats struct {
	AverageScore  float64 `json:"averageScore"`
	TotalAttempts int     `json:"totalAttempts"`
	PassedQuizzes int     `json:"passedQuizzes"`
}

// StudentResults is the teacher-facing view of one student.
type StudentResults struct {
	Attempts []Attempt    `json:"attempts"`
	Stats    StudentStats `json:"stats"`
}
