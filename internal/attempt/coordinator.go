// Package attempt drives the take-a-quiz lifecycle: start an attempt, load
// the quiz body, collect answers, submit, and reconcile the local ledger so
// students keep their history even when the remote listing endpoint is
// unavailable.
package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateFailed     State = "failed" // retry allowed by re-invoking Submit
)

var (
	ErrIncompleteAnswers = errors.New("must answer all questions")
	ErrSubmitInFlight    = errors.New("submission already in progress")
	ErrNotStarted        = errors.New("attempt has not been started")
)

// Gateway is the slice of the API client the coordinator needs.
type Gateway interface {
	StartQuiz(ctx context.Context, quizID string) (json.RawMessage, error)
	Quiz(ctx context.Context, id string) (portal.Quiz, error)
	SubmitAttempt(ctx context.Context, attemptID, quizID string, answers []portal.Answer) (json.RawMessage, error)
	MyAttempts(ctx context.Context) ([]portal.Attempt, error)
	Quizzes(ctx context.Context) ([]portal.Quiz, error)
}

// Ledger is the local fallback store for completed attempts.
type Ledger interface {
	Record(ctx context.Context, studentID string, att portal.Attempt) error
	Attempts(ctx context.Context, studentID string) ([]portal.Attempt, error)
	CompletedQuizIDs(ctx context.Context, studentID string) ([]string, error)
}

// selection is one collected answer, keyed by question index.
type selection struct {
	OptionID    string
	OptionIndex int
}

// Coordinator runs one quiz attempt from start to completion. Start must
// succeed before Submit is reachable; a submission-in-flight flag guards
// against double submission, since the server is not assumed to enforce
// exactly-once semantics.
type Coordinator struct {
	gw        Gateway
	ledger    Ledger
	studentID string

	mu        sync.Mutex
	state     State
	attemptID string
	quiz      portal.Quiz
	answers   map[int]selection
	inFlight  bool
}

func NewCoordinator(gw Gateway, ledger Ledger, studentID string) *Coordinator {
	return &Coordinator{
		gw:        gw,
		ledger:    ledger,
		studentID: studentID,
		state:     StateNotStarted,
		answers:   map[int]selection{},
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) AttemptID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attemptID
}

func (c *Coordinator) Quiz() portal.Quiz {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quiz
}

// Start requests a new attempt and loads the quiz body. The start response
// sometimes carries the quiz content as a side effect; when it does not, the
// body is loaded separately.
func (c *Coordinator) Start(ctx context.Context, quizID string) error {
	raw, err := c.gw.StartQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	attemptID, err := portal.AttemptIDFromResponse(raw)
	if err != nil {
		return err
	}

	quiz, err := portal.QuizFromResponse(raw)
	if err != nil {
		quiz, err = c.loadQuizBody(ctx, quizID)
		if err != nil {
			return err
		}
	}
	// The start response reuses "id" for the attempt, so the decoded quiz id
	// cannot be trusted. The caller's quiz id is authoritative.
	quiz.ID = quizID

	c.mu.Lock()
	c.attemptID = attemptID
	c.quiz = quiz
	c.answers = map[int]selection{}
	c.state = StateInProgress
	c.mu.Unlock()
	return nil
}

// loadQuizBody tries the direct GET first and falls back to the start
// endpoint, which also returns quiz content. Some deployments expose only
// one of the two.
func (c *Coordinator) loadQuizBody(ctx context.Context, quizID string) (portal.Quiz, error) {
	if quiz, err := c.gw.Quiz(ctx, quizID); err == nil {
		return quiz, nil
	}
	raw, err := c.gw.StartQuiz(ctx, quizID)
	if err != nil {
		return portal.Quiz{}, err
	}
	return portal.QuizFromResponse(raw)
}

// Answer records the selected option for a question index. Selections may be
// changed freely until submission.
func (c *Coordinator) Answer(questionIndex int, optionID string, optionIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress && c.state != StateFailed {
		return ErrNotStarted
	}
	if questionIndex < 0 || questionIndex >= len(c.quiz.Questions) {
		return errors.New("question index out of range")
	}
	c.answers[questionIndex] = selection{OptionID: optionID, OptionIndex: optionIndex}
	return nil
}

// Unanswered returns the indexes of questions with no selection yet.
func (c *Coordinator) Unanswered() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var missing []int
	for i := range c.quiz.Questions {
		if _, ok := c.answers[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// Submit posts the collected answers and records the result in the local
// ledger. A submit with unanswered questions is rejected locally and never
// reaches the network. A duplicate call while one is in flight is rejected.
func (c *Coordinator) Submit(ctx context.Context) (portal.Attempt, error) {
	c.mu.Lock()
	switch {
	case c.inFlight:
		c.mu.Unlock()
		return portal.Attempt{}, ErrSubmitInFlight
	case c.state == StateCompleted:
		c.mu.Unlock()
		return portal.Attempt{}, errors.New("attempt already completed")
	case c.state != StateInProgress && c.state != StateFailed:
		c.mu.Unlock()
		return portal.Attempt{}, ErrNotStarted
	}
	for i := range c.quiz.Questions {
		if _, ok := c.answers[i]; !ok {
			c.mu.Unlock()
			return portal.Attempt{}, ErrIncompleteAnswers
		}
	}

	// Answers go out in question order, not selection order.
	ordered := make([]portal.Answer, 0, len(c.quiz.Questions))
	for i, q := range c.quiz.Questions {
		sel := c.answers[i]
		optionID := sel.OptionID
		if optionID == "" && sel.OptionIndex >= 0 && sel.OptionIndex < len(q.Options) {
			optionID = q.Options[sel.OptionIndex].ID
		}
		ordered = append(ordered, portal.Answer{QuestionID: q.ID, OptionID: optionID})
	}

	attemptID, quiz := c.attemptID, c.quiz
	c.inFlight = true
	c.state = StateSubmitting
	c.mu.Unlock()

	raw, err := c.gw.SubmitAttempt(ctx, attemptID, quiz.ID, ordered)

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		c.state = StateFailed
		c.mu.Unlock()
		return portal.Attempt{}, err
	}
	c.state = StateCompleted
	c.mu.Unlock()

	result := normalizeSubmitResponse(raw, attemptID, quiz, c.studentID)

	// The ledger write is the only persistence students have when the remote
	// listing endpoint is unavailable, so it happens unconditionally before
	// returning. Its failure never fails the submission.
	if err := c.ledger.Record(ctx, c.studentID, result); err != nil {
		log.Warn().Err(err).Str("attempt_id", attemptID).Msg("could not record attempt in local ledger")
	}
	return result, nil
}

// CompletedAttempts returns the student's completed attempts, remote first.
// When the remote listing fails (not implemented, permission error) the local
// ledger is authoritative for display purposes.
func (c *Coordinator) CompletedAttempts(ctx context.Context) ([]portal.Attempt, error) {
	remote, err := c.gw.MyAttempts(ctx)
	if err == nil {
		completed := make([]portal.Attempt, 0, len(remote))
		for _, a := range remote {
			if a.Completed() {
				completed = append(completed, a)
			}
		}
		return completed, nil
	}
	log.Debug().Err(err).Msg("remote attempts listing unavailable, using local ledger")
	return c.ledger.Attempts(ctx, c.studentID)
}

// AvailableQuizzes lists quizzes the student can still take: completed ones
// are excluded, and when the student's year is known, quizzes are filtered to
// that year (quizzes carrying no year stay visible).
func (c *Coordinator) AvailableQuizzes(ctx context.Context, studentYear int) ([]portal.Quiz, error) {
	quizzes, err := c.gw.Quizzes(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := c.ledger.CompletedQuizIDs(ctx, c.studentID)
	if err != nil {
		completed = nil
	}
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	available := make([]portal.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if done[q.ID] {
			continue
		}
		if studentYear > 0 {
			if y := q.Year.Value(); y > 0 && y != studentYear {
				continue
			}
		}
		available = append(available, q)
	}
	return available, nil
}

// normalizeSubmitResponse maps the submit response variants into the
// canonical attempt record stored in the ledger.
func normalizeSubmitResponse(raw json.RawMessage, attemptID string, quiz portal.Quiz, studentID string) portal.Attempt {
	type payload struct {
		Score            *float64              `json:"score"`
		TotalPoints      *float64              `json:"totalPoints"`
		CorrectAnswers   *int                  `json:"correctAnswers"`
		IncorrectAnswers *int                  `json:"incorrectAnswers"`
		Results          []portal.AnswerResult `json:"results"`
		QuizTitle        string                `json:"quizTitle"`
		TotalQuestions   int                   `json:"totalQuestions"`
		QuizID           string                `json:"quizId"`
	}
	var envelope struct {
		payload
		Data *payload `json:"data"`
	}
	_ = json.Unmarshal(raw, &envelope)
	body := envelope.payload
	if envelope.Data != nil {
		body = *envelope.Data
	}

	att := portal.Attempt{
		ID:          attemptID,
		QuizID:      quiz.ID,
		StudentID:   studentID,
		Status:      portal.AttemptCompleted,
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),

		QuizTitle:      quiz.Title,
		TotalQuestions: len(quiz.Questions),
	}
	if body.QuizID != "" && att.QuizID == "" {
		att.QuizID = body.QuizID
	}
	if body.QuizTitle != "" && att.QuizTitle == "" {
		att.QuizTitle = body.QuizTitle
	}
	if att.TotalQuestions == 0 {
		att.TotalQuestions = body.TotalQuestions
	}
	if body.Score != nil {
		att.Score = *body.Score
	}
	if body.TotalPoints != nil {
		att.TotalPoints = *body.TotalPoints
	}
	switch {
	case body.CorrectAnswers != nil:
		att.CorrectAnswers = body.CorrectAnswers
		att.IncorrectAnswers = body.IncorrectAnswers
	case len(body.Results) > 0:
		correct := 0
		for _, r := range body.Results {
			if r.IsCorrect {
				correct++
			}
		}
		incorrect := len(body.Results) - correct
		att.CorrectAnswers = &correct
		att.IncorrectAnswers = &incorrect
	}
	return att
}
