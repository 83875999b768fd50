package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

type fakeGateway struct {
	mu          sync.Mutex
	startRaw    json.RawMessage
	startErr    error
	quiz        portal.Quiz
	quizErr     error
	submitRaw   json.RawMessage
	submitErr   error
	attempts    []portal.Attempt
	attemptsErr error
	quizzes     []portal.Quiz
	quizzesErr  error

	submits   []submitCall
	submitGo  chan struct{} // when non-nil, SubmitAttempt blocks until closed
	startHits int
}

type submitCall struct {
	attemptID string
	quizID    string
	answers   []portal.Answer
}

func (f *fakeGateway) StartQuiz(ctx context.Context, quizID string) (json.RawMessage, error) {
	f.mu.Lock()
	f.startHits++
	f.mu.Unlock()
	return f.startRaw, f.startErr
}

func (f *fakeGateway) Quiz(ctx context.Context, id string) (portal.Quiz, error) {
	return f.quiz, f.quizErr
}

func (f *fakeGateway) SubmitAttempt(ctx context.Context, attemptID, quizID string, answers []portal.Answer) (json.RawMessage, error) {
	f.mu.Lock()
	f.submits = append(f.submits, submitCall{attemptID, quizID, answers})
	gate := f.submitGo
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.submitRaw, f.submitErr
}

func (f *fakeGateway) MyAttempts(ctx context.Context) ([]portal.Attempt, error) {
	return f.attempts, f.attemptsErr
}

func (f *fakeGateway) Quizzes(ctx context.Context) ([]portal.Quiz, error) {
	return f.quizzes, f.quizzesErr
}

func (f *fakeGateway) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type fakeLedger struct {
	mu       sync.Mutex
	records  []portal.Attempt
	attempts []portal.Attempt
	ids      []string
	recErr   error
}

func (f *fakeLedger) Record(ctx context.Context, studentID string, att portal.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recErr != nil {
		return f.recErr
	}
	f.records = append(f.records, att)
	return nil
}

func (f *fakeLedger) Attempts(ctx context.Context, studentID string) ([]portal.Attempt, error) {
	return f.attempts, nil
}

func (f *fakeLedger) CompletedQuizIDs(ctx context.Context, studentID string) ([]string, error) {
	return f.ids, nil
}

func sampleQuiz() portal.Quiz {
	return portal.Quiz{
		ID:    "quiz-1",
		Title: "Water cycle",
		Questions: []portal.Question{
			{ID: "qq1", Statement: "Evaporation needs?", Options: []portal.Option{{ID: "a1"}, {ID: "a2"}}},
			{ID: "qq2", Statement: "Clouds are?", Options: []portal.Option{{ID: "b1"}, {ID: "b2"}}},
		},
	}
}

func startedCoordinator(t *testing.T, gw *fakeGateway, ledger *fakeLedger) *Coordinator {
	t.Helper()
	c := NewCoordinator(gw, ledger, "stu-1")
	if err := c.Start(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	return c
}

func TestStartLoadsQuizFromStartResponse(t *testing.T) {
	gw := &fakeGateway{startRaw: json.RawMessage(`{"data":{"id":"att-1","quizId":"quiz-1","questions":` + string(mustQuestions(t)) + `}}`)}
	c := startedCoordinator(t, gw, &fakeLedger{})
	if c.State() != StateInProgress {
		t.Fatalf("state = %s, want in_progress", c.State())
	}
	if c.AttemptID() != "att-1" {
		t.Fatalf("attempt id = %q", c.AttemptID())
	}
	if len(c.Quiz().Questions) != 2 {
		t.Fatalf("quiz body not loaded from start response")
	}
	if gw.startHits != 1 {
		t.Fatalf("start called %d times, want 1", gw.startHits)
	}
}

func mustQuestions(t *testing.T) []byte {
	t.Helper()
	buf, err := json.Marshal(sampleQuiz().Questions)
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	return buf
}

func TestStartFallsBackToQuizEndpoint(t *testing.T) {
	// Start response carries only the attempt id; body comes from GET /quizzes/{id}.
	gw := &fakeGateway{
		startRaw: json.RawMessage(`{"data":{"id":"att-2"}}`),
		quiz:     sampleQuiz(),
	}
	c := startedCoordinator(t, gw, &fakeLedger{})
	if got := c.Quiz(); got.Title != "Water cycle" {
		t.Fatalf("quiz body not loaded via fallback: %+v", got)
	}
}

func TestSubmitIncompleteNeverHitsNetwork(t *testing.T) {
	gw := &fakeGateway{startRaw: json.RawMessage(`{"data":{"id":"att-3"}}`), quiz: sampleQuiz()}
	c := startedCoordinator(t, gw, &fakeLedger{})

	if err := c.Answer(0, "a1", 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	_, err := c.Submit(context.Background())
	if !errors.Is(err, ErrIncompleteAnswers) {
		t.Fatalf("err = %v, want ErrIncompleteAnswers", err)
	}
	if gw.submitCount() != 0 {
		t.Fatalf("incomplete submit reached the network")
	}
	if missing := c.Unanswered(); len(missing) != 1 || missing[0] != 1 {
		t.Fatalf("unanswered = %v, want [1]", missing)
	}
}

func TestSubmitOrdersAnswersAndRecords(t *testing.T) {
	gw := &fakeGateway{
		startRaw:  json.RawMessage(`{"data":{"id":"att-4"}}`),
		quiz:      sampleQuiz(),
		submitRaw: json.RawMessage(`{"data":{"score":10,"totalPoints":20,"correctAnswers":1,"incorrectAnswers":1}}`),
	}
	ledger := &fakeLedger{}
	c := startedCoordinator(t, gw, ledger)

	// Answered out of order; the wire payload must follow question order.
	if err := c.Answer(1, "b2", 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := c.Answer(0, "a1", 0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	att, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c.State() != StateCompleted {
		t.Fatalf("state = %s, want completed", c.State())
	}
	if att.Score != 10 || att.TotalPoints != 20 {
		t.Fatalf("bad normalized attempt: %+v", att)
	}
	if att.CorrectAnswers == nil || *att.CorrectAnswers != 1 {
		t.Fatalf("correct answers not carried over: %+v", att)
	}

	if got := gw.submits[0].answers; got[0].QuestionID != "qq1" || got[1].QuestionID != "qq2" {
		t.Fatalf("answers out of question order: %+v", got)
	}
	if gw.submits[0].answers[1].OptionID != "b2" {
		t.Fatalf("wrong option for second question: %+v", gw.submits[0].answers)
	}

	if len(ledger.records) != 1 || ledger.records[0].QuizID != "quiz-1" {
		t.Fatalf("attempt not recorded in ledger: %+v", ledger.records)
	}
}

func TestSubmitResolvesOptionIDFromIndex(t *testing.T) {
	gw := &fakeGateway{
		startRaw:  json.RawMessage(`{"data":{"id":"att-5"}}`),
		quiz:      sampleQuiz(),
		submitRaw: json.RawMessage(`{}`),
	}
	c := startedCoordinator(t, gw, &fakeLedger{})

	// No option id supplied, only the index.
	if err := c.Answer(0, "", 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := c.Answer(1, "", 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := gw.submits[0].answers
	if got[0].OptionID != "a2" || got[1].OptionID != "b1" {
		t.Fatalf("option ids not resolved from indexes: %+v", got)
	}
}

func TestConcurrentSubmitPostsOnce(t *testing.T) {
	gate := make(chan struct{})
	gw := &fakeGateway{
		startRaw:  json.RawMessage(`{"data":{"id":"att-6"}}`),
		quiz:      sampleQuiz(),
		submitRaw: json.RawMessage(`{}`),
		submitGo:  gate,
	}
	c := startedCoordinator(t, gw, &fakeLedger{})
	for i := range c.Quiz().Questions {
		if err := c.Answer(i, "a1", 0); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		firstDone <- err
	}()

	// Wait for the first submit to reach the gateway, then race a second one.
	for c.State() != StateSubmitting {
		time.Sleep(time.Millisecond)
	}
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("second submit err = %v, want ErrSubmitInFlight", err)
	}

	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if gw.submitCount() != 1 {
		t.Fatalf("server saw %d submissions, want 1", gw.submitCount())
	}
}

func TestSubmitFailureAllowsRetry(t *testing.T) {
	gw := &fakeGateway{
		startRaw:  json.RawMessage(`{"data":{"id":"att-7"}}`),
		quiz:      sampleQuiz(),
		submitErr: errors.New("boom"),
	}
	ledger := &fakeLedger{}
	c := startedCoordinator(t, gw, ledger)
	for i := range c.Quiz().Questions {
		if err := c.Answer(i, "a1", 0); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}

	if _, err := c.Submit(context.Background()); err == nil {
		t.Fatalf("expected submit error")
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %s, want failed", c.State())
	}
	if len(ledger.records) != 0 {
		t.Fatalf("failed submission must not be recorded")
	}

	gw.submitErr = nil
	gw.submitRaw = json.RawMessage(`{"score":5,"totalPoints":10}`)
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if c.State() != StateCompleted {
		t.Fatalf("state = %s after retry, want completed", c.State())
	}
}

func TestLedgerFailureDoesNotFailSubmit(t *testing.T) {
	gw := &fakeGateway{
		startRaw:  json.RawMessage(`{"data":{"id":"att-8"}}`),
		quiz:      sampleQuiz(),
		submitRaw: json.RawMessage(`{}`),
	}
	ledger := &fakeLedger{recErr: errors.New("disk full")}
	c := startedCoordinator(t, gw, ledger)
	for i := range c.Quiz().Questions {
		if err := c.Answer(i, "a1", 0); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed on ledger error: %v", err)
	}
}

func TestCompletedAttemptsFiltersAndFallsBack(t *testing.T) {
	gw := &fakeGateway{
		attempts: []portal.Attempt{
			{ID: "a1", Status: portal.AttemptCompleted},
			{ID: "a2", Status: portal.AttemptInProgress},
			{ID: "a3", Score: 7}, // no status, nonzero score counts as completed
		},
	}
	c := NewCoordinator(gw, &fakeLedger{}, "stu-1")
	got, err := c.CompletedAttempts(context.Background())
	if err != nil {
		t.Fatalf("completed attempts: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a3" {
		t.Fatalf("filtered attempts = %+v", got)
	}

	gw.attemptsErr = errors.New("not implemented")
	ledger := &fakeLedger{attempts: []portal.Attempt{{ID: "local-1"}}}
	c = NewCoordinator(gw, ledger, "stu-1")
	got, err = c.CompletedAttempts(context.Background())
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if len(got) != 1 || got[0].ID != "local-1" {
		t.Fatalf("ledger fallback not used: %+v", got)
	}
}

func TestAvailableQuizzesExcludesCompletedAndFiltersYear(t *testing.T) {
	gw := &fakeGateway{quizzes: []portal.Quiz{
		{ID: "q1", Year: portal.FlexYear(5)},
		{ID: "q2", Year: portal.FlexYear(5)},
		{ID: "q3", Year: portal.FlexYear(6)},
		{ID: "q4"},
	}}
	ledger := &fakeLedger{ids: []string{"q1"}}
	c := NewCoordinator(gw, ledger, "stu-1")

	got, err := c.AvailableQuizzes(context.Background(), 5)
	if err != nil {
		t.Fatalf("available quizzes: %v", err)
	}
	want := []string{"q2", "q4"}
	if len(got) != len(want) {
		t.Fatalf("got %d quizzes, want %d: %+v", len(got), len(want), got)
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("quiz %d = %s, want %s", i, got[i].ID, id)
		}
	}

	// Unknown year disables the year filter entirely.
	got, err = c.AvailableQuizzes(context.Background(), 0)
	if err != nil {
		t.Fatalf("available quizzes: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 quizzes with no year filter, got %+v", got)
	}
}

func TestAnswerBeforeStart(t *testing.T) {
	c := NewCoordinator(&fakeGateway{}, &fakeLedger{}, "stu-1")
	if err := c.Answer(0, "a1", 0); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("err = %v, want ErrNotStarted", err)
	}
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("submit err = %v, want ErrNotStarted", err)
	}
}
