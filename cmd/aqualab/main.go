// Command aqualab is a terminal client for the AquaLab school portal:
// login, browse and take quizzes as a student, inspect cohort performance
// as a teacher.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/JssMedrano/aqualab-go/internal/api"
	"github.com/JssMedrano/aqualab-go/internal/attempt"
	"github.com/JssMedrano/aqualab-go/internal/cache"
	"github.com/JssMedrano/aqualab-go/internal/config"
	"github.com/JssMedrano/aqualab-go/internal/db"
	"github.com/JssMedrano/aqualab-go/internal/localstore"
	"github.com/JssMedrano/aqualab-go/internal/logging"
	"github.com/JssMedrano/aqualab-go/internal/portal"
	"github.com/JssMedrano/aqualab-go/internal/report"
	"github.com/JssMedrano/aqualab-go/internal/session"
)

type app struct {
	client   *api.Client
	sessions *session.Store
	ledger   *cache.Ledger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Init(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dsn := cfg.DBDSN
	if dsn == "" && cfg.DBDriver == "sqlite" {
		if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("state dir")
		}
		dsn = "file:" + filepath.Join(cfg.StateDir, "client.db") + "?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	}
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), dsn, db.SchemaClient)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("db open failed")
	}

	state := localstore.New(dbh)
	client := api.New(cfg.APIBaseURL, &session.PersistedTokenSource{State: state}, api.Options{
		Timeout:       cfg.HTTPTimeout,
		PublicTimeout: cfg.PublicTimeout,
	})
	a := &app{
		client:   client,
		sessions: session.NewStore(state, client),
		ledger:   cache.New(state),
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx = context.Background()
	if _, err := a.sessions.Hydrate(ctx); err != nil {
		log.Warn().Err(err).Msg("could not hydrate session")
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: aqualab <command> [args]

  login-student <enrollmentNumber>
  login-teacher <email> <password>
  logout
  whoami
  years
  quizzes            available quizzes for the logged-in student
  take <quizID>      start and answer a quiz interactively
  history            completed attempts (remote, local fallback)
  report             cohort performance summary (teacher)
  set-year <n>       assign the logged-in teacher's cohort year`)
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login-student":
		if len(args) != 1 {
			return fmt.Errorf("usage: login-student <enrollmentNumber>")
		}
		sess, err := a.sessions.LoginStudent(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s (year %d)\n", sess.User.Name, sess.User.Year.Value())
		return nil

	case "login-teacher":
		if len(args) != 2 {
			return fmt.Errorf("usage: login-teacher <email> <password>")
		}
		sess, err := a.sessions.LoginTeacher(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s <%s>\n", sess.User.Name, sess.User.Email)
		return nil

	case "logout":
		return a.sessions.Logout(ctx)

	case "whoami":
		sess := a.sessions.Current()
		if !sess.Authenticated() {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Printf("%s (%s)\n", sess.User.Name, sess.Role)
		return nil

	case "years":
		// Public variant: failures degrade to an empty list by design.
		years, err := a.client.YearsPublic(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("public years listing unavailable")
		}
		for _, y := range years {
			fmt.Printf("%s\tyear %d\n", y.ID, y.Year)
		}
		return nil

	case "quizzes":
		return a.listQuizzes(ctx)

	case "take":
		if len(args) != 1 {
			return fmt.Errorf("usage: take <quizID>")
		}
		return a.takeQuiz(ctx, args[0])

	case "history":
		return a.history(ctx)

	case "report":
		return a.cohortReport(ctx)

	case "set-year":
		if len(args) != 1 {
			return fmt.Errorf("usage: set-year <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("year must be a number")
		}
		user, err := a.sessions.SetTeacherYear(ctx, n)
		if err != nil {
			return err
		}
		fmt.Printf("year set to %d\n", user.Year.Value())
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) coordinator(ctx context.Context) (*attempt.Coordinator, error) {
	id := a.sessions.UserID(ctx)
	if id == "" {
		return nil, fmt.Errorf("not logged in")
	}
	return attempt.NewCoordinator(a.client, a.ledger, id), nil
}

func (a *app) listQuizzes(ctx context.Context) error {
	coord, err := a.coordinator(ctx)
	if err != nil {
		return err
	}
	quizzes, err := coord.AvailableQuizzes(ctx, a.sessions.Current().User.Year.Value())
	if err != nil {
		return err
	}
	if len(quizzes) == 0 {
		fmt.Println("no quizzes available")
		return nil
	}
	for _, q := range quizzes {
		fmt.Printf("%s\t%s (%d questions)\n", q.ID, q.Title, len(q.Questions))
	}
	return nil
}

func (a *app) takeQuiz(ctx context.Context, quizID string) error {
	coord, err := a.coordinator(ctx)
	if err != nil {
		return err
	}
	if err := coord.Start(ctx, quizID); err != nil {
		return err
	}
	quiz := coord.Quiz()
	fmt.Printf("%s (%d questions)\n\n", quiz.Title, len(quiz.Questions))

	in := bufio.NewScanner(os.Stdin)
	for i, q := range quiz.Questions {
		fmt.Printf("%d) %s\n", i+1, q.Statement)
		for j, opt := range q.Options {
			fmt.Printf("   %d. %s\n", j+1, opt.Text)
		}
		for {
			fmt.Print("answer> ")
			if !in.Scan() {
				return fmt.Errorf("input closed before all questions were answered")
			}
			n, err := strconv.Atoi(strings.TrimSpace(in.Text()))
			if err != nil || n < 1 || n > len(q.Options) {
				fmt.Printf("enter a number between 1 and %d\n", len(q.Options))
				continue
			}
			if err := coord.Answer(i, q.Options[n-1].ID, n-1); err != nil {
				return err
			}
			break
		}
	}

	result, err := coord.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nsubmitted: %.0f/%.0f points (%d%%)\n", result.Score, result.TotalPoints, result.Percentage())
	return nil
}

func (a *app) history(ctx context.Context) error {
	coord, err := a.coordinator(ctx)
	if err != nil {
		return err
	}
	attempts, err := coord.CompletedAttempts(ctx)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Println("no completed quizzes yet")
		return nil
	}
	for _, att := range attempts {
		title := att.QuizTitle
		if title == "" {
			title = att.QuizID
		}
		fmt.Printf("%s\t%d%%\t%s\n", title, att.Percentage(), att.SubmittedAt)
	}
	return nil
}

func (a *app) cohortReport(ctx context.Context) error {
	sess := a.sessions.Current()
	if sess.Role != portal.RoleTeacher {
		return fmt.Errorf("report is teacher-only")
	}
	students, err := a.client.Students(ctx)
	if err != nil {
		return err
	}
	quizzes, err := a.client.Quizzes(ctx)
	if err != nil {
		// Dashboards render partial data instead of crashing.
		log.Warn().Err(err).Msg("could not load quizzes")
		quizzes = nil
	}

	agg := report.New(a.ledger)
	summary, perfs := agg.CohortSummary(ctx, students, quizzes)
	fmt.Printf("students: %d  quizzes: %d  completed: %d  overall average: %d%%\n\n",
		summary.TotalStudents, summary.TotalQuizzes, summary.TotalCompleted, summary.OverallAverage)
	for _, p := range perfs {
		fmt.Printf("%s\tyear %d\tcompleted %d\tavg %d%%\n",
			p.Student.Name, p.Student.Year.Value(), p.Completed, p.AverageScore)
	}
	return nil
}
