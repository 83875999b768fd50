// Package report computes teacher-facing performance statistics client-side;
// the portal has no dedicated aggregation endpoint.
package report

import (
	"context"
	"math"
	"sort"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

// AttemptSource yields a student's completed attempts, local ledger or remote.
type AttemptSource interface {
	Attempts(ctx context.Context, studentID string) ([]portal.Attempt, error)
}

type Performance struct {
	Student      portal.User
	Attempts     []portal.Attempt
	Completed    int
	AverageScore int // mean of per-attempt percentages, 0-100
}

type Summary struct {
	TotalStudents  int
	TotalQuizzes   int
	TotalCompleted int
	OverallAverage int // unweighted mean of per-student averages
}

type Aggregator struct {
	source AttemptSource
}

func New(source AttemptSource) *Aggregator { return &Aggregator{source: source} }

// StudentPerformance merges the student's attempt records into completion
// count and average score. Each attempt's percentage uses the same derivation
// policy as the attempt coordinator.
func (a *Aggregator) StudentPerformance(ctx context.Context, student portal.User) (Performance, error) {
	attempts, err := a.source.Attempts(ctx, student.ID)
	if err != nil {
		return Performance{Student: student, Attempts: []portal.Attempt{}}, err
	}
	p := Performance{Student: student, Attempts: attempts, Completed: len(attempts)}
	if len(attempts) == 0 {
		return p, nil
	}
	sum := 0
	for _, att := range attempts {
		sum += att.Percentage()
	}
	p.AverageScore = int(math.Round(float64(sum) / float64(len(attempts))))
	return p, nil
}

// CohortSummary aggregates across students. The overall average is the
// unweighted mean of per-student averages, not a weighted mean over all
// attempts; attempt counts differ per student but each student counts once.
// Per-student source errors degrade that student to zero data rather than
// failing the dashboard.
func (a *Aggregator) CohortSummary(ctx context.Context, students []portal.User, quizzes []portal.Quiz) (Summary, []Performance) {
	s := Summary{TotalStudents: len(students), TotalQuizzes: len(quizzes)}
	perfs := make([]Performance, 0, len(students))
	for _, student := range students {
		p, _ := a.StudentPerformance(ctx, student)
		perfs = append(perfs, p)
		s.TotalCompleted += p.Completed
	}
	if len(perfs) > 0 {
		sum := 0
		for _, p := range perfs {
			sum += p.AverageScore
		}
		s.OverallAverage = int(math.Round(float64(sum) / float64(len(perfs))))
	}
	return s, perfs
}

// FilterByYear keeps students whose normalized year matches. The year field
// may arrive as a raw number or an object; FlexYear has already normalized it.
func FilterByYear(students []portal.User, year int) []portal.User {
	out := make([]portal.User, 0, len(students))
	for _, s := range students {
		if s.Year.Value() == year {
			out = append(out, s)
		}
	}
	return out
}

// UniqueYears returns the distinct cohort years present, ascending.
func UniqueYears(students []portal.User) []int {
	seen := map[int]bool{}
	var years []int
	for _, s := range students {
		y := s.Year.Value()
		if y > 0 && !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}
