// Package cache is the per-student fallback ledger of quiz completions: an
// eventually-consistent client-side mirror of server state, used when the
// remote attempts listing is unavailable. It is never synchronized back to
// the server, and callers must not block core flows on its availability.
package cache

import (
	"context"
	"encoding/json"

	"github.com/JssMedrano/aqualab-go/internal/localstore"
	"github.com/JssMedrano/aqualab-go/internal/portal"
)

type Ledger struct {
	state *localstore.Store
}

func New(state *localstore.Store) *Ledger { return &Ledger{state: state} }

// Record appends a completed attempt to the front of the student's attempt
// list (most recent first) and adds the quiz id to the completed-ID index.
// The index insertion is idempotent.
func (l *Ledger) Record(ctx context.Context, studentID string, att portal.Attempt) error {
	attempts, err := l.Attempts(ctx, studentID)
	if err != nil {
		return err
	}
	attempts = append([]portal.Attempt{att}, attempts...)
	buf, err := json.Marshal(attempts)
	if err != nil {
		return err
	}
	if err := l.state.Set(ctx, localstore.AttemptsKey(studentID), buf); err != nil {
		return err
	}

	if att.QuizID == "" {
		return nil
	}
	ids, err := l.CompletedQuizIDs(ctx, studentID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == att.QuizID {
			return nil
		}
	}
	ids = append(ids, att.QuizID)
	buf, err = json.Marshal(ids)
	if err != nil {
		return err
	}
	return l.state.Set(ctx, localstore.CompletedIDsKey(studentID), buf)
}

// Attempts returns the student's recorded attempts, most recent first.
func (l *Ledger) Attempts(ctx context.Context, studentID string) ([]portal.Attempt, error) {
	raw, ok, err := l.state.Get(ctx, localstore.AttemptsKey(studentID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []portal.Attempt{}, nil
	}
	var attempts []portal.Attempt
	if err := json.Unmarshal(raw, &attempts); err != nil {
		return []portal.Attempt{}, nil
	}
	return attempts, nil
}

// CompletedQuizIDs returns the quiz ids the student has completed, for fast
// exclusion when listing available quizzes.
func (l *Ledger) CompletedQuizIDs(ctx context.Context, studentID string) ([]string, error) {
	raw, ok, err := l.state.Get(ctx, localstore.CompletedIDsKey(studentID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return []string{}, nil
	}
	return ids, nil
}
