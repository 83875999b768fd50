package api

import (
	"context"
	"encoding/json"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

func (c *Client) CreateQuiz(ctx context.Context, quiz portal.Quiz) (portal.Quiz, error) {
	raw, err := c.do(ctx, "POST", "/quizzes", quiz)
	if err != nil {
		return portal.Quiz{}, err
	}
	var q portal.Quiz
	if err := decodeInto(raw, &q); err != nil {
		return portal.Quiz{}, err
	}
	return q, nil
}

func (c *Client) Quizzes(ctx context.Context) ([]portal.Quiz, error) {
	raw, err := c.do(ctx, "GET", "/quizzes", nil)
	if err != nil {
		return nil, err
	}
	return portal.DecodeList[portal.Quiz](raw, "quizzes")
}

func (c *Client) TeacherQuizzes(ctx context.Context, teacherID string) ([]portal.Quiz, error) {
	raw, err := c.do(ctx, "GET", "/quizzes/teacher/"+teacherID, nil)
	if err != nil {
		return nil, err
	}
	return portal.DecodeList[portal.Quiz](raw, "quizzes")
}

// Quiz fetches one quiz with full content via the teacher path.
func (c *Client) Quiz(ctx context.Context, id string) (portal.Quiz, error) {
	raw, err := c.do(ctx, "GET", "/quizzes/"+id, nil)
	if err != nil {
		return portal.Quiz{}, err
	}
	return portal.QuizFromResponse(raw)
}

func (c *Client) UpdateQuiz(ctx context.Context, id string, quiz portal.Quiz) (portal.Quiz, error) {
	raw, err := c.do(ctx, "PUT", "/quizzes/"+id, quiz)
	if err != nil {
		return portal.Quiz{}, err
	}
	var q portal.Quiz
	if err := decodeInto(raw, &q); err != nil {
		return portal.Quiz{}, err
	}
	return q, nil
}

func (c *Client) DeleteQuiz(ctx context.Context, id string) error {
	_, err := c.do(ctx, "DELETE", "/quizzes/"+id, nil)
	return err
}

// StartQuiz creates (or resumes) an attempt on the student path. The raw body
// is returned alongside so callers can normalize the attempt id and, on some
// deployments, the quiz content it carries as a side effect.
func (c *Client) StartQuiz(ctx context.Context, quizID string) (json.RawMessage, error) {
	return c.do(ctx, "POST", "/quizzes/"+quizID+"/start", map[string]any{})
}
