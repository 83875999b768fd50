package api

import (
	"context"
	"encoding/json"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

// SubmitAttempt posts the ordered answer list for an attempt. The raw body is
// returned for normalization; its shape varies across deployments.
func (c *Client) SubmitAttempt(ctx context.Context, attemptID, quizID string, answers []portal.Answer) (json.RawMessage, error) {
	return c.do(ctx, "POST", "/quiz-attempts", map[string]any{
		"attemptId": attemptID,
		"quizId":    quizID,
		"answers":   answers,
	})
}

// MyAttempts lists the current user's attempts.
func (c *Client) MyAttempts(ctx context.Context) ([]portal.Attempt, error) {
	raw, err := c.do(ctx, "GET", "/quiz-attempts", nil)
	if err != nil {
		return nil, err
	}
	return portal.DecodeList[portal.Attempt](raw, "attempts")
}

func (c *Client) Attempt(ctx context.Context, id string) (portal.Attempt, error) {
	raw, err := c.do(ctx, "GET", "/quiz-attempts/"+id, nil)
	if err != nil {
		return portal.Attempt{}, err
	}
	var a portal.Attempt
	if err := decodeInto(raw, &a); err != nil {
		return portal.Attempt{}, err
	}
	return a, nil
}

func (c *Client) DeleteAttempt(ctx context.Context, id string) error {
	_, err := c.do(ctx, "DELETE", "/quiz-attempts/"+id, nil)
	return err
}
