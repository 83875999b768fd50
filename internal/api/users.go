package api

import (
	"context"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

func (c *Client) Students(ctx context.Context) ([]portal.User, error) {
	raw, err := c.do(ctx, "GET", "/students", nil)
	if err != nil {
		return nil, err
	}
	return portal.DecodeList[portal.User](raw, "students")
}

func (c *Client) Student(ctx context.Context, id string) (portal.User, error) {
	raw, err := c.do(ctx, "GET", "/students/"+id, nil)
	if err != nil {
		return portal.User{}, err
	}
	var u portal.User
	if err := decodeInto(raw, &u); err != nil {
		return portal.User{}, err
	}
	return u.Sanitize(), nil
}

func (c *Client) UpdateStudent(ctx context.Context, id string, fields map[string]any) (portal.User, error) {
	raw, err := c.do(ctx, "PUT", "/students/"+id, fields)
	if err != nil {
		return portal.User{}, err
	}
	var u portal.User
	if err := decodeInto(raw, &u); err != nil {
		return portal.User{}, err
	}
	return u.Sanitize(), nil
}

func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	_, err := c.do(ctx, "DELETE", "/students/"+id, nil)
	return err
}

func (c *Client) Teachers(ctx context.Context) ([]portal.User, error) {
	raw, err := c.do(ctx, "GET", "/teachers", nil)
	if err != nil {
		return nil, err
	}
	return portal.DecodeList[portal.User](raw, "teachers")
}

func (c *Client) Teacher(ctx context.Context, id string) (portal.User, error) {
	raw, err := c.do(ctx, "GET", "/teachers/"+id, nil)
	if err != nil {
		return portal.User{}, err
	}
	var u portal.User
	if err := decodeInto(raw, &u); err != nil {
		return portal.User{}, err
	}
	return u.Sanitize(), nil
}

func (c *Client) UpdateTeacher(ctx context.Context, id string, fields map[string]any) (portal.User, error) {
	raw, err := c.do(ctx, "PUT", "/teachers/"+id, fields)
	if err != nil {
		return portal.User{}, err
	}
	var u portal.User
	if err := decodeInto(raw, &u); err != nil {
		return portal.User{}, err
	}
	return u.Sanitize(), nil
}

func (c *Client) DeleteTeacher(ctx context.Context, id string) error {
	_, err := c.do(ctx, "DELETE", "/teachers/"+id, nil)
	return err
}

// StudentResults is the teacher view of one student: the server's attempt
// list plus its stats block, defaulting to zeros when omitted.
func (c *Client) StudentResults(ctx context.Context, studentID string) (portal.StudentResults, error) {
	raw, err := c.do(ctx, "GET", "/students/"+studentID+"/results", nil)
	if err != nil {
		return portal.StudentResults{}, err
	}
	var res portal.StudentResults
	if err := decodeInto(raw, &res); err != nil {
		return portal.StudentResults{}, err
	}
	if res.Attempts == nil {
		res.Attempts = []portal.Attempt{}
	}
	return res, nil
}
