package api

import (
	"context"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

type loginResponse struct {
	Token string `json:"token"`
}

// LoginStudent exchanges an enrollment number for a bearer token.
func (c *Client) LoginStudent(ctx context.Context, enrollmentNumber string) (string, error) {
	raw, err := c.do(ctx, "POST", "/auth/student/login", map[string]string{
		"enrollmentNumber": enrollmentNumber,
	})
	if err != nil {
		return "", err
	}
	var res loginResponse
	if err := decodeInto(raw, &res); err != nil {
		return "", err
	}
	if res.Token == "" {
		return "", shapeError("login response carried no token")
	}
	return res.Token, nil
}

func (c *Client) LoginTeacher(ctx context.Context, email, password string) (string, error) {
	raw, err := c.do(ctx, "POST", "/auth/teacher/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	var res loginResponse
	if err := decodeInto(raw, &res); err != nil {
		return "", err
	}
	if res.Token == "" {
		return "", shapeError("login response carried no token")
	}
	return res.Token, nil
}

func (c *Client) RegisterStudent(ctx context.Context, name, enrollmentNumber string, year int) (portal.User, error) {
	raw, err := c.do(ctx, "POST", "/students", map[string]any{
		"name":             name,
		"enrollmentNumber": enrollmentNumber,
		"year":             year,
	})
	if err != nil {
		return portal.User{}, err
	}
	var u portal.User
	if err := decodeInto(raw, &u); err != nil {
		return portal.User{}, err
	}
	return u.Sanitize(), nil
}

func (c *Client) RegisterTeacher(ctx context.Context, name, enrollmentNumber, email, password string) (portal.User, error) {
	raw, err := c.do(ctx, "POST", "/teachers", map[string]any{
		"name":             name,
		"enrollmentNumber": enrollmentNumber,
		"email":            email,
		"password":         password,
	})
	if err != nil {
		return portal.User{}, err
	}
	var u portal.User
	if err := decodeInto(raw, &u); err != nil {
		return portal.User{}, err
	}
	return u.Sanitize(), nil
}
