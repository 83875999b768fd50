package api

import (
	"encoding/json"
	"errors"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindServer       Kind = "server"
	KindUnavailable  Kind = "unavailable" // no response at all
	KindBadShape     Kind = "bad_shape"
)

// Error is the one error type the gateway surfaces. The fixed messages for
// 401/403/404 and network failures are what the UI error banners show, so
// they must stay stable.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is lets callers match on kind via errors.Is(err, &Error{Kind: ...}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newNetworkError() *Error {
	return &Error{Kind: KindUnavailable, Message: "could not reach server"}
}

// shapeError marks a response the client could not make sense of.
func shapeError(msg string) *Error {
	return &Error{Kind: KindBadShape, Message: msg}
}

// statusError maps an HTTP failure status to the portal's canonical message,
// preferring nothing over the fixed strings for the codes the UI special-cases.
func statusError(status int, body []byte) *Error {
	switch status {
	case 401:
		return &Error{Kind: KindUnauthorized, Status: status, Message: "invalid or expired token"}
	case 403:
		return &Error{Kind: KindForbidden, Status: status, Message: "access denied"}
	case 404:
		return &Error{Kind: KindNotFound, Status: status, Message: "endpoint not implemented"}
	}

	kind := KindServer
	if status >= 400 && status < 500 {
		kind = KindValidation
	}
	msg := serverMessage(body)
	if msg == "" {
		msg = "request failed"
	}
	return &Error{Kind: kind, Status: status, Message: msg}
}

// serverMessage digs the human message out of an error body, whichever of the
// observed fields it arrived under.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
