package portal

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// FlexYear tolerates the year shapes the server has been observed to emit:
// a bare number, a numeric string, or a cohort object carrying a "year" field.
// Everything is normalized to a primitive int before comparison or sorting.
type FlexYear int

func (y *FlexYear) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*y = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*y = FlexYear(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			*y = 0
			return nil
		}
		*y = FlexYear(n)
		return nil
	}
	var obj struct {
		Year int `json:"year"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		*y = FlexYear(obj.Year)
		return nil
	}
	*y = 0
	return nil
}

func (y FlexYear) MarshalJSON() ([]byte, error) {
	if y == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(int(y))
}

func (y FlexYear) Value() int { return int(y) }

var ErrNoAttemptID = errors.New("no attempt id received")

// AttemptIDFromResponse probes the known response shapes for the identifier
// of a freshly created attempt: nested under data.id, top-level id, or
// attemptId. The probing lives here and nowhere else.
func AttemptIDFromResponse(raw json.RawMessage) (string, error) {
	var envelope struct {
		Data struct {
			ID        string `json:"id"`
			AttemptID string `json:"attemptId"`
		} `json:"data"`
		ID        string `json:"id"`
		AttemptID string `json:"attemptId"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", ErrNoAttemptID
	}
	for _, id := range []string{envelope.Data.ID, envelope.Data.AttemptID, envelope.ID, envelope.AttemptID} {
		if id != "" {
			return id, nil
		}
	}
	return "", ErrNoAttemptID
}

// QuizFromResponse extracts quiz content from either a bare quiz object or a
// {data: {...}} envelope. A quiz without a questions array is unusable.
func QuizFromResponse(raw json.RawMessage) (Quiz, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	body := raw
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		body = envelope.Data
	}
	var q Quiz
	if err := json.Unmarshal(body, &q); err != nil {
		return Quiz{}, errors.New("unrecognized quiz response shape")
	}
	if len(q.Questions) == 0 {
		return Quiz{}, errors.New("quiz response has no questions")
	}
	return q, nil
}

// DecodeList accepts the three observed list envelopes: a bare array,
// {data: [...]}, or {<key>: [...]} for the endpoint's plural name. Missing or
// null bodies decode to an empty slice, never an error.
func DecodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	if len(raw) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.New("unrecognized list response shape")
	}
	for _, k := range []string{key, "data"} {
		if inner, ok := envelope[k]; ok && string(inner) != "null" {
			if err := json.Unmarshal(inner, &items); err == nil {
				return items, nil
			}
		}
	}
	return []T{}, nil
}

// Percentage derives a display percentage for an attempt using the three-tier
// policy the response variance forces: correct/totalQuestions when a correct
// count exists, then score/totalPoints, then score treated as a correctness
// count when it is bounded by totalQuestions. Clamped to [0, 100].
func (a Attempt) Percentage() int {
	p := 0.0
	switch {
	case a.CorrectAnswers != nil && a.TotalQuestions > 0:
		p = float64(*a.CorrectAnswers) / float64(a.TotalQuestions) * 100
	case a.TotalPoints > 0 && a.Score <= a.TotalPoints:
		p = a.Score / a.TotalPoints * 100
	case a.TotalQuestions > 0 && a.Score <= float64(a.TotalQuestions):
		p = a.Score / float64(a.TotalQuestions) * 100
	}
	n := int(math.Round(p))
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n
}
