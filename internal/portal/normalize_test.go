package portal

import (
	"encoding/json"
	"testing"
)

func TestFlexYearShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"number", `7`, 7},
		{"numeric string", `"7"`, 7},
		{"object", `{"id":"y1","year":7}`, 7},
		{"null", `null`, 0},
		{"garbage string", `"seventh"`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var y FlexYear
			if err := json.Unmarshal([]byte(tc.in), &y); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if y.Value() != tc.want {
				t.Fatalf("got %d, want %d", y.Value(), tc.want)
			}
		})
	}
}

func TestAttemptIDFromResponse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"nested data.id", `{"success":true,"data":{"id":"att-1","questions":[]}}`, "att-1"},
		{"top-level id", `{"id":"att-2"}`, "att-2"},
		{"attemptId", `{"attemptId":"att-3"}`, "att-3"},
		{"nested attemptId", `{"data":{"attemptId":"att-4"}}`, "att-4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AttemptIDFromResponse(json.RawMessage(tc.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}

	if _, err := AttemptIDFromResponse(json.RawMessage(`{"status":"ok"}`)); err == nil {
		t.Fatalf("expected error when no id is present in any known shape")
	}
}

func TestQuizFromResponse(t *testing.T) {
	raw := json.RawMessage(`{"data":{"id":"q1","title":"Tides","questions":[{"id":"qq1","statement":"?","options":[{"id":"o1","text":"a"}]}]}}`)
	q, err := QuizFromResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.ID != "q1" || len(q.Questions) != 1 {
		t.Fatalf("bad quiz: %+v", q)
	}

	// A quiz without questions cannot be rendered.
	if _, err := QuizFromResponse(json.RawMessage(`{"id":"q2","title":"Empty"}`)); err == nil {
		t.Fatalf("expected error for quiz without questions")
	}
}

func TestDecodeListEnvelopes(t *testing.T) {
	for name, raw := range map[string]string{
		"bare array": `[{"id":"y1","year":5}]`,
		"data":       `{"data":[{"id":"y1","year":5}]}`,
		"plural key": `{"years":[{"id":"y1","year":5}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			years, err := DecodeList[Year](json.RawMessage(raw), "years")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(years) != 1 || years[0].Year != 5 {
				t.Fatalf("bad decode: %+v", years)
			}
		})
	}

	years, err := DecodeList[Year](json.RawMessage(`{"unrelated":1}`), "years")
	if err != nil || len(years) != 0 {
		t.Fatalf("expected empty list for unknown envelope, got %v / %v", years, err)
	}
}

func intPtr(n int) *int { return &n }

func TestPercentageTiers(t *testing.T) {
	cases := []struct {
		name string
		att  Attempt
		want int
	}{
		{"correct over questions", Attempt{CorrectAnswers: intPtr(2), TotalQuestions: 3, Score: 99, TotalPoints: 100}, 67},
		{"score over points", Attempt{Score: 30, TotalPoints: 40}, 75},
		{"score as correctness count", Attempt{Score: 2, TotalQuestions: 4}, 50},
		{"no usable data", Attempt{Score: 10}, 0},
		{"clamped high", Attempt{CorrectAnswers: intPtr(9), TotalQuestions: 3}, 100},
		{"zero everything", Attempt{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.att.Percentage(); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPercentageBounds(t *testing.T) {
	// Whatever tier fires, the result stays in [0, 100].
	attempts := []Attempt{
		{Score: -5, TotalPoints: 10},
		{Score: 500, TotalPoints: 10, TotalQuestions: 3},
		{CorrectAnswers: intPtr(-1), TotalQuestions: 3},
	}
	for _, att := range attempts {
		p := att.Percentage()
		if p < 0 || p > 100 {
			t.Fatalf("percentage %d out of bounds for %+v", p, att)
		}
	}
}

func TestSanitizeStripsPassword(t *testing.T) {
	u := User{ID: "t1", Name: "Prof", Password: "hunter2"}
	if got := u.Sanitize(); got.Password != "" {
		t.Fatalf("password survived sanitize")
	}
	if u.Password != "hunter2" {
		t.Fatalf("sanitize mutated the receiver")
	}
}
