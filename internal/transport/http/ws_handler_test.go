package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsState struct {
	State   string `json:"state"`
	Attempt *struct {
		Questions []struct {
			ID      int      `json:"id"`
			Options []string `json:"options"`
			Correct string   `json:"correct"`
		} `json:"questions"`
		Answers map[string]struct {
			Confidence string `json:"confidence"`
		} `json:"answers"`
		Flagged       []int `json:"flagged"`
		Cursor        int   `json:"cursor"`
		AnsweredCount int   `json:"answeredCount"`
	} `json:"attempt"`
}

func dialQuiz(t *testing.T, env *testEnv, learnerID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/quiz?learnerId=" + learnerID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil skips messages until one of type typ satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	for i := 0; i < 50; i++ {
		var msg wsMessage
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read %s: %v", typ, err)
		}
		if msg.Type == typ && (match == nil || match(msg.Payload)) {
			return msg.Payload
		}
	}
	t.Fatalf("no %s message received", typ)
	return nil
}

func inState(state string) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		var s wsState
		return json.Unmarshal(raw, &s) == nil && s.State == state
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// step sends one command and returns the state it produced, failing on an error reply.
func step(t *testing.T, conn *websocket.Conn, typ string, payload any) wsState {
	t.Helper()
	send(t, conn, typ, payload)
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read reply to %s: %v", typ, err)
	}
	if msg.Type != "state" {
		t.Fatalf("%s: expected state reply, got %s %s", typ, msg.Type, msg.Payload)
	}
	var state wsState
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		t.Fatalf("decode %s reply: %v", typ, err)
	}
	if state.Attempt == nil {
		t.Fatalf("%s: reply has no attempt: %s", typ, msg.Payload)
	}
	return state
}

func TestWebSocketQuizFlow(t *testing.T) {
	env := newTestEnv(t)
	conn := dialQuiz(t, env, "ws-learner")

	readUntil(t, conn, "state", inState("entry"))
	send(t, conn, "start", map[string]any{"moduleId": "module-1", "count": 3})

	var quiz wsState
	if err := json.Unmarshal(readUntil(t, conn, "state", inState("quiz")), &quiz); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if quiz.Attempt == nil || len(quiz.Attempt.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %+v", quiz.Attempt)
	}
	for _, q := range quiz.Attempt.Questions {
		if q.Correct != "" {
			t.Fatalf("correct option leaked for question %d", q.ID)
		}
	}

	first := quiz.Attempt.Questions[0]
	answered := step(t, conn, "answer", map[string]any{"questionId": first.ID, "option": first.Options[0]})
	if answered.Attempt == nil || answered.Attempt.AnsweredCount != 1 {
		t.Fatalf("answer not recorded: %+v", answered.Attempt)
	}
	confident := step(t, conn, "confidence", map[string]any{"questionId": first.ID, "level": "High"})
	if got := confident.Attempt.Answers[strconv.Itoa(first.ID)].Confidence; got != "High" {
		t.Fatalf("expected High confidence on the attempt, got %q", got)
	}
	flagged := step(t, conn, "flag", map[string]any{"questionId": first.ID})
	if len(flagged.Attempt.Flagged) != 1 || flagged.Attempt.Flagged[0] != first.ID {
		t.Fatalf("expected question %d flagged, got %v", first.ID, flagged.Attempt.Flagged)
	}
	moved := step(t, conn, "navigate", map[string]any{"direction": "next"})
	if moved.Attempt.Cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", moved.Attempt.Cursor)
	}
	send(t, conn, "submit", nil)

	var result struct {
		ModuleID  string `json:"moduleId"`
		Persisted bool   `json:"persisted"`
		Response  struct {
			Answers []struct {
				Confidence string `json:"confidence"`
			} `json:"answers"`
		} `json:"response"`
	}
	if err := json.Unmarshal(readUntil(t, conn, "result", nil), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ModuleID != "module-1" || !result.Persisted || len(result.Response.Answers) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Response.Answers[0].Confidence != "High" {
		t.Fatalf("expected High confidence, got %q", result.Response.Answers[0].Confidence)
	}

	store, err := env.progress.Store(context.Background(), "ws-learner")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, ok := store.Progress().QuizResponses["module-1"]; !ok {
		t.Fatalf("quiz response not persisted to progress")
	}

	send(t, conn, "review", nil)
	readUntil(t, conn, "state", inState("review"))
	send(t, conn, "retry", nil)
	readUntil(t, conn, "state", inState("entry"))
}

func TestWebSocketReportsErrors(t *testing.T) {
	env := newTestEnv(t)
	conn := dialQuiz(t, env, "ws-errors")
	readUntil(t, conn, "state", inState("entry"))

	cases := []struct {
		typ     string
		payload any
		code    string
	}{
		{"dance", nil, "bad_request"},
		{"start", map[string]any{"moduleId": "module-99"}, "invalid_module"},
		{"answer", map[string]any{"questionId": 1, "option": "x"}, "attempt_not_active"},
		{"start", "not-an-object", "bad_request"},
	}
	for _, tc := range cases {
		send(t, conn, tc.typ, tc.payload)
		var payload errorPayload
		if err := json.Unmarshal(readUntil(t, conn, "error", nil), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Code != tc.code {
			t.Fatalf("%s: expected code %s, got %s (%s)", tc.typ, tc.code, payload.Code, payload.Message)
		}
	}
}

func TestWebSocketCloseAbandonsAttempt(t *testing.T) {
	env := newTestEnv(t)
	conn := dialQuiz(t, env, "ws-leaver")
	readUntil(t, conn, "state", inState("entry"))
	send(t, conn, "start", map[string]any{"moduleId": "module-2"})
	readUntil(t, conn, "state", inState("quiz"))
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := env.quiz.Lookup("ws-leaver"); err != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session still registered after disconnect")
}

func TestWebSocketRequiresLearner(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/ws/quiz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
