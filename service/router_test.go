package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ibreez3/ai-chat/chat"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestRouterConversation(t *testing.T) {
	r := NewRouter(NewManager(echo, quietLogger()), quietLogger(), time.Second)

	w := do(t, r, http.MethodPost, "/api/sessions", CreateSessionReq{System: "be brief"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	id := decode[struct{ ID string }](t, w).ID

	w = do(t, r, http.MethodPost, "/api/sessions/"+id+"/ask", AskReq{Prompt: "What is the square root of 256?"})
	if w.Code != http.StatusOK {
		t.Fatalf("ask = %d %s", w.Code, w.Body.String())
	}
	if reply := decode[struct{ Reply string }](t, w).Reply; reply != "echo: What is the square root of 256?" {
		t.Errorf("reply = %q", reply)
	}

	w = do(t, r, http.MethodGet, "/api/sessions/"+id+"/transcript", nil)
	transcript := decode[struct{ Transcript []string }](t, w).Transcript
	if len(transcript) != 3 || transcript[0] != "be brief" {
		t.Errorf("transcript = %v", transcript)
	}

	w = do(t, r, http.MethodGet, "/api/sessions/"+id+"/messages", nil)
	msgs := decode[struct{ Messages chat.History }](t, w).Messages
	if len(msgs) != 3 || !msgs[0].IsSystem() || !msgs[2].IsAssistant() {
		t.Errorf("messages = %+v", msgs)
	}

	w = do(t, r, http.MethodGet, "/api/sessions/"+id, nil)
	if info := decode[SessionInfo](t, w); info.Messages != 3 || info.Status != SessionReady {
		t.Errorf("info = %+v", info)
	}

	if w = do(t, r, http.MethodDelete, "/api/sessions/"+id, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
	if w = do(t, r, http.MethodGet, "/api/sessions/"+id+"/transcript", nil); w.Code != http.StatusNotFound {
		t.Errorf("transcript after delete = %d", w.Code)
	}
}

func TestRouterCreateWithEmptyBody(t *testing.T) {
	r := NewRouter(NewManager(echo, quietLogger()), quietLogger(), 0)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("create = %d %s", w.Code, w.Body.String())
	}
}

func TestRouterAskValidation(t *testing.T) {
	r := NewRouter(NewManager(echo, quietLogger()), quietLogger(), 0)
	if w := do(t, r, http.MethodPost, "/api/sessions/missing/ask", AskReq{Prompt: "q"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown session = %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/api/sessions", nil)
	id := decode[struct{ ID string }](t, w).ID
	if w := do(t, r, http.MethodPost, "/api/sessions/"+id+"/ask", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing prompt = %d", w.Code)
	}
	bad := map[string]any{"messages": []map[string]string{{"role": "oracle", "content": "x"}}}
	if w := do(t, r, http.MethodPost, "/api/sessions", bad); w.Code != http.StatusBadRequest {
		t.Errorf("invalid role = %d", w.Code)
	}
}

func TestRouterCompletions(t *testing.T) {
	r := NewRouter(NewManager(echo, quietLogger()), quietLogger(), time.Second)
	w := do(t, r, http.MethodPost, "/api/completions", CompleteReq{Messages: chat.History{chat.UserMessage("pick a colour")}, N: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("completions = %d %s", w.Code, w.Body.String())
	}
	if choices := decode[struct{ Choices chat.History }](t, w).Choices; len(choices) != 2 {
		t.Errorf("choices = %v", choices)
	}

	if w := do(t, r, http.MethodPost, "/api/completions", CompleteReq{N: 1}); w.Code != http.StatusBadRequest {
		t.Errorf("empty history = %d", w.Code)
	}
}

func TestRouterRetriesExhausted(t *testing.T) {
	backend := chat.BackendFunc(func(context.Context, chat.Request) (chat.Response, error) {
		return chat.Response{}, &chat.APIError{StatusCode: 503}
	})
	opts := chat.DefaultOptions()
	opts.MaxRetries = 2
	gen, err := chat.NewGenerator(backend, opts)
	if err != nil {
		t.Fatal(err)
	}
	gen.WithSleep(func(context.Context, time.Duration) error { return nil })

	mgr := NewManager(gen, quietLogger())
	r := NewRouter(mgr, quietLogger(), time.Second)
	id := decode[struct{ ID string }](t, do(t, r, http.MethodPost, "/api/sessions", nil)).ID

	w := do(t, r, http.MethodPost, "/api/sessions/"+id+"/ask", AskReq{Prompt: "q"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ask = %d, want 503", w.Code)
	}
	transcript := decode[struct{ Transcript []string }](t, do(t, r, http.MethodGet, "/api/sessions/"+id+"/transcript", nil)).Transcript
	if len(transcript) != 1 || transcript[0] != "q" {
		t.Errorf("transcript = %v, want the user prompt kept", transcript)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: ErrSessionNotFound, want: http.StatusNotFound},
		{name: "configuration", err: &chat.ConfigurationError{Field: "n"}, want: http.StatusBadRequest},
		{name: "role", err: &chat.InvalidRoleError{Tag: "x"}, want: http.StatusBadRequest},
		{name: "exhausted", err: &chat.RetriesExhaustedError{Attempts: 3, Last: &chat.TransientRequestError{Err: errors.New("x")}}, want: http.StatusServiceUnavailable},
		{name: "fatal", err: &chat.FatalRequestError{Err: errors.New("x")}, want: http.StatusBadGateway},
		{name: "deadline", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("x"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor = %d, want %d", got, tt.want)
			}
		})
	}
}
