package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/clearterms/clearterms-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	return string(b)
}

// fakeModelServer answers per-model, recording which models were tried.
func fakeModelServer(t *testing.T, respond func(model string, w http.ResponseWriter)) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var tried []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Path: /v1beta/models/{model}:generateContent
		parts := strings.Split(r.URL.Path, "/")
		last := parts[len(parts)-1]
		model := strings.TrimSuffix(last, ":generateContent")
		mu.Lock()
		tried = append(tried, model)
		mu.Unlock()
		respond(model, w)
	}))
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), tried...)
	}
}

func TestGenerateUsesFirstWorkingModel(t *testing.T) {
	srv, tried := fakeModelServer(t, func(model string, w http.ResponseWriter) {
		switch model {
		case "m1":
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"backend overloaded"}}`)
		case "m2":
			fmt.Fprint(w, `{"candidates":[]}`)
		default:
			fmt.Fprint(w, candidateBody(`{"site_name":"Ex"}`))
		}
	})
	defer srv.Close()

	c, err := New(testLogger(t), Options{BaseURL: srv.URL, APIKey: "test-key", Models: []string{"m1", "m2", "m3"}})
	if err != nil {
		t.Fatalf("client init: %v", err)
	}

	text, model, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "m3" {
		t.Fatalf("expected m3 to answer, got %s", model)
	}
	if text != `{"site_name":"Ex"}` {
		t.Fatalf("unexpected text: %q", text)
	}
	if got := tried(); len(got) != 3 {
		t.Fatalf("expected 3 attempts, got %v", got)
	}
}

func TestGenerateExhaustionNamesLastFailure(t *testing.T) {
	srv, _ := fakeModelServer(t, func(model string, w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprintf(w, `{"error":{"message":"quota exceeded for %s"}}`, model)
	})
	defer srv.Close()

	c, err := New(testLogger(t), Options{BaseURL: srv.URL, APIKey: "test-key", Models: []string{"m1", "m2"}})
	if err != nil {
		t.Fatalf("client init: %v", err)
	}

	_, _, err = c.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatalf("expected exhaustion error")
	}
	if !strings.Contains(err.Error(), "all models failed") || !strings.Contains(err.Error(), "m2") {
		t.Fatalf("error should name the last model's failure, got: %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded for m2") {
		t.Fatalf("error should carry the underlying reason, got: %v", err)
	}
}

func TestGenerateRejectsEmptyBody(t *testing.T) {
	srv, _ := fakeModelServer(t, func(model string, w http.ResponseWriter) {
		// 200 with an empty body is still a failure.
	})
	defer srv.Close()

	c, err := New(testLogger(t), Options{BaseURL: srv.URL, APIKey: "test-key", Models: []string{"m1"}})
	if err != nil {
		t.Fatalf("client init: %v", err)
	}

	if _, _, err := c.Generate(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error for empty body")
	}
}

func TestGenerateRejectsEmptyCandidateText(t *testing.T) {
	srv, _ := fakeModelServer(t, func(model string, w http.ResponseWriter) {
		fmt.Fprint(w, candidateBody(""))
	})
	defer srv.Close()

	c, err := New(testLogger(t), Options{BaseURL: srv.URL, APIKey: "test-key", Models: []string{"m1"}})
	if err != nil {
		t.Fatalf("client init: %v", err)
	}

	_, _, err = c.Generate(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "no candidate text") {
		t.Fatalf("expected missing-candidate error, got: %v", err)
	}
}

func TestNewRequiresAPIKeyAndModels(t *testing.T) {
	if _, err := New(testLogger(t), Options{Models: []string{"m1"}}); err == nil {
		t.Fatalf("expected error for missing API key")
	}
	if _, err := New(testLogger(t), Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for empty model list")
	}
}
