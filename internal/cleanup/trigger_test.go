package cleanup

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doTrigger(h http.Handler, method, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/internal/cleanup", strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTriggerHandler_PublishesAndAccepts(t *testing.T) {
	var published []Request
	h := NewTriggerHandler("secret", func(req Request) error {
		published = append(published, req)
		return nil
	})

	rec := doTrigger(h, http.MethodPost, "Bearer secret", `{"uid":"u1"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusAccepted)
	}
	if len(published) != 1 || published[0].UID != "u1" {
		t.Errorf("published %v, want one request for u1", published)
	}
}

func TestTriggerHandler_Rejections(t *testing.T) {
	h := NewTriggerHandler("secret", func(Request) error {
		t.Error("publish must not be called for rejected requests")
		return nil
	})

	tests := []struct {
		name   string
		method string
		auth   string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "Bearer secret", `{"uid":"u1"}`, http.StatusMethodNotAllowed},
		{"missing auth", http.MethodPost, "", `{"uid":"u1"}`, http.StatusUnauthorized},
		{"wrong token", http.MethodPost, "Bearer nope", `{"uid":"u1"}`, http.StatusUnauthorized},
		{"malformed body", http.MethodPost, "Bearer secret", `{`, http.StatusBadRequest},
		{"missing uid", http.MethodPost, "Bearer secret", `{}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doTrigger(h, tt.method, tt.auth, tt.body)
			if rec.Code != tt.want {
				t.Errorf("got status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTriggerHandler_EmptyTokenRefusesEverything(t *testing.T) {
	h := NewTriggerHandler("", func(Request) error { return nil })

	rec := doTrigger(h, http.MethodPost, "Bearer ", `{"uid":"u1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unconfigured token must reject all callers, got %d", rec.Code)
	}
}
