package cleanup

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// Request is the purge order carried over the message bus from the
// signaler to the janitor.
type Request struct {
	UID string `json:"uid"`
}

// NewTriggerHandler returns the HTTP endpoint that accepts a purge order
// and hands it to publish (normally a NATS publication). The endpoint is
// internal: callers authenticate with a static bearer token. The work is
// acknowledged with 202 because the purge itself runs elsewhere.
func NewTriggerHandler(token string, publish func(req Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || subtle.ConstantTimeCompare([]byte(auth), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.UID == "" {
			http.Error(w, "uid is required", http.StatusBadRequest)
			return
		}

		if err := publish(req); err != nil {
			log.Printf("[cleanup] publish purge uid=%s: %v", req.UID, err)
			http.Error(w, "failed to queue cleanup", http.StatusBadGateway)
			return
		}

		log.Printf("[cleanup] queued purge uid=%s", req.UID)
		w.WriteHeader(http.StatusAccepted)
	})
}
