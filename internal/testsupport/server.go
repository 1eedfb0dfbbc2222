package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// GTXServer fakes the public bulk translation endpoint.
type GTXServer struct {
	*httptest.Server
	Requests atomic.Int64
}

// NewGTXServer answers every request with translate(q) in the gtx nested
// array layout and registers cleanup.
func NewGTXServer(t testing.TB, translate func(q, targetLang string) string) *GTXServer {
	t.Helper()

	srv := &GTXServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.Requests.Add(1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q := r.PostForm.Get("q")
		payload := []any{[]any{[]any{translate(q, r.URL.Query().Get("tl")), q}}, nil, "en"}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}
