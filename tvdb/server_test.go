package tvdb

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testAPIKey     = "0629B785CE550C8D"
	testToken      = "test-token"
	testArtworkURL = "https://artworks.test/banners/%s"
)

// fakeTVDB is a v3 API double. Handlers registered with handle require the
// bearer token issued by /login.
type fakeTVDB struct {
	t      *testing.T
	mux    *http.ServeMux
	server *httptest.Server

	mu       sync.Mutex
	requests map[string]int
	logins   int
	loginErr string
}

func newFakeTVDB(t *testing.T) *fakeTVDB {
	t.Helper()

	f := &fakeTVDB{
		t:        t,
		mux:      http.NewServeMux(),
		requests: make(map[string]int),
	}
	f.mux.HandleFunc("POST /login", f.login)
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTVDB) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))

	f.mu.Lock()
	f.logins++
	loginErr := f.loginErr
	f.mu.Unlock()

	if loginErr != "" || body.APIKey != testAPIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"Error": "Not Authorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": testToken})
}

func (f *fakeTVDB) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests[r.URL.Path]++
		f.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"Error": "Not authorized"})
			return
		}
		h(w, r)
	})
}

func (f *fakeTVDB) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *fakeTVDB) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeTVDB) client(t *testing.T, opts ...Option) *Client {
	t.Helper()

	base := []Option{
		WithBaseURL(f.server.URL),
		WithHTTPClient(f.server.Client()),
		WithArtworkURL(testArtworkURL),
	}
	c, err := New(testAPIKey, append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// data wraps v in the v3 response envelope.
func data(v any) map[string]any {
	return map[string]any{"data": v}
}

// page wraps v in an envelope whose links point at next, or at nothing when
// next is zero.
func page(v any, current, next int) map[string]any {
	links := map[string]any{"first": 1, "last": max(current, next), "next": nil, "previous": nil}
	if next > 0 {
		links["next"] = next
	}
	if current > 1 {
		links["previous"] = current - 1
	}
	return map[string]any{"data": v, "links": links}
}

func newServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
