package tvdb

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probeFunc adapts a function to CacheProbe.
type probeFunc func(key string) (bool, error)

func (f probeFunc) Has(key string) (bool, error) {
	return f(key)
}

func TestLogin(t *testing.T) {
	f := newFakeTVDB(t)
	f.handle("GET /languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, data([]map[string]any{{"abbreviation": "en"}}))
	})

	c := f.client(t)
	assert.False(t, c.auth.isAuthorized())

	_, err := c.Languages(context.Background())
	require.NoError(t, err)
	_, err = c.Languages(context.Background())
	require.NoError(t, err)

	assert.True(t, c.auth.isAuthorized())
	assert.Equal(t, 1, f.loginCount())
	assert.Equal(t, 2, f.count("/languages"))
}

func TestLoginRejected(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "not authorized message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"Error": "Not Authorized"})
			},
			wantErr: ErrNotAuthorized,
		},
		{
			name: "unauthorized status without body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantErr: ErrNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /login", tt.handler)
			srv := newServer(t, mux)

			c, err := New(testAPIKey, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
			require.NoError(t, err)

			err = c.Authorize(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, c.auth.isAuthorized())
		})
	}
}

func TestLoginProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       any
		wantStatus int
	}{
		{
			name:       "other error message",
			status:     http.StatusBadRequest,
			body:       map[string]string{"Error": "Missing apikey"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no token",
			status:     http.StatusOK,
			body:       map[string]string{},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			srv := newServer(t, mux)

			c, err := New(testAPIKey, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
			require.NoError(t, err)

			err = c.Authorize(context.Background())
			var provErr *ProviderError
			require.True(t, errors.As(err, &provErr), "got %v", err)
			assert.Equal(t, tt.wantStatus, provErr.StatusCode)
			assert.False(t, errors.Is(err, ErrNotAuthorized))
		})
	}
}

func TestLoginSendsCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, decodeBody(r, &body))
		assert.Equal(t, map[string]string{
			"apikey":   testAPIKey,
			"username": "turk",
			"userkey":  "ABC123",
		}, body)
		assert.Equal(t, "de", r.Header.Get("Accept-Language"))
		writeJSON(w, http.StatusOK, map[string]string{"token": testToken})
	})
	srv := newServer(t, mux)

	c, err := New(testAPIKey,
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithCredentials("turk", "ABC123"),
		WithLanguage("de"),
	)
	require.NoError(t, err)
	require.NoError(t, c.Authorize(context.Background()))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/languages", nil)
	require.NoError(t, err)
	c.auth.apply(req)
	assert.Equal(t, "Bearer "+testToken, req.Header.Get("Authorization"))
}

func TestEnsureAuthorizedSkipsLoginOnCacheHit(t *testing.T) {
	f := newFakeTVDB(t)

	url := f.server.URL + "/series/76156"
	want := newRequest(t, http.MethodGet, url, "", "en")
	wantKey, err := CacheKey(want)
	require.NoError(t, err)

	var probed []string
	probe := probeFunc(func(key string) (bool, error) {
		probed = append(probed, key)
		return key == wantKey, nil
	})

	c := f.client(t, WithCacheProbe(probe))

	require.NoError(t, c.auth.ensureAuthorized(context.Background(), url, "en"))
	assert.Equal(t, 0, f.loginCount())
	assert.False(t, c.auth.isAuthorized())
	assert.Equal(t, []string{wantKey}, probed)

	// A different language is a different cache entry.
	require.NoError(t, c.auth.ensureAuthorized(context.Background(), url, "de"))
	assert.Equal(t, 1, f.loginCount())
	assert.True(t, c.auth.isAuthorized())

	// Once authorized the probe is no longer consulted.
	require.NoError(t, c.auth.ensureAuthorized(context.Background(), url, "fr"))
	assert.Len(t, probed, 2)
	assert.Equal(t, 1, f.loginCount())
}

func TestEnsureAuthorizedProbeErrorIsMiss(t *testing.T) {
	f := newFakeTVDB(t)
	probe := probeFunc(func(string) (bool, error) {
		return true, errors.New("store unavailable")
	})

	c := f.client(t, WithCacheProbe(probe))
	require.NoError(t, c.auth.ensureAuthorized(context.Background(), f.server.URL+"/languages", "en"))
	assert.Equal(t, 1, f.loginCount())
}

func TestEnsureAuthorizedConcurrent(t *testing.T) {
	f := newFakeTVDB(t)
	c := f.client(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.auth.ensureAuthorized(context.Background(), f.server.URL+"/languages", "en")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, f.loginCount())
}

func TestWrongAPIKey(t *testing.T) {
	f := newFakeTVDB(t)
	f.handle("GET /languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, data([]any{}))
	})

	c, err := New("WRONGKEY", WithBaseURL(f.server.URL), WithHTTPClient(f.server.Client()))
	require.NoError(t, err)

	_, err = c.Languages(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, 0, f.count("/languages"))
}
