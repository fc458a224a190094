package tvdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchConcatenatesPages(t *testing.T) {
	f := newFakeTVDB(t)

	var (
		mu      sync.Mutex
		queries []string
	)
	f.handle("GET /series/1/episodes", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		switch r.URL.Query().Get("page") {
		case "":
			writeJSON(w, http.StatusOK, page([]map[string]any{{"id": 1}, {"id": 2}}, 1, 2))
		case "2":
			writeJSON(w, http.StatusOK, page([]map[string]any{{"id": 3}}, 2, 3))
		case "3":
			writeJSON(w, http.StatusOK, page([]map[string]any{{"id": 4}, {"id": 5}}, 3, 0))
		default:
			t.Errorf("unexpected page %q", r.URL.RawQuery)
		}
	})

	c := f.client(t)
	raw, err := c.fetcher.fetch(context.Background(), f.server.URL+"/series/1/episodes", "en")
	require.NoError(t, err)

	var items []struct{ ID int }
	require.NoError(t, json.Unmarshal(raw, &items))

	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "page=2", "page=3"}, queries)
}

func TestFetchReplacesQueryOnContinuation(t *testing.T) {
	assert.Equal(t, "https://api.test/series/1/episodes?page=2", pageURL("https://api.test/series/1/episodes", 2))
	assert.Equal(t, "https://api.test/search/series?page=3", pageURL("https://api.test/search/series?name=scrubs", 3))
}

func TestFetchObjectData(t *testing.T) {
	f := newFakeTVDB(t)
	f.handle("GET /series/76156", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.Header.Get("Accept-Language"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeJSON(w, http.StatusOK, data(map[string]any{"id": 76156, "seriesName": "Scrubs"}))
	})

	c := f.client(t)
	raw, err := c.fetcher.fetch(context.Background(), f.server.URL+"/series/76156", "en")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":76156,"seriesName":"Scrubs"}`, string(raw))
}

func TestFetchErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		wantErr  error
		wantProv bool
		wantNil  bool
	}{
		{
			name:    "resource not found is empty data",
			status:  http.StatusNotFound,
			body:    map[string]string{"Error": "Resource not found"},
			wantNil: true,
		},
		{
			name:    "not authorized",
			status:  http.StatusUnauthorized,
			body:    map[string]string{"Error": "Not authorized"},
			wantErr: ErrNotAuthorized,
		},
		{
			name:    "id not found",
			status:  http.StatusNotFound,
			body:    map[string]string{"Error": "ID: 999 not found"},
			wantErr: ErrShowNotFound,
		},
		{
			name:     "other provider error",
			status:   http.StatusBadRequest,
			body:     map[string]string{"Error": "Invalid query params"},
			wantProv: true,
		},
		{
			name:     "server error without message",
			status:   http.StatusInternalServerError,
			body:     map[string]any{},
			wantProv: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeTVDB(t)
			f.handle("GET /series/999", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			c := f.client(t)
			raw, err := c.fetcher.fetch(context.Background(), f.server.URL+"/series/999", "en")

			switch {
			case tt.wantNil:
				require.NoError(t, err)
				assert.True(t, isNull(raw))
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantProv:
				var provErr *ProviderError
				require.True(t, errors.As(err, &provErr), "got %v", err)
				assert.Equal(t, tt.status, provErr.StatusCode)
			}
		})
	}
}

func TestNotFoundID(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"ID: 999 not found", "999"},
		{"ID: 76156 series not found", "76156"},
		{"ID:  not found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, notFoundID(tt.msg))
		})
	}
}

func TestFetchUnauthorizedWithoutEnvelope(t *testing.T) {
	f := newFakeTVDB(t)
	f.handle("GET /broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "<html>denied</html>")
	})

	c := f.client(t)
	_, err := c.fetcher.fetch(context.Background(), f.server.URL+"/broken", "en")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestFetchToleratesInvalidLanguage(t *testing.T) {
	f := newFakeTVDB(t)
	f.handle("GET /series/76156", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"id": 76156, "seriesName": "Scrubs"},
			"errors": map[string]any{
				"invalidLanguage": "Incomplete or no translation for the given language",
			},
		})
	})

	c := f.client(t, WithLanguage("xx"))
	raw, err := c.fetcher.fetch(context.Background(), f.server.URL+"/series/76156", "xx")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Scrubs")
}

func TestFetchMaxPages(t *testing.T) {
	f := newFakeTVDB(t)
	f.handle("GET /endless", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page([]int{1}, 1, 2))
	})

	c := f.client(t, WithMaxPages(3))
	_, err := c.fetcher.fetch(context.Background(), f.server.URL+"/endless", "en")

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr), "got %v", err)
	assert.Contains(t, provErr.Message, "exceeded 3 pages")
	assert.Equal(t, 3, f.count("/endless"))
}

func TestFetchStopsWhenCancelled(t *testing.T) {
	f := newFakeTVDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.handle("GET /series/1/episodes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page([]int{1}, 1, 2))
		cancel()
	})

	c := f.client(t)
	_, err := c.fetcher.fetch(ctx, f.server.URL+"/series/1/episodes", "en")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.count("/series/1/episodes"))
}
