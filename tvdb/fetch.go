package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	errResourceNotFound = "Resource not found"
	errInvalidLanguage  = "invalidLanguage"
)

// envelope is the wrapper around every v3 response.
type envelope struct {
	Data   json.RawMessage            `json:"data"`
	Error  string                     `json:"Error"`
	Errors map[string]json.RawMessage `json:"errors"`
	Links  *pageLinks                 `json:"links"`
}

// pageLinks carries pagination state. Next is null on the last page.
type pageLinks struct {
	First    *int `json:"first"`
	Last     *int `json:"last"`
	Next     *int `json:"next"`
	Previous *int `json:"previous"`
}

// pagedFetcher issues authenticated GETs and follows continuation links.
type pagedFetcher struct {
	httpClient *http.Client
	auth       *authenticator
	maxPages   int
	logger     zerolog.Logger
}

// fetch returns the assembled data of url. List-shaped data from every
// page is concatenated in page order; object data is returned as is.
func (f *pagedFetcher) fetch(ctx context.Context, url, language string) (json.RawMessage, error) {
	var (
		items  []json.RawMessage
		isList bool
		single json.RawMessage
	)

	next := url
	for page := 1; ; page++ {
		if page > 1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		env, err := f.load(ctx, next, language)
		if err != nil {
			return nil, err
		}

		if data := bytes.TrimSpace(env.Data); len(data) > 0 && data[0] == '[' {
			var pageItems []json.RawMessage
			if err := json.Unmarshal(data, &pageItems); err != nil {
				return nil, &ProviderError{Message: "failed to parse data list", Err: err}
			}
			items = append(items, pageItems...)
			isList = true
		} else if !isList {
			single = env.Data
		}

		if env.Links == nil || env.Links.Next == nil || *env.Links.Next == 0 {
			break
		}
		if page >= f.maxPages {
			return nil, &ProviderError{Message: fmt.Sprintf("pagination of %s exceeded %d pages", url, f.maxPages)}
		}
		next = pageURL(url, *env.Links.Next)

		f.logger.Debug().
			Int("page", *env.Links.Next).
			Int("count", len(items)).
			Msg("Following continuation page")
	}

	if isList {
		assembled, err := json.Marshal(items)
		if err != nil {
			return nil, &ProviderError{Message: "failed to assemble pages", Err: err}
		}
		return assembled, nil
	}
	return single, nil
}

// load performs one GET and maps the envelope's error fields.
func (f *pagedFetcher) load(ctx context.Context, url, language string) (*envelope, error) {
	if err := f.auth.ensureAuthorized(ctx, url, language); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if language != "" {
		req.Header.Set("Accept-Language", language)
	}
	f.auth.apply(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	f.logger.Debug().
		Str("url", url).
		Str("language", language).
		Int("status", resp.StatusCode).
		Bool("cached", resp.Header.Get("X-From-Cache") != "").
		Msg("Loaded URL")

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrNotAuthorized
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: "failed to parse response", Err: err}
	}

	if err := f.checkError(&env, resp.StatusCode); err != nil {
		return nil, err
	}

	if len(env.Errors) > 0 {
		if _, ok := env.Errors[errInvalidLanguage]; ok {
			f.logger.Debug().Str("url", url).Str("language", language).Msg("Some translations are missing")
		}
		for key := range env.Errors {
			if key != errInvalidLanguage {
				f.logger.Debug().Str("url", url).Str("notice", key).Msg("Provider reported a partial result")
			}
		}
	}

	return &env, nil
}

func (f *pagedFetcher) checkError(env *envelope, status int) error {
	switch {
	case env.Error == errResourceNotFound:
		env.Data = nil
		return nil
	case strings.ToLower(env.Error) == "not authorized":
		return ErrNotAuthorized
	case strings.HasPrefix(env.Error, "ID: ") && strings.HasSuffix(env.Error, "not found"):
		return &ShowNotFoundError{Query: notFoundID(env.Error), Message: env.Error}
	case env.Error != "":
		return &ProviderError{StatusCode: status, Message: env.Error}
	case status == http.StatusUnauthorized:
		return ErrNotAuthorized
	case status >= http.StatusBadRequest:
		return &ProviderError{StatusCode: status, Message: http.StatusText(status)}
	}
	return nil
}

// notFoundID extracts the id from an "ID: <id> ... not found" message.
func notFoundID(msg string) string {
	rest := strings.TrimSuffix(strings.TrimPrefix(msg, "ID: "), "not found")
	if fields := strings.Fields(rest); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// pageURL replaces the query of url with the page parameter.
func pageURL(url string, page int) string {
	base, _, _ := strings.Cut(url, "?")
	return base + "?page=" + strconv.Itoa(page)
}
