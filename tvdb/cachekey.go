package tvdb

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CacheKey fingerprints a request for response caching. The Authorization
// header never contributes because tokens change every session, but
// Accept-Language does because it changes the payload.
func CacheKey(req *http.Request) (string, error) {
	if req == nil || req.URL == nil {
		return "", fmt.Errorf("cache key: request has no URL")
	}

	h := sha256.New()
	h.Write([]byte(strings.ToUpper(req.Method)))
	h.Write([]byte(req.URL.String()))

	body, err := requestBody(req)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}

	if len(body) > 0 {
		h.Write(body)
	} else if lang := req.Header.Get("Accept-Language"); lang != "" {
		h.Write([]byte("Accept-Language"))
		h.Write([]byte(lang))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// requestBody reads the body without consuming the request.
func requestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed")
	}
	rc, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
