package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "workoutcal/internal/log"
)

// cacheEntry holds HTTP cache metadata for a remote document.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HTTP fetches the encoded document from a URL with conditional requests
// (ETag / Last-Modified) and a disk-backed cache. When the server cannot be
// reached or answers with an error, the last cached copy is used.
type HTTP struct {
	URL      string
	client   *http.Client
	cacheDir string
}

// NewHTTP creates an HTTP provider. cacheDir is the base directory for the
// per-URL cache; if empty, "./var/source-cache" is used.
func NewHTTP(url, cacheDir string) *HTTP {
	if cacheDir == "" {
		cacheDir = "./var/source-cache"
	}
	return &HTTP{
		URL: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

func (h *HTTP) Name() string { return "url:" + redactURL(h.URL) }

func (h *HTTP) Encoded(ctx context.Context) (string, error) {
	body, err := h.fetch(ctx)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (h *HTTP) fetch(ctx context.Context) ([]byte, error) {
	if h.URL == "" {
		return nil, errors.New("source URL is empty")
	}

	cachePath := h.cachePath()
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.b64"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	if meta.URL == h.URL {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Info("source fetch start", "url", redactURL(h.URL))

	resp, err := h.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("source fetch network error, using cached body", err, "url", redactURL(h.URL))
			return cachedBody, nil
		}
		return nil, fmt.Errorf("fetching source: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading source response: %w", err)
		}
		newMeta := cacheEntry{
			URL:          h.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			// The fresh body is still usable.
			appLog.Error("source cache save failed", err, "url", redactURL(h.URL))
		}
		appLog.Info("source fetch success", "url", redactURL(h.URL), "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("source not modified; using cache", "url", redactURL(h.URL))
		return cachedBody, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("source fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(h.URL), "status", resp.StatusCode)
			return cachedBody, nil
		}
		return nil, fmt.Errorf("fetching source: %s", resp.Status)
	}
}

func (h *HTTP) cachePath() string {
	sum := sha256.Sum256([]byte(h.URL))
	return filepath.Join(h.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.b64"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only so tokens in paths or queries never
// reach the log.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "source://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
