package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JakeFAU/nft-metadata-parser/internal/parser"
)

// JSONFetcher retrieves token metadata documents over HTTP, bounded in
// size, and extracts the media URIs the later stages key on.
type JSONFetcher struct {
	client *http.Client
}

// NewJSONFetcher builds a fetcher with a bounded-timeout HTTP client.
func NewJSONFetcher(timeout time.Duration) *JSONFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &JSONFetcher{client: &http.Client{Timeout: timeout}}
}

// FetchJSON GETs the document at uri, failing if it exceeds maxBytes
// or is not valid JSON. The raw bytes are returned verbatim alongside
// the extracted "image" and "animation_url" fields.
func (f *JSONFetcher) FetchJSON(ctx context.Context, uri string, maxBytes int64) (parser.JSONResult, error) {
	body, err := fetchBounded(ctx, f.client, uri, maxBytes)
	if err != nil {
		return parser.JSONResult{}, err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return parser.JSONResult{}, fmt.Errorf("parse json from %s: %w", uri, err)
	}

	return parser.JSONResult{
		ImageURI:     stringField(doc, "image"),
		AnimationURI: stringField(doc, "animation_url"),
		Body:         body,
	}, nil
}

func stringField(doc map[string]any, key string) *string {
	if v, ok := doc[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

// fetchBounded GETs uri and returns at most maxBytes bytes, erroring
// when the payload is larger.
func fetchBounded(ctx context.Context, client *http.Client, uri string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", uri, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", uri, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-side close

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", uri, resp.StatusCode)
	}
	if resp.ContentLength > maxBytes {
		return nil, fmt.Errorf("fetch %s: content length %d exceeds limit %d", uri, resp.ContentLength, maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("fetch %s: payload exceeds limit %d", uri, maxBytes)
	}
	return body, nil
}
