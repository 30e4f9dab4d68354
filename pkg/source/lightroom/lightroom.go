// Package lightroom is the Adobe Lightroom cloud connector. All requests
// carry the API key and a bearer token; an expired token triggers one
// in-place refresh before the failure is reported as an auth error.
package lightroom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/driftwall/driftwall/pkg/source"
	"github.com/driftwall/driftwall/util/log"
)

const (
	// renditionSize is the largest rendition Lightroom serves without a
	// custom generation request.
	renditionSize = "2048"
	// maxRenditionWaits bounds the 202 generation-pending retry loop.
	maxRenditionWaits = 5
	// defaultRetryAfter is used when a 202 carries no Retry-After header.
	defaultRetryAfter = 2 * time.Second
	// requestsPerSecond keeps us inside the Lightroom partner quota.
	requestsPerSecond = 5
)

// guardPrefix is the anti-hijacking guard Lightroom prepends to every JSON
// response body.
var guardPrefix = []byte("while (1) {}")

// Connector talks to the Lightroom API.
type Connector struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	tokens  TokenStore
	auth    *authenticator
}

var _ source.Connector = (*Connector)(nil)

// New returns a Connector for the given API endpoint and key, reading tokens
// from the store.
func New(baseURL, apiKey string, tokens TokenStore, client *http.Client) *Connector {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Connector{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		tokens:  tokens,
		auth:    &authenticator{tokens: tokens, apiKey: apiKey, client: client},
	}
}

// Source returns the type this connector serves.
func (c *Connector) Source() source.Type {
	return source.LightroomCloud
}

// albumsPage mirrors the album listing response shape.
type albumsPage struct {
	Resources []struct {
		ID      string `json:"id"`
		Payload struct {
			Name string `json:"name"`
		} `json:"payload"`
	} `json:"resources"`
	Links struct {
		Next struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"links"`
}

// FetchAlbums lists all albums, following pagination links.
func (c *Connector) FetchAlbums(ctx context.Context) ([]source.Album, error) {
	var albums []source.Album
	next := "/v2/albums"
	for next != "" {
		body, err := c.getJSON(ctx, next)
		if err != nil {
			return nil, err
		}
		var page albumsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding album list: %w", err)
		}
		for _, r := range page.Resources {
			albums = append(albums, source.Album{ID: r.ID, Name: r.Payload.Name})
		}
		next = page.Links.Next.Href
	}
	return albums, nil
}

// assetsPage mirrors the album asset listing response shape.
type assetsPage struct {
	Resources []struct {
		Asset struct {
			ID string `json:"id"`
		} `json:"asset"`
	} `json:"resources"`
	Links struct {
		Next struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"links"`
}

// FetchAssetIDs returns all asset IDs of an album, following pagination.
func (c *Connector) FetchAssetIDs(ctx context.Context, albumID string) ([]string, error) {
	var ids []string
	next := fmt.Sprintf("/v2/albums/%s/assets", url.PathEscape(albumID))
	for next != "" {
		body, err := c.getJSON(ctx, next)
		if err != nil {
			return nil, err
		}
		var page assetsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding album assets: %w", err)
		}
		for _, r := range page.Resources {
			if r.Asset.ID != "" {
				ids = append(ids, r.Asset.ID)
			}
		}
		next = page.Links.Next.Href
	}
	return ids, nil
}

// FetchImageBytes downloads the 2048px rendition of an asset. Lightroom
// answers 202 while a rendition is still being generated; we honor
// Retry-After a bounded number of times before giving up.
func (c *Connector) FetchImageBytes(ctx context.Context, assetID string) ([]byte, error) {
	path := fmt.Sprintf("/v2/assets/%s/renditions/%s", url.PathEscape(assetID), renditionSize)

	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, path)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			data, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("reading rendition: %w", err)
			}
			return data, nil
		case http.StatusAccepted:
			resp.Body.Close()
			if attempt >= maxRenditionWaits {
				return nil, fmt.Errorf("rendition of %s still generating after %d attempts", assetID, attempt+1)
			}
			wait := retryAfter(resp, defaultRetryAfter)
			log.Debugf("rendition of %s pending, retrying in %s", assetID, wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("fetching rendition of %s: %s", assetID, resp.Status)
		}
	}
}

// getJSON performs a GET, strips the guard prefix and returns the JSON body.
// path may be absolute (pagination hrefs) or API-root relative.
func (c *Connector) getJSON(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return bytes.TrimPrefix(raw, guardPrefix), nil
}

// do performs one authenticated request. A 401 triggers a single token
// refresh and retry; a second 401 surfaces as a source.AuthError.
func (c *Connector) do(ctx context.Context, path string) (*http.Response, error) {
	token, err := c.tokens.AccessToken()
	if err != nil {
		return nil, fmt.Errorf("loading access token: %w", err)
	}
	if token == "" {
		token, err = c.auth.refresh(ctx)
		if err != nil {
			return nil, err
		}
	}

	resp, err := c.doOnce(ctx, path, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	token, err = c.auth.refresh(ctx)
	if err != nil {
		return nil, err
	}
	resp, err = c.doOnce(ctx, path, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, &source.AuthError{
			Source: source.LightroomCloud,
			Err:    fmt.Errorf("request still unauthorized after token refresh"),
		}
	}
	return resp, nil
}

func (c *Connector) doOnce(ctx context.Context, path, token string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	full := path
	if len(path) > 0 && path[0] == '/' {
		full = c.baseURL + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-Request-ID", uuid.NewString())

	return c.client.Do(req)
}

// retryAfter parses the Retry-After header, falling back to def.
func retryAfter(resp *http.Response, def time.Duration) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}
