package lightroom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/user"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/driftwall/driftwall/pkg/source"
	"github.com/driftwall/driftwall/util/log"
)

const (
	accessTokenKey  = "driftwall-lightroom-access-token"
	refreshTokenKey = "driftwall-lightroom-refresh-token"
	tokenEndpoint   = "https://ims-na1.adobelogin.com/ims/token/v3"
)

// TokenStore holds the OAuth tokens for the Lightroom API.
type TokenStore interface {
	AccessToken() (string, error)
	RefreshToken() (string, error)
	SetTokens(access, refresh string) error
}

// KeyringTokens stores tokens in the OS keyring, keyed by the local user.
type KeyringTokens struct {
	userid string
}

// NewKeyringTokens returns a TokenStore backed by the OS keyring.
func NewKeyringTokens() (*KeyringTokens, error) {
	u, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}
	return &KeyringTokens{userid: u.Username}, nil
}

// AccessToken returns the stored access token, or empty when none is saved.
func (k *KeyringTokens) AccessToken() (string, error) {
	token, err := keyring.Get(accessTokenKey, k.userid)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// RefreshToken returns the stored refresh token, or empty when none is saved.
func (k *KeyringTokens) RefreshToken() (string, error) {
	token, err := keyring.Get(refreshTokenKey, k.userid)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// SetTokens saves both tokens to the keyring.
func (k *KeyringTokens) SetTokens(access, refresh string) error {
	if err := keyring.Set(accessTokenKey, k.userid, access); err != nil {
		return fmt.Errorf("saving access token: %w", err)
	}
	if refresh == "" {
		return nil
	}
	if err := keyring.Set(refreshTokenKey, k.userid, refresh); err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}
	return nil
}

// authenticator refreshes expired access tokens. One refresh runs at a time;
// concurrent 401s share its result.
type authenticator struct {
	mu     sync.Mutex
	tokens TokenStore
	apiKey string
	client *http.Client
	// tokenURL overrides the IMS endpoint; empty means the production one.
	tokenURL string
}

// refresh exchanges the refresh token for a new access token and persists
// both. A missing refresh token means the user has to sign in again, which
// is reported as a source.AuthError.
func (a *authenticator) refresh(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	refreshToken, err := a.tokens.RefreshToken()
	if err != nil {
		return "", fmt.Errorf("loading refresh token: %w", err)
	}
	if refreshToken == "" {
		return "", &source.AuthError{Source: source.LightroomCloud, Err: errors.New("no refresh token stored")}
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     a.apiKey,
	})
	if err != nil {
		return "", err
	}

	endpoint := a.tokenURL
	if endpoint == "" {
		endpoint = tokenEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refreshing token: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return "", &source.AuthError{
			Source: source.LightroomCloud,
			Err:    fmt.Errorf("token refresh rejected (%s)", resp.Status),
		}
	default:
		return "", fmt.Errorf("token refresh failed: %s", resp.Status)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", &source.AuthError{Source: source.LightroomCloud, Err: errors.New("empty access token in refresh response")}
	}

	if err := a.tokens.SetTokens(payload.AccessToken, payload.RefreshToken); err != nil {
		log.Printf("persisting refreshed tokens: %v", err)
	}
	return payload.AccessToken, nil
}
