package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// ErrAuthFailure is returned when no access token could be obtained from the gateway.
var ErrAuthFailure = errors.New("mpesa: access token was not obtained")

const (
	tokenPath          = "/oauth/v1/generate?grant_type=client_credentials"
	defaultTokenExpiry = 3599 * time.Second
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   Code   `json:"expires_in"`
}

// FetchFunc obtains a fresh token from the gateway.
type FetchFunc func(ctx context.Context) (*oauth2.Token, error)

// CredentialFetcher returns a FetchFunc calling the gateway's client-credentials
// endpoint with HTTP basic auth.
func CredentialFetcher(hc *http.Client, baseURL, consumerKey, consumerSecret string) FetchFunc {
	return func(ctx context.Context) (*oauth2.Token, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+tokenPath, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthFailure, err)
		}
		req.SetBasicAuth(consumerKey, consumerSecret)

		resp, err := hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthFailure, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrAuthFailure, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%w: status %d", ErrAuthFailure, resp.StatusCode)
		}

		var tr tokenResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			return nil, fmt.Errorf("%w: malformed body: %v", ErrAuthFailure, err)
		}
		if tr.AccessToken == "" {
			return nil, fmt.Errorf("%w: access_token missing", ErrAuthFailure)
		}

		expiry := defaultTokenExpiry
		if secs, err := strconv.Atoi(string(tr.ExpiresIn)); err == nil && secs > 0 {
			expiry = time.Duration(secs) * time.Second
		}
		return &oauth2.Token{
			AccessToken: tr.AccessToken,
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(expiry),
		}, nil
	}
}

// CachedTokenSource keeps one gateway token for the whole process. It is fetched
// lazily, reused until shortly before expiry, and dropped by Invalidate.
// Concurrent refreshes share a single upstream call.
type CachedTokenSource struct {
	fetch FetchFunc

	mu    sync.Mutex
	token *oauth2.Token
	group singleflight.Group
}

var _ oauth2.TokenSource = (*CachedTokenSource)(nil)

func NewCachedTokenSource(fetch FetchFunc) *CachedTokenSource {
	return &CachedTokenSource{fetch: fetch}
}

// Token implements oauth2.TokenSource.
func (s *CachedTokenSource) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

func (s *CachedTokenSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()
	// Valid already applies a small expiry margin.
	if tok.Valid() {
		return tok, nil
	}

	v, err, _ := s.group.Do("token", func() (interface{}, error) {
		fresh, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.token = fresh
		s.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		if !errors.Is(err, ErrAuthFailure) {
			err = fmt.Errorf("%w: %v", ErrAuthFailure, err)
		}
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

// Invalidate forgets the cached token so the next call fetches a new one.
func (s *CachedTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
}
