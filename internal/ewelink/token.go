package ewelink

import (
	"context"
	"encoding/json"
	"fmt"
	"golang.org/x/oauth2"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// A TokenStore persists the tokens, so a restart doesn't need a new login.
type TokenStore interface {
	LoadToken() (*oauth2.Token, error)
	SaveToken(*oauth2.Token) error
}

const refreshTimeout = 30 * time.Second

var _ oauth2.TokenSource = &tokenSource{}

// tokenSource hands out the current access token and refreshes it when it expires (or when the API rejects it).
type tokenSource struct {
	httpClient *http.Client
	tokenURL   string
	appID      string
	appSecret  string
	store      TokenStore
	logger     *slog.Logger
	lock       sync.Mutex
	token      *oauth2.Token
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.token.Valid() {
		return s.token, nil
	}
	if s.token == nil || s.token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", ErrUnauthorized)
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	token, err := s.refresh(ctx, s.token.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	s.token = token
	s.logger.Info("access token refreshed", "expiry", token.Expiry)

	if s.store != nil {
		if err = s.store.SaveToken(token); err != nil {
			s.logger.Warn("failed to save access token", "err", err)
		}
	}
	return token, nil
}

// invalidate marks the access token as expired, unless it was already replaced since the failed request was sent.
func (s *tokenSource) invalidate(accessToken string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.token != nil && s.token.AccessToken == accessToken {
		s.token.Expiry = time.Unix(1, 0)
	}
}

func (s *tokenSource) current() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.token == nil {
		return ""
	}
	return s.token.AccessToken
}

type loginResponse struct {
	Error int    `json:"error"`
	Msg   string `json:"msg"`
	Data  struct {
		AccessToken   string `json:"accessToken"`
		RefreshToken  string `json:"refreshToken"`
		AtExpiredTime int64  `json:"atExpiredTime"`
		RtExpiredTime int64  `json:"rtExpiredTime"`
	} `json:"data"`
}

func (s *tokenSource) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {s.appID},
		"client_secret": {s.appSecret},
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
	}
	var login loginResponse
	if err = json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if login.Error != 0 {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, &APIError{Code: login.Error, Msg: login.Msg})
	}
	if login.Data.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token received", ErrUnauthorized)
	}

	token := oauth2.Token{
		AccessToken:  login.Data.AccessToken,
		RefreshToken: login.Data.RefreshToken,
		TokenType:    "Bearer",
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	if login.Data.AtExpiredTime > 0 {
		token.Expiry = time.UnixMilli(login.Data.AtExpiredTime)
	}
	return &token, nil
}
