package social

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/google/uuid"

	"github.com/coinlaunch/launchbot/internal/config"
	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

const (
	authorizeURL = "https://twitter.com/i/oauth2/authorize"
	tokenURL     = "https://api.twitter.com/2/oauth2/token"
	oauthScopes  = "tweet.read tweet.write users.read offline.access"
)

// oauthFlow handles the OAuth2 PKCE dance for the posting account and keeps
// the resulting credential in the repository so every instance shares it.
type oauthFlow struct {
	logger *logger.Logger
	repo   models.Repository

	clientID     string
	clientSecret string
	redirectURL  string

	// transport overrides the HTTP transport; nil means the default.
	transport http.RoundTripper

	mu sync.Mutex
	// verifiers maps a pending state to its PKCE code verifier.
	verifiers map[string]string
}

func newOAuthFlow(cfg *config.Config, repo models.Repository, logger *logger.Logger) *oauthFlow {
	return &oauthFlow{
		logger:       logger,
		repo:         repo,
		clientID:     cfg.XClientID,
		clientSecret: cfg.XClientSecret,
		redirectURL:  cfg.XRedirectURL,
		verifiers:    make(map[string]string),
	}
}

func (f *oauthFlow) authURL() (string, string, error) {
	if f.clientID == "" || f.redirectURL == "" {
		return "", "", fmt.Errorf("X_CLIENT_ID or X_REDIRECT_URL is missing: %w", models.ErrUnconfigured)
	}

	verifier, err := randomVerifier()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	state := uuid.NewString()

	f.mu.Lock()
	f.verifiers[state] = verifier
	f.mu.Unlock()

	challenge := sha256.Sum256([]byte(verifier))
	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {f.clientID},
		"redirect_uri":          {f.redirectURL},
		"scope":                 {oauthScopes},
		"state":                 {state},
		"code_challenge":        {base64.RawURLEncoding.EncodeToString(challenge[:])},
		"code_challenge_method": {"S256"},
	}
	return authorizeURL + "?" + params.Encode(), state, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (f *oauthFlow) exchangeCode(ctx context.Context, code, state string) error {
	f.mu.Lock()
	verifier, ok := f.verifiers[state]
	delete(f.verifiers, state)
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown or expired oauth state %q", state)
	}

	var resp tokenResponse
	builder := requests.URL(tokenURL).
		BasicAuth(f.clientID, f.clientSecret).
		BodyForm(url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"redirect_uri":  {f.redirectURL},
			"code_verifier": {verifier},
		}).
		ToJSON(&resp)
	if f.transport != nil {
		builder = builder.Transport(f.transport)
	}
	if err := builder.Fetch(ctx); err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	f.logger.Info("Posting account authorized")
	return f.saveCredential(&resp)
}

// refresh trades the stored refresh token for a new token pair. Callers must
// treat a failure as a dead credential.
func (f *oauthFlow) refresh(ctx context.Context) error {
	credential, err := f.repo.GetOAuthCredential(models.OAuthServiceX)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotAuthenticated
		}
		return err
	}
	if credential.RefreshToken == "" {
		return fmt.Errorf("stored credential has no refresh token: %w", models.ErrNotAuthenticated)
	}

	var resp tokenResponse
	builder := requests.URL(tokenURL).
		BasicAuth(f.clientID, f.clientSecret).
		BodyForm(url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {credential.RefreshToken},
		}).
		ToJSON(&resp)
	if f.transport != nil {
		builder = builder.Transport(f.transport)
	}
	if err := builder.Fetch(ctx); err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	f.logger.Info("Posting credential refreshed")
	return f.saveCredential(&resp)
}

func (f *oauthFlow) saveCredential(resp *tokenResponse) error {
	now := time.Now().Unix()
	return f.repo.SaveOAuthCredential(&models.OAuthCredential{
		Service:      models.OAuthServiceX,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    int64(resp.ExpiresIn),
		Scope:        resp.Scope,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func randomVerifier() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
