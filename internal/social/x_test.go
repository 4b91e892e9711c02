package social

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coinlaunch/launchbot/internal/config"
	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/internal/repository"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

// scriptedTransport plays back canned API responses. Reply calls consume
// replyCodes in order and fall back to 201 once the script runs out.
type scriptedTransport struct {
	mu         sync.Mutex
	replyCodes []int

	replyCalls int
	tokenCalls int
	replyAuth  []string
}

func jsonResponse(req *http.Request, code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Request:    req,
	}
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.URL.Path {
	case "/2/tweets":
		s.replyAuth = append(s.replyAuth, req.Header.Get("Authorization"))
		code := http.StatusCreated
		if s.replyCalls < len(s.replyCodes) {
			code = s.replyCodes[s.replyCalls]
		}
		s.replyCalls++
		if code != http.StatusCreated {
			return jsonResponse(req, code, `{"title":"request rejected"}`), nil
		}
		return jsonResponse(req, code, `{"data":{"id":"777","text":"ok"}}`), nil
	case "/2/oauth2/token":
		s.tokenCalls++
		return jsonResponse(req, http.StatusOK,
			`{"access_token":"fresh-token","refresh_token":"fresh-refresh","token_type":"bearer","expires_in":7200,"scope":"tweet.write"}`), nil
	}
	return jsonResponse(req, http.StatusNotFound, `{}`), nil
}

func newScriptedXClient(t *testing.T, st *scriptedTransport) (*XClient, *repository.Memory) {
	t.Helper()
	repo := repository.NewMemory()
	require.NoError(t, repo.SaveOAuthCredential(&models.OAuthCredential{
		Service:      models.OAuthServiceX,
		AccessToken:  "stale-token",
		RefreshToken: "stale-refresh",
	}))

	cfg := &config.Config{
		XClientID:     "client-id",
		XClientSecret: "client-secret",
		XRedirectURL:  "http://localhost/callback",
		XBearerToken:  "app-token",
		XHandle:       "coinlaunchnow",
	}
	client := NewXClient(cfg, repo, logger.NewNop())
	client.transport = st
	client.oauth.transport = st
	return client, repo
}

func TestReplyToPostRefreshesOnceOn401(t *testing.T) {
	st := &scriptedTransport{replyCodes: []int{http.StatusUnauthorized}}
	client, repo := newScriptedXClient(t, st)

	id, err := client.ReplyToPost(context.Background(), "hello", "100")
	require.NoError(t, err)
	require.Equal(t, "777", id)

	// One rejected attempt, one refresh, one retry with the new token.
	require.Equal(t, 2, st.replyCalls)
	require.Equal(t, 1, st.tokenCalls)
	require.Equal(t, "Bearer stale-token", st.replyAuth[0])
	require.Equal(t, "Bearer fresh-token", st.replyAuth[1])

	credential, err := repo.GetOAuthCredential(models.OAuthServiceX)
	require.NoError(t, err)
	require.Equal(t, "fresh-token", credential.AccessToken)
	require.Equal(t, "fresh-refresh", credential.RefreshToken)
}

func TestReplyToPostSecond401IsTerminal(t *testing.T) {
	st := &scriptedTransport{replyCodes: []int{http.StatusUnauthorized, http.StatusUnauthorized}}
	client, _ := newScriptedXClient(t, st)

	_, err := client.ReplyToPost(context.Background(), "hello", "100")
	require.ErrorIs(t, err, models.ErrNotAuthenticated)

	// Exactly one refresh, exactly one retry, never a third attempt.
	require.Equal(t, 2, st.replyCalls)
	require.Equal(t, 1, st.tokenCalls)
}

func TestReplyToPostRateLimitSkipsRefresh(t *testing.T) {
	st := &scriptedTransport{replyCodes: []int{http.StatusTooManyRequests}}
	client, _ := newScriptedXClient(t, st)

	_, err := client.ReplyToPost(context.Background(), "hello", "100")
	require.ErrorIs(t, err, models.ErrRateLimited)
	require.Equal(t, 1, st.replyCalls)
	require.Equal(t, 0, st.tokenCalls)
}

func TestReplyToPostWithoutCredential(t *testing.T) {
	st := &scriptedTransport{}
	repo := repository.NewMemory()
	cfg := &config.Config{XHandle: "coinlaunchnow"}
	client := NewXClient(cfg, repo, logger.NewNop())
	client.transport = st

	_, err := client.ReplyToPost(context.Background(), "hello", "100")
	require.ErrorIs(t, err, models.ErrNotAuthenticated)
	require.Equal(t, 0, st.replyCalls)
}
