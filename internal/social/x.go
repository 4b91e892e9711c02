// Package social implements the X API client used for mention ingestion and
// confirmation replies. Reads use the app bearer token; posting uses the
// OAuth2 user credential persisted in the repository, shared by all process
// instances and refreshed transparently on 401.
package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"

	"github.com/coinlaunch/launchbot/internal/config"
	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

const apiBase = "https://api.twitter.com"

type XClient struct {
	logger *logger.Logger
	repo   models.Repository

	bearerToken string
	handle      string

	// transport overrides the HTTP transport; nil means the default. Tests
	// use it to script API responses.
	transport http.RoundTripper

	oauth *oauthFlow
}

func NewXClient(cfg *config.Config, repo models.Repository, logger *logger.Logger) *XClient {
	return &XClient{
		logger:      logger,
		repo:        repo,
		bearerToken: cfg.XBearerToken,
		handle:      cfg.XHandle,
		oauth:       newOAuthFlow(cfg, repo, logger),
	}
}

type replyRequest struct {
	Text  string `json:"text"`
	Reply struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply"`
}

type replyResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// ReplyToPost publishes text as a reply to the given post. An expired
// credential is refreshed transparently exactly once; a second 401 is
// terminal for this attempt.
func (x *XClient) ReplyToPost(ctx context.Context, text, inReplyToID string) (string, error) {
	id, err := x.postReply(ctx, text, inReplyToID)
	if err == nil {
		return id, nil
	}
	if !requests.HasStatusErr(err, http.StatusUnauthorized) {
		return "", classifyErr(err)
	}

	x.logger.Warn("Posting credential rejected, refreshing token")
	if refreshErr := x.oauth.refresh(ctx); refreshErr != nil {
		return "", fmt.Errorf("token refresh failed: %w: %w", refreshErr, models.ErrNotAuthenticated)
	}
	id, err = x.postReply(ctx, text, inReplyToID)
	if err != nil {
		if requests.HasStatusErr(err, http.StatusUnauthorized) {
			return "", models.ErrNotAuthenticated
		}
		return "", classifyErr(err)
	}
	return id, nil
}

func (x *XClient) postReply(ctx context.Context, text, inReplyToID string) (string, error) {
	credential, err := x.repo.GetOAuthCredential(models.OAuthServiceX)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotAuthenticated
		}
		return "", err
	}

	var payload replyRequest
	payload.Text = text
	payload.Reply.InReplyToTweetID = inReplyToID

	var resp replyResponse
	builder := requests.URL(apiBase + "/2/tweets").
		Header("Authorization", "Bearer "+credential.AccessToken).
		BodyJSON(&payload).
		ToJSON(&resp)
	if x.transport != nil {
		builder = builder.Transport(x.transport)
	}
	if err := builder.Fetch(ctx); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

type userResponse struct {
	Data struct {
		ID              string `json:"id"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

// UserByID resolves a user by account id with the app bearer token.
func (x *XClient) UserByID(ctx context.Context, id string) (*models.SocialUser, error) {
	if x.bearerToken == "" {
		return nil, fmt.Errorf("X_BEARER_TOKEN is missing: %w", models.ErrUnconfigured)
	}

	var resp userResponse
	builder := requests.URL(apiBase+"/2/users/"+id).
		Header("Authorization", "Bearer "+x.bearerToken).
		Param("user.fields", "profile_image_url,username").
		ToJSON(&resp)
	if x.transport != nil {
		builder = builder.Transport(x.transport)
	}
	if err := builder.Fetch(ctx); err != nil {
		return nil, classifyErr(err)
	}
	return &models.SocialUser{
		ID:       resp.Data.ID,
		Username: resp.Data.Username,
		ImageURL: resp.Data.ProfileImageURL,
	}, nil
}

type searchResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Text        string `json:"text"`
		AuthorID    string `json:"author_id"`
		Attachments struct {
			MediaKeys []string `json:"media_keys"`
		} `json:"attachments"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID              string `json:"id"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"users"`
		Media []struct {
			MediaKey string `json:"media_key"`
			Type     string `json:"type"`
			URL      string `json:"url"`
		} `json:"media"`
	} `json:"includes"`
	Meta struct {
		NewestID    string `json:"newest_id"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

// SearchMentions returns launch mentions of the service handle newer than
// sinceID, oldest first, together with the newest seen post id.
func (x *XClient) SearchMentions(ctx context.Context, sinceID string) ([]*models.SocialPost, string, error) {
	if x.bearerToken == "" {
		return nil, "", fmt.Errorf("X_BEARER_TOKEN is missing: %w", models.ErrUnconfigured)
	}

	builder := requests.URL(apiBase+"/2/tweets/search/recent").
		Header("Authorization", "Bearer "+x.bearerToken).
		Param("query", fmt.Sprintf(`@%s "launch"`, x.handle)).
		Param("tweet.fields", "author_id,created_at").
		Param("expansions", "author_id,attachments.media_keys").
		Param("media.fields", "url,type")
	if sinceID != "" {
		builder = builder.Param("since_id", sinceID)
	}
	if x.transport != nil {
		builder = builder.Transport(x.transport)
	}

	var resp searchResponse
	if err := builder.ToJSON(&resp).Fetch(ctx); err != nil {
		return nil, "", classifyErr(err)
	}

	users := make(map[string]*models.SocialUser, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		users[u.ID] = &models.SocialUser{ID: u.ID, Username: u.Username, ImageURL: u.ProfileImageURL}
	}
	media := make(map[string]string, len(resp.Includes.Media))
	for _, m := range resp.Includes.Media {
		if m.Type == "photo" {
			media[m.MediaKey] = m.URL
		}
	}

	// The API returns newest first; the pipeline wants oldest first.
	posts := make([]*models.SocialPost, 0, len(resp.Data))
	for i := len(resp.Data) - 1; i >= 0; i-- {
		tweet := resp.Data[i]
		post := &models.SocialPost{
			ID:       tweet.ID,
			Text:     tweet.Text,
			AuthorID: tweet.AuthorID,
		}
		if user, ok := users[tweet.AuthorID]; ok {
			post.AuthorUsername = user.Username
			post.AuthorImageURL = user.ImageURL
		}
		for _, key := range tweet.Attachments.MediaKeys {
			if url, ok := media[key]; ok {
				post.MediaURL = url
				break
			}
		}
		posts = append(posts, post)
	}

	return posts, resp.Meta.NewestID, nil
}

// AuthURL builds the OAuth2 authorization URL for the posting account.
func (x *XClient) AuthURL() (string, string, error) {
	return x.oauth.authURL()
}

// ExchangeCode exchanges an authorization code for a token pair and persists it.
func (x *XClient) ExchangeCode(ctx context.Context, code, state string) error {
	return x.oauth.exchangeCode(ctx, code, state)
}

// Authenticated reports whether a posting credential is stored.
func (x *XClient) Authenticated() bool {
	_, err := x.repo.GetOAuthCredential(models.OAuthServiceX)
	return err == nil
}

// classifyErr maps rate-limit responses to ErrRateLimited so callers can
// distinguish them from hard API failures.
func classifyErr(err error) error {
	if requests.HasStatusErr(err, http.StatusTooManyRequests) {
		return fmt.Errorf("%w: %w", models.ErrRateLimited, err)
	}
	return err
}
