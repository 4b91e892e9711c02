package models

import "context"

// SocialPost is a normalized inbound mention.
type SocialPost struct {
	ID             string
	Text           string
	AuthorID       string
	AuthorUsername string
	AuthorImageURL string
	// MediaURL is the first photo attached to the post, if any.
	MediaURL string
}

// SocialUser is a social platform account.
type SocialUser struct {
	ID       string
	Username string
	ImageURL string
}

// SocialService represents the social platform API.
type SocialService interface {
	// ReplyToPost publishes text as a reply to the given post and returns the
	// new post id. Fails with ErrNotAuthenticated, ErrRateLimited or a generic
	// error; an expired credential is refreshed transparently exactly once.
	ReplyToPost(ctx context.Context, text, inReplyToID string) (string, error)
	// UserByID resolves a user by account id.
	UserByID(ctx context.Context, id string) (*SocialUser, error)
	// SearchMentions returns mentions of the service handle newer than sinceID,
	// oldest first, together with the newest seen id ("" when nothing new).
	SearchMentions(ctx context.Context, sinceID string) ([]*SocialPost, string, error)
	// AuthURL builds the OAuth2 authorization URL for the posting account.
	AuthURL() (url string, state string, err error)
	// ExchangeCode exchanges an authorization code for a token pair and persists it.
	ExchangeCode(ctx context.Context, code, state string) error
	// Authenticated reports whether a posting credential is available.
	Authenticated() bool
}

// PinResult is the outcome of pinning a file.
type PinResult struct {
	ContentHash string
	URL         string
}

// PinningService uploads content to the pinning service. Callers treat it as
// best effort; a failure never blocks the pipeline.
type PinningService interface {
	PinFromURL(ctx context.Context, sourceURL, name string) (*PinResult, error)
}

// AlertService delivers operational alerts about terminal pipeline failures.
type AlertService interface {
	SendAlert(message string)
}
