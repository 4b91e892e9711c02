// Package commenter publishes the confirmation reply for minted tokens.
package commenter

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

// maxPostRunes is the platform limit on post length.
const maxPostRunes = 280

type Commenter struct {
	logger      *logger.Logger
	repo        models.Repository
	social      models.SocialService
	explorerURL string
}

func NewCommenter(repo models.Repository, social models.SocialService, explorerURL string, logger *logger.Logger) *Commenter {
	return &Commenter{
		logger:      logger,
		repo:        repo,
		social:      social,
		explorerURL: explorerURL,
	}
}

// Comment processes one intent already claimed in COMMENTING state. A rate
// limit releases the intent for a later tick; any other failure is terminal,
// COMMENT_FAILED, because the token itself is already live.
func (c *Commenter) Comment(ctx context.Context, intent *models.Intent) error {
	text := c.composeReply(intent)

	replyID, err := c.social.ReplyToPost(ctx, text, intent.PostID)
	if err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			return c.release(intent, err)
		}
		return c.fail(intent, err)
	}

	if _, err := c.repo.TransitionIntent(intent.ID, models.StatusCommenting, models.StatusCommented, map[string]interface{}{
		"comment_post_id": replyID,
		"commented_at":    time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("failed to record confirmation reply: %w", err)
	}
	c.logger.Info("Confirmation reply published ", "intent ", intent.ID, " reply ", replyID)
	return nil
}

// composeReply builds the confirmation text, falling back to shorter
// templates until one fits the platform limit. The last resort drops the
// explorer link and always fits: the address alone is bounded.
func (c *Commenter) composeReply(intent *models.Intent) string {
	text := fmt.Sprintf("🚀 %s ($%s) deployed!\n\n📜 %s\n\n🔍 %s/%s",
		intent.Name, intent.Symbol, intent.TokenAddress, c.explorerURL, intent.TokenAddress)
	if utf8.RuneCountInString(text) <= maxPostRunes {
		return text
	}
	text = fmt.Sprintf("🚀 $%s deployed! %s/%s", intent.Symbol, c.explorerURL, intent.TokenAddress)
	if utf8.RuneCountInString(text) <= maxPostRunes {
		return text
	}
	return fmt.Sprintf("🚀 $%s deployed! %s", intent.Symbol, intent.TokenAddress)
}

func (c *Commenter) fail(intent *models.Intent, cause error) error {
	c.logger.Error("Confirmation reply failed ", "intent ", intent.ID, " error ", cause)
	if err := c.repo.RecordIntentFailure(intent.ID, models.StatusCommentFailed, cause.Error()); err != nil {
		return fmt.Errorf("failed to record comment failure: %w", err)
	}
	return cause
}

func (c *Commenter) release(intent *models.Intent, cause error) error {
	c.logger.Warn("Confirmation reply deferred ", "intent ", intent.ID, " error ", cause)
	if _, err := c.repo.TransitionIntent(intent.ID, models.StatusCommenting, models.StatusMinted, map[string]interface{}{
		"processing_error": cause.Error(),
	}); err != nil {
		return fmt.Errorf("failed to release intent: %w", err)
	}
	return cause
}
