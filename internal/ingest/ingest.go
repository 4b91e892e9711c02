// Package ingest turns launch mentions into persisted intents. Each poll
// fetches mentions newer than the stored cursor, parses the launch command,
// and records one AWAITING_MINT intent per valid post. Everything invalid or
// already seen is dropped with a logged reason; ingestion never retries a
// post once the cursor has moved past it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
	"github.com/coinlaunch/launchbot/pkg/validation"
)

type Ingestor struct {
	logger  *logger.Logger
	repo    models.Repository
	social  models.SocialService
	pattern *regexp.Regexp
}

// Command is a parsed launch request.
type Command struct {
	Name   string
	Symbol string
}

func NewIngestor(handle string, repo models.Repository, social models.SocialService, logger *logger.Logger) *Ingestor {
	return &Ingestor{
		logger:  logger,
		repo:    repo,
		social:  social,
		pattern: commandPattern(handle),
	}
}

func commandPattern(handle string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(handle) + `\s+launch\s+\$(\S+)\s+\$(\S+)`)
}

// ParseCommand extracts the launch command from post text. The symbol is
// normalized to upper case; the name keeps the author's casing.
func (i *Ingestor) ParseCommand(text string) (*Command, error) {
	match := i.pattern.FindStringSubmatch(text)
	if match == nil {
		return nil, fmt.Errorf("no launch command found")
	}

	name := match[1]
	symbol := strings.ToUpper(match[2])

	if err := validation.ValidateTokenName(name); err != nil {
		return nil, fmt.Errorf("invalid token name %q: %w", name, err)
	}
	if err := validation.ValidateTokenSymbol(symbol); err != nil {
		return nil, fmt.Errorf("invalid token symbol %q: %w", symbol, err)
	}
	return &Command{Name: name, Symbol: symbol}, nil
}

// Poll fetches new mentions, persists the valid ones as intents, and advances
// the cursor. It returns the number of intents created.
func (i *Ingestor) Poll(ctx context.Context) (int, error) {
	sinceID, err := i.repo.GetCursor(models.MentionCursor)
	if err != nil {
		return 0, fmt.Errorf("failed to load mention cursor: %w", err)
	}

	posts, newestID, err := i.social.SearchMentions(ctx, sinceID)
	if err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			i.logger.Warn("Mention search rate limited, backing off until next tick")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to search mentions: %w", err)
	}

	created := 0
	for _, post := range posts {
		if i.ingestPost(ctx, post) {
			created++
		}
	}

	if newestID != "" && newestID != sinceID {
		if err := i.repo.SetCursor(models.MentionCursor, newestID); err != nil {
			return created, fmt.Errorf("failed to store mention cursor: %w", err)
		}
	}
	return created, nil
}

// ingestPost validates a single mention and records the intent. It reports
// whether an intent was created; every drop is logged with its reason.
func (i *Ingestor) ingestPost(ctx context.Context, post *models.SocialPost) bool {
	command, err := i.ParseCommand(post.Text)
	if err != nil {
		i.logger.Debug("Dropping mention ", "post ", post.ID, " reason ", err)
		return false
	}

	username := post.AuthorUsername
	imageURL := post.AuthorImageURL
	if username == "" {
		user, err := i.social.UserByID(ctx, post.AuthorID)
		if err != nil {
			i.logger.Error("Dropping mention ", "post ", post.ID, " reason failed to resolve author: ", err)
			return false
		}
		username = user.Username
		imageURL = user.ImageURL
	}

	// Attached photo wins over the author's profile image.
	logoURL := post.MediaURL
	if logoURL == "" {
		logoURL = imageURL
	}

	intent := &models.Intent{
		PostID:            post.ID,
		Name:              command.Name,
		Symbol:            command.Symbol,
		RequesterID:       post.AuthorID,
		RequesterUsername: username,
		Status:            models.StatusAwaitingMint,
		LogoURL:           logoURL,
	}
	if err := i.repo.CreateIntent(intent); err != nil {
		switch {
		case errors.Is(err, models.ErrDuplicatePost):
			i.logger.Debug("Dropping mention ", "post ", post.ID, " reason already ingested")
		case errors.Is(err, models.ErrDuplicateName):
			i.logger.Info("Dropping mention ", "post ", post.ID, " reason token name taken: ", command.Name)
		case errors.Is(err, models.ErrDuplicateSymbol):
			i.logger.Info("Dropping mention ", "post ", post.ID, " reason token symbol taken: ", command.Symbol)
		default:
			i.logger.Error("Failed to persist intent ", "post ", post.ID, " error ", err)
		}
		return false
	}

	i.logger.Info("Intent recorded ", "post ", post.ID, " name ", command.Name, " symbol ", command.Symbol, " requester ", username)
	return true
}
