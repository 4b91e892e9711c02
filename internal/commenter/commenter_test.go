package commenter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/internal/repository"
	"github.com/coinlaunch/launchbot/internal/social"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

const testExplorer = "https://blockindex.net/address"

func newTestCommenter(t *testing.T) (*Commenter, *repository.Memory, *social.Mock) {
	t.Helper()
	repo := repository.NewMemory()
	mock := social.NewMockSocial(logger.NewNop())
	return NewCommenter(repo, mock, testExplorer, logger.NewNop()), repo, mock
}

// claimIntent seeds a minted intent and claims it into COMMENTING.
func claimIntent(t *testing.T, repo *repository.Memory) *models.Intent {
	t.Helper()
	intent := &models.Intent{
		PostID:            "300",
		Name:              "Rocket",
		Symbol:            "RKT",
		RequesterID:       "42",
		RequesterUsername: "alice",
		Status:            models.StatusMinted,
		TokenAddress:      "cb27de521e43741cf785cbad450d5649187b9612018f",
	}
	require.NoError(t, repo.CreateIntent(intent))

	claimed, err := repo.TransitionIntent(intent.ID, models.StatusMinted, models.StatusCommenting, nil)
	require.NoError(t, err)
	return claimed
}

func TestCommentPublishesReply(t *testing.T) {
	commenter, repo, mock := newTestCommenter(t)
	intent := claimIntent(t, repo)

	require.NoError(t, commenter.Comment(context.Background(), intent))

	replies := mock.Replies()
	require.Len(t, replies, 1)
	require.Equal(t, "300", replies[0].InReplyToID)
	require.Contains(t, replies[0].Text, "Rocket")
	require.Contains(t, replies[0].Text, "$RKT")
	require.Contains(t, replies[0].Text, intent.TokenAddress)
	require.Contains(t, replies[0].Text, testExplorer)

	final, err := repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCommented, final.Status)
	require.NotEmpty(t, final.CommentPostID)
	require.NotZero(t, final.CommentedAt)
}

func TestComposeReplyFallsBackWhenTooLong(t *testing.T) {
	repo := repository.NewMemory()
	mock := social.NewMockSocial(logger.NewNop())
	// An oversized explorer URL pushes the detailed template past the limit.
	longExplorer := testExplorer + "/" + strings.Repeat("x", 170)
	commenter := NewCommenter(repo, mock, longExplorer, logger.NewNop())

	intent := &models.Intent{
		Name:         "Rocket",
		Symbol:       "RKT",
		TokenAddress: "cb27de521e43741cf785cbad450d5649187b9612018f",
	}
	text := commenter.composeReply(intent)
	require.LessOrEqual(t, utf8.RuneCountInString(text), maxPostRunes)
	require.Contains(t, text, "$RKT")
	require.Contains(t, text, intent.TokenAddress)
	require.NotContains(t, text, "📜")
}

func TestComposeReplyDropsLinkAsLastResort(t *testing.T) {
	repo := repository.NewMemory()
	mock := social.NewMockSocial(logger.NewNop())
	// An explorer URL too long even for the short template.
	hugeExplorer := testExplorer + "/" + strings.Repeat("x", 400)
	commenter := NewCommenter(repo, mock, hugeExplorer, logger.NewNop())

	intent := &models.Intent{
		Name:         "Rocket",
		Symbol:       "RKT",
		TokenAddress: "cb27de521e43741cf785cbad450d5649187b9612018f",
	}
	text := commenter.composeReply(intent)
	require.LessOrEqual(t, utf8.RuneCountInString(text), maxPostRunes)
	require.Contains(t, text, "$RKT")
	require.Contains(t, text, intent.TokenAddress)
	require.NotContains(t, text, hugeExplorer)
}

func TestCommentRateLimitIsReleased(t *testing.T) {
	commenter, repo, mock := newTestCommenter(t)
	intent := claimIntent(t, repo)

	mock.FailReplies(models.ErrRateLimited)
	require.Error(t, commenter.Comment(context.Background(), intent))

	final, err := repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusMinted, final.Status)
	require.Empty(t, final.CommentPostID)
}

func TestCommentFailureIsTerminal(t *testing.T) {
	commenter, repo, mock := newTestCommenter(t)
	intent := claimIntent(t, repo)

	mock.FailReplies(errors.New("api rejected the post"))
	require.Error(t, commenter.Comment(context.Background(), intent))

	final, err := repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCommentFailed, final.Status)
	require.Contains(t, final.ProcessingError, "api rejected the post")
}
