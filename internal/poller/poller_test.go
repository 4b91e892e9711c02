package poller

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/core-coin/go-core/v2/common"
	"github.com/stretchr/testify/require"

	"github.com/coinlaunch/launchbot/internal/blockchain"
	"github.com/coinlaunch/launchbot/internal/commenter"
	"github.com/coinlaunch/launchbot/internal/ingest"
	"github.com/coinlaunch/launchbot/internal/minter"
	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/internal/repository"
	"github.com/coinlaunch/launchbot/internal/social"
	"github.com/coinlaunch/launchbot/internal/vault"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

var testNetworkID = big.NewInt(1)

func init() {
	common.DefaultNetworkID = common.NetworkID(testNetworkID.Int64())
}

type alertRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (a *alertRecorder) SendAlert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

func (a *alertRecorder) Messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.messages))
	copy(out, a.messages)
	return out
}

type pipeline struct {
	poller *Poller
	repo   *repository.Memory
	chain  *blockchain.Mock
	social *social.Mock
	alerts *alertRecorder
}

func newPipeline(t *testing.T, concurrency int) *pipeline {
	t.Helper()
	log := logger.NewNop()
	repo := repository.NewMemory()
	chain := blockchain.NewMock(testNetworkID, log)
	socialMock := social.NewMockSocial(log)
	alerts := &alertRecorder{}

	v, err := vault.NewVault("test-secret", testNetworkID, repo, log)
	require.NoError(t, err)

	liquidity := new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
	mint := minter.NewMinter(repo, chain, v, nil, liquidity, log)
	comment := commenter.NewCommenter(repo, socialMock, "https://blockindex.net/address", log)
	ingestor := ingest.NewIngestor("coinlaunchnow", repo, socialMock, log)

	return &pipeline{
		poller: NewPoller(repo, ingestor, mint, comment, alerts, time.Second, concurrency, log),
		repo:   repo,
		chain:  chain,
		social: socialMock,
		alerts: alerts,
	}
}

func (p *pipeline) enqueueLaunch(postID, name, symbol, username string) {
	p.social.EnqueueMention(&models.SocialPost{
		ID:             postID,
		Text:           "@coinlaunchnow launch $" + name + " $" + symbol,
		AuthorID:       "id-" + username,
		AuthorUsername: username,
	})
}

func TestPipelineEndToEnd(t *testing.T) {
	p := newPipeline(t, 4)
	p.enqueueLaunch("400", "Rocket", "RKT", "alice")

	ctx := context.Background()
	// Tick 1: ingest and mint. Tick 2: comment.
	p.poller.Tick(ctx)
	p.poller.Tick(ctx)

	intents, err := p.repo.IntentsByStatus(models.StatusCommented, 10)
	require.NoError(t, err)
	require.Len(t, intents, 1)

	intent := intents[0]
	require.Equal(t, "400", intent.PostID)
	require.NotEmpty(t, intent.TokenAddress)
	require.NotEmpty(t, intent.MintTxHash)
	require.NotEmpty(t, intent.CommentPostID)

	replies := p.social.Replies()
	require.Len(t, replies, 1)
	require.Equal(t, "400", replies[0].InReplyToID)
	require.Empty(t, p.alerts.Messages())
}

func TestClaimIsExclusive(t *testing.T) {
	p := newPipeline(t, 1)

	intent := &models.Intent{
		PostID:            "401",
		Name:              "Moon",
		Symbol:            "MOON",
		RequesterID:       "1",
		RequesterUsername: "bob",
		Status:            models.StatusAwaitingMint,
	}
	require.NoError(t, p.repo.CreateIntent(intent))

	_, err := p.repo.TransitionIntent(intent.ID, models.StatusAwaitingMint, models.StatusMinting, nil)
	require.NoError(t, err)

	// A second claimer loses the race and must back off.
	_, err = p.repo.TransitionIntent(intent.ID, models.StatusAwaitingMint, models.StatusMinting, nil)
	require.ErrorIs(t, err, models.ErrStaleState)
}

func TestRevertedMintNeverComments(t *testing.T) {
	p := newPipeline(t, 4)
	p.enqueueLaunch("402", "Star", "STAR", "carol")
	p.chain.RevertNextCreate()

	ctx := context.Background()
	p.poller.Tick(ctx)
	p.poller.Tick(ctx)

	intents, err := p.repo.IntentsByStatus(models.StatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	require.Equal(t, "on-chain revert", intents[0].ProcessingError)

	require.Empty(t, p.social.Replies())

	messages := p.alerts.Messages()
	require.Len(t, messages, 1)
	require.Contains(t, messages[0], "FAILED")
	require.Contains(t, messages[0], "$STAR")
}

func TestFailureDoesNotPoisonTheBatch(t *testing.T) {
	// Concurrency 1 keeps ordering deterministic: the older intent reverts,
	// the younger one must still go through.
	p := newPipeline(t, 1)

	older := &models.Intent{
		PostID: "403", Name: "Nova", Symbol: "NOVA",
		RequesterID: "1", RequesterUsername: "dave",
		Status: models.StatusAwaitingMint, CreatedAt: 100,
	}
	younger := &models.Intent{
		PostID: "404", Name: "Comet", Symbol: "CMT",
		RequesterID: "2", RequesterUsername: "erin",
		Status: models.StatusAwaitingMint, CreatedAt: 200,
	}
	require.NoError(t, p.repo.CreateIntent(older))
	require.NoError(t, p.repo.CreateIntent(younger))

	p.chain.RevertNextCreate()

	ctx := context.Background()
	p.poller.Tick(ctx)
	p.poller.Tick(ctx)

	failed, err := p.repo.GetIntent(older.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, failed.Status)

	minted, err := p.repo.GetIntent(younger.ID)
	require.NoError(t, err)
	require.Contains(t, []models.IntentStatus{models.StatusMinted, models.StatusCommenting, models.StatusCommented}, minted.Status)
}

func TestStalledMintingClaimIsReleased(t *testing.T) {
	p := newPipeline(t, 4)

	intent := &models.Intent{
		PostID: "405", Name: "Orbit", Symbol: "ORB",
		RequesterID: "1", RequesterUsername: "frank",
		Status: models.StatusAwaitingMint,
	}
	require.NoError(t, p.repo.CreateIntent(intent))
	_, err := p.repo.TransitionIntent(intent.ID, models.StatusAwaitingMint, models.StatusMinting, nil)
	require.NoError(t, err)

	// Pretend this instance has been watching the stall since before the grace period.
	p.poller.stalledMu.Lock()
	p.poller.stalled[intent.ID] = time.Now().Add(-2 * reclaimGrace)
	p.poller.stalledMu.Unlock()

	p.poller.scanMinting(context.Background(), make(chan struct{}, 1), &sync.WaitGroup{})

	released, err := p.repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusAwaitingMint, released.Status)
	require.Equal(t, "claim released after stall", released.ProcessingError)
}

func TestStalledCommentingClaimIsReleased(t *testing.T) {
	p := newPipeline(t, 4)

	intent := &models.Intent{
		PostID: "406", Name: "Pulse", Symbol: "PLS",
		RequesterID: "1", RequesterUsername: "grace",
		Status: models.StatusAwaitingMint,
	}
	require.NoError(t, p.repo.CreateIntent(intent))
	_, err := p.repo.TransitionIntent(intent.ID, models.StatusAwaitingMint, models.StatusMinting, nil)
	require.NoError(t, err)
	_, err = p.repo.TransitionIntent(intent.ID, models.StatusMinting, models.StatusMinted, nil)
	require.NoError(t, err)
	_, err = p.repo.TransitionIntent(intent.ID, models.StatusMinted, models.StatusCommenting, nil)
	require.NoError(t, err)

	p.poller.stalledMu.Lock()
	p.poller.stalled[intent.ID] = time.Now().Add(-2 * reclaimGrace)
	p.poller.stalledMu.Unlock()

	p.poller.scanCommenting(context.Background())

	released, err := p.repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusMinted, released.Status)
}

func TestFreshClaimIsNotReclaimed(t *testing.T) {
	p := newPipeline(t, 4)

	intent := &models.Intent{
		PostID: "407", Name: "Flare", Symbol: "FLR",
		RequesterID: "1", RequesterUsername: "henry",
		Status: models.StatusAwaitingMint,
	}
	require.NoError(t, p.repo.CreateIntent(intent))
	_, err := p.repo.TransitionIntent(intent.ID, models.StatusAwaitingMint, models.StatusMinting, nil)
	require.NoError(t, err)

	// First sighting only arms the timer.
	p.poller.scanMinting(context.Background(), make(chan struct{}, 1), &sync.WaitGroup{})

	still, err := p.repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusMinting, still.Status)
}
