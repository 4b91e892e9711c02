// Package poller is the pipeline scheduler. On a fixed interval it ingests
// new mentions and advances intents through the mint and comment stages.
// Every claim is a conditional state transition, so any number of instances
// can run the same loop against one database without double-processing.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coinlaunch/launchbot/internal/commenter"
	"github.com/coinlaunch/launchbot/internal/ingest"
	"github.com/coinlaunch/launchbot/internal/minter"
	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

// reclaimGrace is how long a claimed-but-stalled intent is left alone before
// this instance assumes the claimer crashed and releases the claim.
const reclaimGrace = 5 * time.Minute

type Poller struct {
	logger    *logger.Logger
	repo      models.Repository
	ingestor  *ingest.Ingestor
	minter    *minter.Minter
	commenter *commenter.Commenter
	alerts    models.AlertService

	interval    time.Duration
	concurrency int

	// stalled tracks when this instance first saw an intent sitting in a
	// transient claimed state with no recorded progress.
	stalledMu sync.Mutex
	stalled   map[int64]time.Time
}

func NewPoller(repo models.Repository, ingestor *ingest.Ingestor, mint *minter.Minter, comment *commenter.Commenter, alerts models.AlertService, interval time.Duration, concurrency int, logger *logger.Logger) *Poller {
	return &Poller{
		logger:      logger,
		repo:        repo,
		ingestor:    ingestor,
		minter:      mint,
		commenter:   comment,
		alerts:      alerts,
		interval:    interval,
		concurrency: concurrency,
		stalled:     make(map[int64]time.Time),
	}
}

// Run executes the polling loop until ctx is cancelled. In-flight intents
// finish their current stage before Run returns.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Poller started ", "interval ", p.interval, " concurrency ", p.concurrency)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Tick(ctx)
		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one full pipeline pass: ingest, mint, re-check, comment.
func (p *Poller) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if created, err := p.ingestor.Poll(ctx); err != nil {
		p.logger.Error("Mention ingestion failed ", "error ", err)
	} else if created > 0 {
		p.logger.Info("Ingested new intents ", "count ", created)
	}

	// A shared semaphore bounds chain work across all stages of the tick.
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup

	p.scanAwaiting(ctx, sem, &wg)
	p.scanMinting(ctx, sem, &wg)
	p.scanMinted(ctx, sem, &wg)
	p.scanCommenting(ctx)

	wg.Wait()
}

// scanAwaiting claims AWAITING_MINT intents and runs the mint stage on them.
func (p *Poller) scanAwaiting(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) {
	intents, err := p.repo.IntentsByStatus(models.StatusAwaitingMint, p.concurrency)
	if err != nil {
		p.logger.Error("Failed to list awaiting intents ", "error ", err)
		return
	}

	for _, intent := range intents {
		claimed, err := p.repo.TransitionIntent(intent.ID, models.StatusAwaitingMint, models.StatusMinting, map[string]interface{}{
			"processing_error": "",
		})
		if err != nil {
			if !errors.Is(err, models.ErrStaleState) {
				p.logger.Error("Failed to claim intent ", "intent ", intent.ID, " error ", err)
			}
			continue
		}

		p.dispatch(ctx, sem, wg, claimed, func(ctx context.Context) error {
			return p.minter.Mint(ctx, claimed)
		})
	}
}

// scanMinting reconciles intents another instance (or a previous run of this
// one) left in MINTING. With a transaction hash the chain has the answer;
// without one, the claim is released after the grace period.
func (p *Poller) scanMinting(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) {
	intents, err := p.repo.IntentsByStatus(models.StatusMinting, p.concurrency)
	if err != nil {
		p.logger.Error("Failed to list minting intents ", "error ", err)
		return
	}

	for _, intent := range intents {
		if intent.MintTxHash == "" {
			p.reclaimStalled(intent, models.StatusMinting, models.StatusAwaitingMint)
			continue
		}
		p.clearStalled(intent.ID)

		pending := intent
		p.dispatch(ctx, sem, wg, pending, func(ctx context.Context) error {
			return p.minter.CheckPending(ctx, pending)
		})
	}
}

// scanMinted claims MINTED intents and runs the comment stage on them.
func (p *Poller) scanMinted(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) {
	intents, err := p.repo.IntentsByStatus(models.StatusMinted, p.concurrency)
	if err != nil {
		p.logger.Error("Failed to list minted intents ", "error ", err)
		return
	}

	for _, intent := range intents {
		claimed, err := p.repo.TransitionIntent(intent.ID, models.StatusMinted, models.StatusCommenting, map[string]interface{}{
			"processing_error": "",
		})
		if err != nil {
			if !errors.Is(err, models.ErrStaleState) {
				p.logger.Error("Failed to claim intent ", "intent ", intent.ID, " error ", err)
			}
			continue
		}

		p.dispatch(ctx, sem, wg, claimed, func(ctx context.Context) error {
			return p.commenter.Comment(ctx, claimed)
		})
	}
}

// scanCommenting releases COMMENTING claims orphaned by a crashed instance.
// Unlike minting there is no chain to consult: a claim without a recorded
// reply id goes back to MINTED after the grace period, accepting the small
// chance of a duplicate reply over silently losing the confirmation.
func (p *Poller) scanCommenting(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	intents, err := p.repo.IntentsByStatus(models.StatusCommenting, p.concurrency)
	if err != nil {
		p.logger.Error("Failed to list commenting intents ", "error ", err)
		return
	}
	for _, intent := range intents {
		if intent.CommentPostID == "" {
			p.reclaimStalled(intent, models.StatusCommenting, models.StatusMinted)
		}
	}
}

// dispatch runs one stage in its own goroutine, bounded by the semaphore. A
// failure in one intent never takes down the batch: panics are recovered and
// terminal outcomes are reported through the alert channel.
func (p *Poller) dispatch(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup, intent *models.Intent, stage func(context.Context) error) {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() { <-sem }()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Recovered from panic while processing intent ", "intent ", intent.ID, " panic ", r)
			}
		}()

		if err := stage(ctx); err != nil {
			p.reportTerminal(intent.ID, err)
		}
	}()
}

// reportTerminal sends an ops alert when a stage error left the intent in a
// terminal failure state.
func (p *Poller) reportTerminal(intentID int64, cause error) {
	intent, err := p.repo.GetIntent(intentID)
	if err != nil || !intent.Status.Terminal() {
		return
	}
	p.alerts.SendAlert(fmt.Sprintf("Launch #%d (%s / $%s) ended %s: %v",
		intent.ID, intent.Name, intent.Symbol, intent.Status, cause))
}

// reclaimStalled releases a claim that has shown no progress for the grace
// period. The release is conditional, so a claimer that is merely slow keeps
// its claim as long as it commits progress first.
func (p *Poller) reclaimStalled(intent *models.Intent, from, to models.IntentStatus) {
	p.stalledMu.Lock()
	firstSeen, ok := p.stalled[intent.ID]
	if !ok {
		p.stalled[intent.ID] = time.Now()
		p.stalledMu.Unlock()
		return
	}
	p.stalledMu.Unlock()

	if time.Since(firstSeen) < reclaimGrace {
		return
	}

	if _, err := p.repo.TransitionIntent(intent.ID, from, to, map[string]interface{}{
		"processing_error": "claim released after stall",
	}); err != nil && !errors.Is(err, models.ErrStaleState) {
		p.logger.Error("Failed to release stalled intent ", "intent ", intent.ID, " error ", err)
		return
	}
	p.logger.Warn("Released stalled intent ", "intent ", intent.ID, " from ", from)
	p.clearStalled(intent.ID)
}

func (p *Poller) clearStalled(id int64) {
	p.stalledMu.Lock()
	delete(p.stalled, id)
	p.stalledMu.Unlock()
}
