// Package minter drives the on-chain stage of the pipeline: it provisions the
// requester's escrow wallet, funds it on demand from the funding wallet, and
// submits the launchpad create call. The chain is the source of truth for
// every submitted transaction; the minter only records what it observes.
package minter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
	"github.com/coinlaunch/launchbot/pkg/validation"
)

const (
	// fundingBufferPercent is the safety margin added on top of a funding shortfall.
	fundingBufferPercent = 120
	// energyBufferPercent is the safety margin added on top of an energy estimate.
	energyBufferPercent = 110
	// mintWait bounds how long a single mint attempt waits for confirmation
	// before handing the pending transaction back to the poller.
	mintWait = 90 * time.Second
	// mintPollInterval is how often a waiting mint re-checks the receipt.
	mintPollInterval = 2 * time.Second
	// transferEnergyLimit is the energy cost of a plain value transfer,
	// reserved when sweeping fees out of an escrow wallet.
	transferEnergyLimit = uint64(21000)
)

type Minter struct {
	logger  *logger.Logger
	repo    models.Repository
	chain   models.ChainService
	vault   models.KeyVault
	pinning models.PinningService

	// initialLiquidity is the fixed value sent with every create call.
	initialLiquidity *big.Int
}

func NewMinter(repo models.Repository, chain models.ChainService, vault models.KeyVault, pinning models.PinningService, initialLiquidity *big.Int, logger *logger.Logger) *Minter {
	return &Minter{
		logger:           logger,
		repo:             repo,
		chain:            chain,
		vault:            vault,
		pinning:          pinning,
		initialLiquidity: initialLiquidity,
	}
}

// Mint processes one intent already claimed in MINTING state. On a terminal
// failure the intent moves to FAILED; on a transient failure it is released
// back to AWAITING_MINT for a later tick. A transaction left pending after
// the wait window stays in MINTING with its hash recorded, and the poller's
// re-check path finishes it.
func (m *Minter) Mint(ctx context.Context, intent *models.Intent) error {
	escrow, err := m.vault.GetOrCreate(intent.RequesterUsername)
	if err != nil {
		return m.release(intent, fmt.Errorf("failed to provision escrow wallet: %w", err))
	}

	patch := map[string]interface{}{"escrow_wallet": escrow}
	if pinned := m.pinLogo(ctx, intent); pinned != "" {
		patch["pinned_logo_url"] = pinned
	}
	if _, err := m.repo.TransitionIntent(intent.ID, models.StatusMinting, models.StatusMinting, patch); err != nil {
		return m.release(intent, fmt.Errorf("failed to record escrow wallet: %w", err))
	}

	estimate, err := m.chain.EstimateCreate(ctx, escrow, intent.Name, intent.Symbol, m.initialLiquidity)
	if err != nil {
		return m.classify(intent, fmt.Errorf("failed to estimate create call: %w", err))
	}
	price, err := m.chain.EnergyPrice(ctx)
	if err != nil {
		return m.release(intent, err)
	}

	if err := m.ensureFunded(ctx, escrow, estimate, price); err != nil {
		return m.classify(intent, err)
	}

	nonce, err := m.chain.PendingNonceAt(ctx, escrow)
	if err != nil {
		return m.release(intent, err)
	}
	energyLimit := estimate * energyBufferPercent / 100
	tx, err := m.chain.BuildCreateTx(nonce, m.initialLiquidity, energyLimit, price, intent.Name, intent.Symbol)
	if err != nil {
		return m.fail(intent, err)
	}
	signed, err := m.vault.SignTx(intent.RequesterUsername, tx)
	if err != nil {
		// Key material problems never resolve on retry.
		return m.fail(intent, err)
	}
	if err := m.chain.SendTransaction(ctx, signed); err != nil {
		return m.release(intent, fmt.Errorf("failed to send create transaction: %w", err))
	}

	txHash := signed.Hash().Hex()
	if _, err := m.repo.TransitionIntent(intent.ID, models.StatusMinting, models.StatusMinting, map[string]interface{}{
		"mint_tx_hash": txHash,
	}); err != nil {
		// The transaction is out; the poller re-check path will reconcile.
		m.logger.Error("Failed to record mint tx hash ", "intent ", intent.ID, " tx ", txHash, " error ", err)
		return err
	}
	m.logger.Info("Create transaction submitted ", "intent ", intent.ID, " name ", intent.Name, " tx ", txHash)

	return m.waitForMint(ctx, intent.ID, txHash)
}

// CheckPending re-checks a MINTING intent that already has a transaction hash.
// Used by the poller after a crash or when the submit-time wait ran out.
func (m *Minter) CheckPending(ctx context.Context, intent *models.Intent) error {
	created, pending, err := m.chain.CheckMint(ctx, intent.MintTxHash)
	if err != nil {
		if errors.Is(err, models.ErrOnChainRevert) || errors.Is(err, models.ErrEventNotFound) {
			return m.fail(intent, err)
		}
		return err
	}
	if pending {
		return nil
	}
	return m.recordMinted(intent.ID, created)
}

func (m *Minter) waitForMint(ctx context.Context, intentID int64, txHash string) error {
	deadline := time.Now().Add(mintWait)
	ticker := time.NewTicker(mintPollInterval)
	defer ticker.Stop()

	for {
		created, pending, err := m.chain.CheckMint(ctx, txHash)
		if err != nil {
			if errors.Is(err, models.ErrOnChainRevert) || errors.Is(err, models.ErrEventNotFound) {
				return m.failByID(intentID, err)
			}
			m.logger.Debug("Mint check failed, retrying ", "tx ", txHash, " error ", err)
		} else if !pending {
			return m.recordMinted(intentID, created)
		}

		if time.Now().After(deadline) {
			m.logger.Info("Mint still pending, leaving for the re-check path ", "intent ", intentID, " tx ", txHash)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Minter) recordMinted(intentID int64, created *models.CreatedToken) error {
	_, err := m.repo.TransitionIntent(intentID, models.StatusMinting, models.StatusMinted, map[string]interface{}{
		"token_address": created.TokenAddress,
		"creator":       created.Creator,
		"minted_at":     time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to record minted token: %w", err)
	}
	m.logger.Info("Token minted ", "intent ", intentID, " token ", created.TokenAddress)
	return nil
}

// ensureFunded tops up the escrow wallet when its balance cannot cover the
// initial liquidity plus the energy cost, with a buffer against price drift.
func (m *Minter) ensureFunded(ctx context.Context, escrow string, estimate uint64, price *big.Int) error {
	cost := new(big.Int).Mul(price, new(big.Int).SetUint64(estimate))
	required := new(big.Int).Add(m.initialLiquidity, cost)

	balance, err := m.chain.BalanceAt(ctx, escrow)
	if err != nil {
		return err
	}
	if balance.Cmp(required) >= 0 {
		return nil
	}

	shortfall := new(big.Int).Sub(required, balance)
	amount := new(big.Int).Mul(shortfall, big.NewInt(fundingBufferPercent))
	amount.Div(amount, big.NewInt(100))

	txHash, err := m.chain.Fund(ctx, escrow, amount)
	if err != nil {
		return fmt.Errorf("failed to fund escrow wallet: %w", err)
	}
	m.logger.Info("Escrow wallet funded ", "address ", escrow, " amount ", amount.String(), " tx ", txHash)
	return nil
}

// pinLogo uploads the intent's logo best effort; a failure is logged and the
// mint proceeds without a pinned copy.
func (m *Minter) pinLogo(ctx context.Context, intent *models.Intent) string {
	if intent.LogoURL == "" || m.pinning == nil {
		return ""
	}
	result, err := m.pinning.PinFromURL(ctx, intent.LogoURL, fmt.Sprintf("%s-logo", intent.Symbol))
	if err != nil {
		m.logger.Warn("Failed to pin logo, continuing without it ", "intent ", intent.ID, " error ", err)
		return ""
	}
	return result.URL
}

// classify routes an error to fail or release depending on whether a retry
// could ever succeed.
func (m *Minter) classify(intent *models.Intent, err error) error {
	switch {
	case errors.Is(err, models.ErrOnChainRevert),
		errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrUnconfigured):
		return m.fail(intent, err)
	default:
		return m.release(intent, err)
	}
}

// fail moves the intent to the terminal FAILED state.
func (m *Minter) fail(intent *models.Intent, cause error) error {
	return m.failByID(intent.ID, cause)
}

func (m *Minter) failByID(intentID int64, cause error) error {
	m.logger.Error("Mint failed ", "intent ", intentID, " error ", cause)
	if err := m.repo.RecordIntentFailure(intentID, models.StatusFailed, cause.Error()); err != nil {
		return fmt.Errorf("failed to record mint failure: %w", err)
	}
	return cause
}

// release hands the intent back to AWAITING_MINT so a later tick retries it.
func (m *Minter) release(intent *models.Intent, cause error) error {
	m.logger.Warn("Mint deferred ", "intent ", intent.ID, " error ", cause)
	if _, err := m.repo.TransitionIntent(intent.ID, models.StatusMinting, models.StatusAwaitingMint, map[string]interface{}{
		"processing_error": cause.Error(),
	}); err != nil {
		return fmt.Errorf("failed to release intent: %w", err)
	}
	return cause
}

// ClaimFees sweeps the spendable balance of the requester's escrow wallet to
// the destination address, keeping back the transfer energy cost. Returns the
// transfer hash and the swept amount.
func (m *Minter) ClaimFees(ctx context.Context, username, destination string) (string, *big.Int, error) {
	if err := validation.ValidateAddress(destination); err != nil {
		return "", nil, fmt.Errorf("invalid destination address: %w", err)
	}

	escrow, err := m.vault.Address(username)
	if err != nil {
		return "", nil, err
	}

	price, err := m.chain.EnergyPrice(ctx)
	if err != nil {
		return "", nil, err
	}
	balance, err := m.chain.BalanceAt(ctx, escrow)
	if err != nil {
		return "", nil, err
	}

	cost := new(big.Int).Mul(price, new(big.Int).SetUint64(transferEnergyLimit))
	amount := new(big.Int).Sub(balance, cost)
	if amount.Sign() <= 0 {
		return "", nil, fmt.Errorf("escrow wallet %s holds nothing to claim", escrow)
	}

	nonce, err := m.chain.PendingNonceAt(ctx, escrow)
	if err != nil {
		return "", nil, err
	}
	tx, err := m.chain.BuildTransferTx(nonce, destination, amount, price)
	if err != nil {
		return "", nil, err
	}
	signed, err := m.vault.SignTx(username, tx)
	if err != nil {
		return "", nil, err
	}
	if err := m.chain.SendTransaction(ctx, signed); err != nil {
		return "", nil, fmt.Errorf("failed to send claim transaction: %w", err)
	}

	txHash := signed.Hash().Hex()
	if err := m.chain.WaitMined(ctx, txHash); err != nil {
		return txHash, nil, fmt.Errorf("claim transaction not confirmed: %w", err)
	}

	if err := m.repo.AddEscrowFees(username, decimal.NewFromBigInt(amount, 0)); err != nil {
		m.logger.Error("Failed to record claimed fees ", "username ", username, " error ", err)
	}
	m.logger.Info("Fees claimed ", "username ", username, " amount ", amount.String(), " tx ", txHash)
	return txHash, amount, nil
}
