package minter

import (
	"context"
	"math/big"
	"testing"

	"github.com/core-coin/go-core/v2/common"
	"github.com/stretchr/testify/require"

	"github.com/coinlaunch/launchbot/internal/blockchain"
	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/internal/repository"
	"github.com/coinlaunch/launchbot/internal/vault"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

var testNetworkID = big.NewInt(1)

func init() {
	common.DefaultNetworkID = common.NetworkID(testNetworkID.Int64())
}

type fixture struct {
	repo   *repository.Memory
	chain  *blockchain.Mock
	vault  *vault.Vault
	minter *Minter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemory()
	chain := blockchain.NewMock(testNetworkID, logger.NewNop())
	v, err := vault.NewVault("test-secret", testNetworkID, repo, logger.NewNop())
	require.NoError(t, err)

	liquidity := new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
	return &fixture{
		repo:   repo,
		chain:  chain,
		vault:  v,
		minter: NewMinter(repo, chain, v, nil, liquidity, logger.NewNop()),
	}
}

// claimIntent seeds an intent and claims it into MINTING, the state Mint expects.
func (f *fixture) claimIntent(t *testing.T, postID, name, symbol, username string) *models.Intent {
	t.Helper()
	intent := &models.Intent{
		PostID:            postID,
		Name:              name,
		Symbol:            symbol,
		RequesterID:       "id-" + username,
		RequesterUsername: username,
		Status:            models.StatusAwaitingMint,
	}
	require.NoError(t, f.repo.CreateIntent(intent))

	claimed, err := f.repo.TransitionIntent(intent.ID, models.StatusAwaitingMint, models.StatusMinting, nil)
	require.NoError(t, err)
	return claimed
}

func TestMintFundsShortfallOnce(t *testing.T) {
	f := newFixture(t)
	intent := f.claimIntent(t, "200", "Rocket", "RKT", "alice")

	require.NoError(t, f.minter.Mint(context.Background(), intent))
	require.Equal(t, 1, f.chain.FundCount())

	final, err := f.repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusMinted, final.Status)
	require.NotEmpty(t, final.TokenAddress)
	require.NotEmpty(t, final.Creator)
	require.NotEmpty(t, final.MintTxHash)
	require.NotEmpty(t, final.EscrowWallet)
	require.NotZero(t, final.MintedAt)

	// The wallet received the shortfall with a 20% buffer: the mock never
	// spends, so the whole transfer is still sitting there.
	// required = 10^16 liquidity + 300000 energy * 1 gigaunit price
	balance, err := f.chain.BalanceAt(context.Background(), final.EscrowWallet)
	require.NoError(t, err)
	expected := new(big.Int).Add(
		new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil),
		big.NewInt(300000*1000000000),
	)
	expected.Mul(expected, big.NewInt(120))
	expected.Div(expected, big.NewInt(100))
	require.Zero(t, balance.Cmp(expected))
}

func TestMintSkipsFundingWhenCovered(t *testing.T) {
	f := newFixture(t)
	intent := f.claimIntent(t, "201", "Moon", "MOON", "bob")

	escrow, err := f.vault.GetOrCreate("bob")
	require.NoError(t, err)
	f.chain.SetBalance(escrow, new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))

	require.NoError(t, f.minter.Mint(context.Background(), intent))
	require.Equal(t, 0, f.chain.FundCount())

	final, err := f.repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusMinted, final.Status)
}

func TestMintRevertIsTerminal(t *testing.T) {
	f := newFixture(t)
	intent := f.claimIntent(t, "202", "Star", "STAR", "carol")

	f.chain.RevertNextCreate()
	require.Error(t, f.minter.Mint(context.Background(), intent))

	final, err := f.repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, final.Status)
	require.Equal(t, "on-chain revert", final.ProcessingError)
}

func TestMintMissingEventIsTerminal(t *testing.T) {
	f := newFixture(t)
	intent := f.claimIntent(t, "203", "Nova", "NOVA", "dave")

	f.chain.OmitEventNextCreate()
	require.Error(t, f.minter.Mint(context.Background(), intent))

	final, err := f.repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, final.Status)
	require.Contains(t, final.ProcessingError, "TokenCreated event not found")
}

func TestCheckPendingLeavesUnminedAlone(t *testing.T) {
	f := newFixture(t)
	intent := f.claimIntent(t, "204", "Comet", "CMT", "erin")

	pending, err := f.repo.TransitionIntent(intent.ID, models.StatusMinting, models.StatusMinting, map[string]interface{}{
		"mint_tx_hash": "0xdeadbeef",
	})
	require.NoError(t, err)

	require.NoError(t, f.minter.CheckPending(context.Background(), pending))

	final, err := f.repo.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusMinting, final.Status)
}

func TestClaimFees(t *testing.T) {
	f := newFixture(t)

	escrow, err := f.vault.GetOrCreate("alice")
	require.NoError(t, err)
	destination, err := f.vault.GetOrCreate("treasury")
	require.NoError(t, err)

	f.chain.SetBalance(escrow, big.NewInt(1000000000000000))

	txHash, amount, err := f.minter.ClaimFees(context.Background(), "alice", destination)
	require.NoError(t, err)
	require.NotEmpty(t, txHash)

	// Everything except the transfer energy cost is swept.
	expected := big.NewInt(1000000000000000 - 21000*1000000000)
	require.Zero(t, amount.Cmp(expected))

	wallet, err := f.repo.GetEscrowWallet("alice")
	require.NoError(t, err)
	require.Equal(t, expected.String(), wallet.FeesCollected)
}

func TestClaimFeesEmptyWallet(t *testing.T) {
	f := newFixture(t)

	_, err := f.vault.GetOrCreate("alice")
	require.NoError(t, err)
	destination, err := f.vault.GetOrCreate("treasury")
	require.NoError(t, err)

	_, _, err = f.minter.ClaimFees(context.Background(), "alice", destination)
	require.Error(t, err)
}

func TestClaimFeesUnknownIdentity(t *testing.T) {
	f := newFixture(t)

	destination, err := f.vault.GetOrCreate("treasury")
	require.NoError(t, err)

	_, _, err = f.minter.ClaimFees(context.Background(), "nobody", destination)
	require.ErrorIs(t, err, models.ErrNotFound)
}
