package models

import (
	"context"
	"math/big"

	"github.com/core-coin/go-core/v2/core/types"
)

// CreatedToken is the result of a confirmed create call, parsed from the
// TokenCreated event log.
type CreatedToken struct {
	// TokenAddress is the address of the newly created token contract.
	TokenAddress string
	// Creator is the creator address recorded on chain (the escrow wallet).
	Creator string
}

// ChainService represents a service that interacts with a blockchain.
// The live implementation talks JSON-RPC; the mock one is deterministic.
type ChainService interface {
	// NetworkID returns the id of the connected network.
	NetworkID() *big.Int
	// BalanceAt returns the balance of the address in base units.
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
	// EnergyPrice returns the suggested energy price in base units.
	EnergyPrice(ctx context.Context) (*big.Int, error)
	// EstimateCreate estimates the energy for a launchpad create call.
	EstimateCreate(ctx context.Context, from, name, symbol string, value *big.Int) (uint64, error)
	// PendingNonceAt returns the next nonce for the address, including pending transactions.
	PendingNonceAt(ctx context.Context, address string) (uint64, error)
	// BuildCreateTx builds an unsigned launchpad create transaction.
	BuildCreateTx(nonce uint64, value *big.Int, energyLimit uint64, energyPrice *big.Int, name, symbol string) (*types.Transaction, error)
	// BuildTransferTx builds an unsigned plain value transfer.
	BuildTransferTx(nonce uint64, to string, value *big.Int, energyPrice *big.Int) (*types.Transaction, error)
	// SendTransaction broadcasts a signed transaction.
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	// Fund sends the amount from the funding wallet to the address and waits
	// for the transfer to confirm. Fails with ErrInsufficientFunding when the
	// funding wallet cannot cover it.
	Fund(ctx context.Context, to string, amount *big.Int) (string, error)
	// WaitMined blocks until the transaction is mined or ctx expires.
	// Returns ErrOnChainRevert when the receipt reports failure.
	WaitMined(ctx context.Context, txHash string) error
	// CheckMint looks up the receipt of a create transaction. pending is true
	// while the transaction is not yet mined. A mined receipt yields either
	// the created token, ErrOnChainRevert or ErrEventNotFound.
	CheckMint(ctx context.Context, txHash string) (created *CreatedToken, pending bool, err error)
}
