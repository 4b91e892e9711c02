package models

import "github.com/core-coin/go-core/v2/core/types"

// KeyVault holds the custodial escrow keypairs. The private key material is
// encrypted at rest and is only ever used inside SignTx; it is never returned
// to callers or written to logs.
type KeyVault interface {
	// GetOrCreate returns the escrow wallet address for the identity,
	// generating and persisting a new encrypted keypair on first use.
	GetOrCreate(username string) (string, error)
	// Address returns the escrow wallet address for the identity, or ErrNotFound.
	Address(username string) (string, error)
	// SignTx signs the transaction with the identity's escrow key and updates
	// the wallet's last-used timestamp. Signing is serialized per identity so
	// concurrent mints cannot race on the wallet nonce.
	SignTx(username string, tx *types.Transaction) (*types.Transaction, error)
}
