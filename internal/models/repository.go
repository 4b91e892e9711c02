package models

import "github.com/shopspring/decimal"

// Repository is the persistence boundary of the pipeline.
type Repository interface {
	// CreateIntent persists a new intent in AWAITING_MINT state.
	// Fails with ErrDuplicatePost, ErrDuplicateName or ErrDuplicateSymbol.
	CreateIntent(intent *Intent) error
	// GetIntent returns the intent by id, or ErrNotFound.
	GetIntent(id int64) (*Intent, error)
	// IntentsByStatus returns up to limit intents in the given state, oldest first.
	IntentsByStatus(status IntentStatus, limit int) ([]*Intent, error)
	// IntentsByRequester returns the requester's intents in the given state, oldest first.
	IntentsByRequester(username string, status IntentStatus) ([]*Intent, error)
	// TransitionIntent moves the intent from one state to another and applies
	// the patch, conditioned on the current state (compare-and-swap).
	// Returns ErrStaleState when the intent is not in the expected state, so
	// concurrent pollers cannot double-process a claim.
	TransitionIntent(id int64, from, to IntentStatus, patch map[string]interface{}) (*Intent, error)
	// RecordIntentFailure moves the intent to the given terminal failure state
	// unconditionally and stores the reason.
	RecordIntentFailure(id int64, status IntentStatus, reason string) error

	// GetEscrowWallet returns the wallet for the identity, or ErrNotFound.
	GetEscrowWallet(username string) (*EscrowWallet, error)
	// AddEscrowWallet persists a freshly generated wallet.
	AddEscrowWallet(wallet *EscrowWallet) error
	// TouchEscrowWallet updates the wallet's last-used timestamp.
	TouchEscrowWallet(username string, lastUsedAt int64) error
	// AddEscrowFees adds the amount to the wallet's cumulative fees-collected total.
	AddEscrowFees(username string, amount decimal.Decimal) error

	// GetOAuthCredential returns the credential for the service, or ErrNotFound.
	GetOAuthCredential(service string) (*OAuthCredential, error)
	// SaveOAuthCredential inserts or replaces the credential for its service.
	SaveOAuthCredential(credential *OAuthCredential) error

	// GetCursor returns the stored cursor value for the name, or "" when unset.
	GetCursor(name string) (string, error)
	// SetCursor stores the cursor value for the name.
	SetCursor(name, value string) error
}
